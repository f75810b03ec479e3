package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amaumene/airingbot/internal/controllers"
	"github.com/amaumene/airingbot/internal/di"
	"github.com/amaumene/airingbot/internal/models"
)

func newWatchlistCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage a user's watchlist",
	}
	cmd.PersistentFlags().StringVar(&userID, "user", "", "Telegram user id")
	_ = cmd.MarkPersistentFlagRequired("user")

	// withWatchlist opens the store for the duration of one subcommand
	withWatchlist := func(run func(cmd *cobra.Command, w *controllers.WatchlistController, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			w, cleanup, err := di.InitializeWatchlist(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return run(cmd, w, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <title>",
			Short: "Resolve a title on AniList and add it",
			Args:  cobra.MinimumNArgs(1),
			RunE: withWatchlist(func(cmd *cobra.Command, w *controllers.WatchlistController, args []string) error {
				title, added, err := w.Watch(cmd.Context(), userID, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if !added {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is already on the watchlist\n", title)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", title)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "remove <title>",
			Short: "Remove a title",
			Args:  cobra.MinimumNArgs(1),
			RunE: withWatchlist(func(cmd *cobra.Command, w *controllers.WatchlistController, args []string) error {
				title := strings.Join(args, " ")
				if err := w.Unwatch(cmd.Context(), userID, title); err != nil {
					if errors.Is(err, models.ErrNotFound) {
						return fmt.Errorf("%s is not on the watchlist", title)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", title)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List titles",
			Args:  cobra.NoArgs,
			RunE: withWatchlist(func(cmd *cobra.Command, w *controllers.WatchlistController, args []string) error {
				titles, err := w.List(cmd.Context(), userID)
				if err != nil {
					return err
				}
				for _, title := range titles {
					fmt.Fprintln(cmd.OutOrStdout(), title)
				}
				return nil
			}),
		},
	)
	return cmd
}
