package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airingbot/internal/controllers"
	"github.com/amaumene/airingbot/internal/models"
	"github.com/amaumene/airingbot/internal/services/anilist"
)

// ErrorReply is sent to the user whenever a command handler fails
const ErrorReply = "There was an error while executing this command!"

// Request is one command invocation
type Request struct {
	UserID string
	Args   string // text after the command name
}

// Command is one entry of the command table. Replies are Telegram HTML.
type Command struct {
	Name        string // without the leading slash
	Description string
	Execute     func(ctx context.Context, req Request) (string, error)
}

// Watchlist is what the commands need from the watchlist controller
type Watchlist interface {
	Watch(ctx context.Context, userID, query string) (string, bool, error)
	Unwatch(ctx context.Context, userID, title string) error
	List(ctx context.Context, userID string) ([]string, error)
}

// Table is the immutable set of commands, built once at startup
type Table struct {
	commands []Command
	byName   map[string]Command
	logger   *logrus.Logger
}

// NewTable builds a table from cmds; later duplicates are ignored
func NewTable(logger *logrus.Logger, cmds ...Command) *Table {
	t := &Table{byName: make(map[string]Command, len(cmds)), logger: logger}
	for _, c := range cmds {
		name := strings.ToLower(c.Name)
		if _, dup := t.byName[name]; dup {
			continue
		}
		c.Name = name
		t.byName[name] = c
		t.commands = append(t.commands, c)
	}
	return t
}

// Lookup finds a command by name, case-insensitively
func (t *Table) Lookup(name string) (Command, bool) {
	c, ok := t.byName[strings.ToLower(strings.TrimPrefix(name, "/"))]
	return c, ok
}

// Commands returns the commands in registration order
func (t *Table) Commands() []Command {
	out := make([]Command, len(t.commands))
	copy(out, t.commands)
	return out
}

// Dispatch runs a command and returns the reply text.
// Unknown commands return ok=false. Handler errors are logged and
// turned into ErrorReply.
func (t *Table) Dispatch(ctx context.Context, name string, req Request) (reply string, ok bool) {
	cmd, ok := t.Lookup(name)
	if !ok {
		return "", false
	}

	reply, err := cmd.Execute(ctx, req)
	if err != nil {
		t.logger.WithError(err).WithFields(logrus.Fields{
			"command": cmd.Name,
			"user_id": req.UserID,
		}).Error("Command failed")
		return ErrorReply, true
	}
	return reply, true
}

// DefaultCommands is the bot's command set
func DefaultCommands(watchlist Watchlist, logger *logrus.Logger) *Table {
	var table *Table
	help := func(ctx context.Context, req Request) (string, error) {
		return helpText(table), nil
	}

	table = NewTable(logger,
		Command{
			Name:        "watch",
			Description: "Add an anime to your watchlist",
			Execute: func(ctx context.Context, req Request) (string, error) {
				title, added, err := watchlist.Watch(ctx, req.UserID, req.Args)
				switch {
				case errors.Is(err, controllers.ErrEmptyTitle):
					return "Usage: /watch &lt;title&gt;", nil
				case errors.Is(err, anilist.ErrNoMatch):
					return fmt.Sprintf("No anime found for <i>%s</i>.", html.EscapeString(req.Args)), nil
				case err != nil:
					return "", err
				case !added:
					return fmt.Sprintf("<b>%s</b> is already on your watchlist.", html.EscapeString(title)), nil
				}
				return fmt.Sprintf("Added <b>%s</b> to your watchlist. You will get a message when a new episode is about to air.", html.EscapeString(title)), nil
			},
		},
		Command{
			Name:        "unwatch",
			Description: "Remove an anime from your watchlist",
			Execute: func(ctx context.Context, req Request) (string, error) {
				err := watchlist.Unwatch(ctx, req.UserID, req.Args)
				switch {
				case errors.Is(err, controllers.ErrEmptyTitle):
					return "Usage: /unwatch &lt;title&gt;", nil
				case errors.Is(err, models.ErrNotFound):
					return fmt.Sprintf("<i>%s</i> is not on your watchlist.", html.EscapeString(req.Args)), nil
				case err != nil:
					return "", err
				}
				return fmt.Sprintf("Removed <b>%s</b> from your watchlist.", html.EscapeString(strings.TrimSpace(req.Args))), nil
			},
		},
		Command{
			Name:        "watchlist",
			Description: "Show your watchlist",
			Execute: func(ctx context.Context, req Request) (string, error) {
				titles, err := watchlist.List(ctx, req.UserID)
				if err != nil {
					return "", err
				}
				if len(titles) == 0 {
					return "Your watchlist is empty. Use /watch &lt;title&gt; to add an anime.", nil
				}
				var b strings.Builder
				b.WriteString("<b>Your watchlist</b>")
				for _, title := range titles {
					b.WriteString("\n• ")
					b.WriteString(html.EscapeString(title))
				}
				return b.String(), nil
			},
		},
		Command{Name: "help", Description: "List available commands", Execute: help},
		Command{Name: "start", Description: "Show the welcome message", Execute: help},
	)
	return table
}

func helpText(t *Table) string {
	var b strings.Builder
	b.WriteString("I send you a message when an anime on your watchlist is about to air.\n")
	for _, c := range t.Commands() {
		fmt.Fprintf(&b, "\n/%s - %s", c.Name, html.EscapeString(c.Description))
	}
	return b.String()
}
