package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/airingbot/internal/controllers"
	"github.com/amaumene/airingbot/internal/models"
	"github.com/amaumene/airingbot/internal/services/anilist"
)

type stubWatchlist struct {
	watchTitle string
	watchAdded bool
	watchErr   error
	unwatchErr error
	titles     []string
	listErr    error

	lastUser string
	lastArgs string
}

func (s *stubWatchlist) Watch(ctx context.Context, userID, query string) (string, bool, error) {
	s.lastUser, s.lastArgs = userID, query
	return s.watchTitle, s.watchAdded, s.watchErr
}

func (s *stubWatchlist) Unwatch(ctx context.Context, userID, title string) error {
	s.lastUser, s.lastArgs = userID, title
	return s.unwatchErr
}

func (s *stubWatchlist) List(ctx context.Context, userID string) ([]string, error) {
	s.lastUser = userID
	return s.titles, s.listErr
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	logger, _ := test.NewNullLogger()
	table := DefaultCommands(&stubWatchlist{}, logger)

	for _, name := range []string{"watch", "/watch", "WATCH", "/Watch"} {
		cmd, ok := table.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, "watch", cmd.Name)
	}
	_, ok := table.Lookup("download")
	assert.False(t, ok)
}

func TestNewTableIgnoresDuplicates(t *testing.T) {
	logger, _ := test.NewNullLogger()
	first := Command{Name: "ping", Description: "first"}
	table := NewTable(logger, first, Command{Name: "PING", Description: "second"})

	require.Len(t, table.Commands(), 1)
	cmd, _ := table.Lookup("ping")
	assert.Equal(t, "first", cmd.Description)
}

func TestWatchReplies(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tests := []struct {
		name  string
		stub  *stubWatchlist
		reply string
	}{
		{
			name:  "added",
			stub:  &stubWatchlist{watchTitle: "NARUTO", watchAdded: true},
			reply: "Added <b>NARUTO</b> to your watchlist. You will get a message when a new episode is about to air.",
		},
		{
			name:  "duplicate",
			stub:  &stubWatchlist{watchTitle: "NARUTO"},
			reply: "<b>NARUTO</b> is already on your watchlist.",
		},
		{
			name:  "missing title",
			stub:  &stubWatchlist{watchErr: controllers.ErrEmptyTitle},
			reply: "Usage: /watch &lt;title&gt;",
		},
		{
			name:  "no match",
			stub:  &stubWatchlist{watchErr: &models.LookupError{Title: "naruto", Err: anilist.ErrNoMatch}},
			reply: "No anime found for <i>naruto</i>.",
		},
		{
			name:  "store failure",
			stub:  &stubWatchlist{watchErr: &models.StoreError{Op: "add entry", Err: errors.New("disk full")}},
			reply: ErrorReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := DefaultCommands(tt.stub, logger)
			reply, ok := table.Dispatch(context.Background(), "watch", Request{UserID: "7", Args: "naruto"})
			require.True(t, ok)
			assert.Equal(t, tt.reply, reply)
			assert.Equal(t, "7", tt.stub.lastUser)
		})
	}
}

func TestUnwatchReplies(t *testing.T) {
	logger, _ := test.NewNullLogger()

	table := DefaultCommands(&stubWatchlist{}, logger)
	reply, _ := table.Dispatch(context.Background(), "unwatch", Request{UserID: "7", Args: " NARUTO "})
	assert.Equal(t, "Removed <b>NARUTO</b> from your watchlist.", reply)

	table = DefaultCommands(&stubWatchlist{unwatchErr: models.ErrNotFound}, logger)
	reply, _ = table.Dispatch(context.Background(), "unwatch", Request{UserID: "7", Args: "Bleach"})
	assert.Equal(t, "<i>Bleach</i> is not on your watchlist.", reply)
}

func TestWatchlistReply(t *testing.T) {
	logger, _ := test.NewNullLogger()

	table := DefaultCommands(&stubWatchlist{titles: []string{"NARUTO", "Tom & Jerry"}}, logger)
	reply, _ := table.Dispatch(context.Background(), "watchlist", Request{UserID: "7"})
	assert.Equal(t, "<b>Your watchlist</b>\n• NARUTO\n• Tom &amp; Jerry", reply)

	table = DefaultCommands(&stubWatchlist{}, logger)
	reply, _ = table.Dispatch(context.Background(), "watchlist", Request{UserID: "7"})
	assert.Contains(t, reply, "empty")
}

func TestDispatchLogsHandlerErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	table := DefaultCommands(&stubWatchlist{listErr: errors.New("database is locked")}, logger)

	reply, ok := table.Dispatch(context.Background(), "watchlist", Request{UserID: "7"})
	require.True(t, ok)
	assert.Equal(t, "There was an error while executing this command!", reply)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "watchlist", entry.Data["command"])
}

func TestDispatchUnknownCommand(t *testing.T) {
	logger, _ := test.NewNullLogger()
	table := DefaultCommands(&stubWatchlist{}, logger)

	_, ok := table.Dispatch(context.Background(), "nope", Request{})
	assert.False(t, ok)
}

func TestHelpListsEveryCommand(t *testing.T) {
	logger, _ := test.NewNullLogger()
	table := DefaultCommands(&stubWatchlist{}, logger)

	reply, ok := table.Dispatch(context.Background(), "help", Request{})
	require.True(t, ok)
	for _, c := range table.Commands() {
		assert.Contains(t, reply, "/"+c.Name+" - ")
	}

	start, _ := table.Dispatch(context.Background(), "start", Request{})
	assert.Equal(t, reply, start)
}
