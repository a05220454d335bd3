package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordSender struct {
	name string
	err  error
	sent []string
}

func (r *recordSender) Send(_ context.Context, title, _ string) error {
	r.sent = append(r.sent, title)
	return r.err
}

func (r *recordSender) Name() string { return r.name }

func TestNotifierFiltersEvents(t *testing.T) {
	s := &recordSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{"order_filled", " "}, 0, discard)

	require.NoError(t, n.Notify(context.Background(), "order_filled", "filled", ""))
	require.NoError(t, n.Notify(context.Background(), "cycle_error", "boom", ""))
	assert.Equal(t, []string{"filled"}, s.sent)

	require.NoError(t, n.NotifyAll(context.Background(), "all", ""))
	assert.Equal(t, []string{"filled", "all"}, s.sent)
}

func TestNotifierCooldown(t *testing.T) {
	s := &recordSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, time.Minute, discard)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, "cycle_error", "first", ""))
	require.NoError(t, n.Notify(ctx, "cycle_error", "second", ""))
	require.NoError(t, n.Notify(ctx, "order_filled", "other", ""))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, n.Notify(ctx, "cycle_error", "third", ""))

	assert.Equal(t, []string{"first", "other", "third"}, s.sent)
}

func TestNotifierCollectsFailures(t *testing.T) {
	boom := errors.New("boom")
	bad := &recordSender{name: "bad", err: boom}
	good := &recordSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, 0, discard)

	err := n.NotifyAll(context.Background(), "t", "m")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, good.sent, 1)
}

func TestTelegramSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42").WithBaseURL(srv.URL + "/")
	require.NoError(t, s.Send(context.Background(), "BTC_USD", "bought"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*BTC\\_USD*\nbought", got["text"])
}

func TestDiscordSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
}
