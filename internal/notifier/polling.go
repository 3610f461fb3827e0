package notifier

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	longPollSeconds = 30
	pollRetryDelay  = 5 * time.Second
)

// CommandHandler answers one operator command. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

type update struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

type getUpdates struct {
	Offset  int `json:"offset"`
	Timeout int `json:"timeout"`
}

// StartPolling long-polls for commands until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: (longPollSeconds + 5) * time.Second, Transport: t.Client.Transport}
	offset := 0
	for ctx.Err() == nil {
		next, err := t.poll(ctx, client, offset, handler)
		if err == nil {
			offset = next
			continue
		}
		if ctx.Err() != nil {
			break
		}
		t.Logger.Warn().Err(err).Dur("retry_in", pollRetryDelay).Msg("poll updates")
		select {
		case <-ctx.Done():
		case <-time.After(pollRetryDelay):
		}
	}
	t.Logger.Info().Msg("telegram polling stopped")
}

// poll handles one batch of updates and returns the offset acknowledging them.
func (t *TelegramNotifier) poll(ctx context.Context, client *http.Client, offset int, handler CommandHandler) (int, error) {
	var updates []update
	if err := t.call(ctx, client, "getUpdates", getUpdates{Offset: offset, Timeout: longPollSeconds}, &updates); err != nil {
		return offset, err
	}
	for _, u := range updates {
		offset = u.UpdateID + 1
		if u.Message == nil {
			continue
		}
		cmd := strings.TrimSpace(u.Message.Text)
		if cmd == "" {
			continue
		}
		t.Logger.Info().Str("command", cmd).Msg("command received")
		reply := handler(ctx, cmd)
		if reply == "" {
			continue
		}
		if err := t.Send(ctx, reply); err != nil {
			t.Logger.Error().Err(err).Str("command", cmd).Msg("send reply")
		}
	}
	return offset, nil
}
