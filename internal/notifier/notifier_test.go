package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/model"
)

type fakeTelegram struct {
	mu      sync.Mutex
	sent    []string
	fail    bool
	updates string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if f.fail {
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		_ = json.Unmarshal(body, &payload)
		f.sent = append(f.sent, payload["text"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		_, _ = w.Write([]byte(f.updates))
	default:
		http.NotFound(w, r)
	}
}

func newTestNotifier(t *testing.T, h http.Handler) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("token", "42", "", zerolog.Nop())
	n.BaseURL = srv.URL
	return n
}

func TestSend(t *testing.T) {
	fake := &fakeTelegram{}
	n := newTestNotifier(t, fake)
	require.NoError(t, n.Send(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, fake.sent)
}

func TestSendWithRetryExhausted(t *testing.T) {
	n := newTestNotifier(t, &fakeTelegram{fail: true})
	err := n.SendWithRetry(context.Background(), "hello", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestSendWithRetryCancelled(t *testing.T) {
	n := newTestNotifier(t, &fakeTelegram{fail: true})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := n.SendWithRetry(ctx, "hello", 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendRejectedByAPI(t *testing.T) {
	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	err := n.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestPollDispatchesCommands(t *testing.T) {
	fake := &fakeTelegram{updates: `{"ok":true,"result":[
		{"update_id":7,"message":{"text":" /jobs "}},
		{"update_id":8},
		{"update_id":9,"message":{"text":"/quiet"}}]}`}
	n := newTestNotifier(t, fake)

	var got []string
	handler := func(_ context.Context, cmd string) string {
		got = append(got, cmd)
		if cmd == "/quiet" {
			return ""
		}
		return "reply to " + cmd
	}
	next, err := n.poll(context.Background(), n.Client, 0, handler)
	require.NoError(t, err)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/jobs", "/quiet"}, got)
	assert.Equal(t, []string{"reply to /jobs"}, fake.sent)
}

func TestFormatIngestSummary(t *testing.T) {
	start := time.Date(2024, 1, 1, 22, 30, 0, 0, time.UTC)
	job := &model.IngestJob{
		ID: "abc", Status: model.IngestFinished, Total: 3, Succeeded: 3,
		StartedAt: start, FinishedAt: start.Add(90 * time.Second),
	}
	msg := FormatIngestSummary(job)
	assert.Contains(t, msg, "✅")
	assert.Contains(t, msg, "Saved: 3 | Failed: 0")
	assert.Contains(t, msg, "1m30s")

	job.Failed = 1
	assert.Contains(t, FormatIngestSummary(job), "⚠️")
}

func TestFormatHeatmapOrder(t *testing.T) {
	hm := &model.SectorHeatmap{
		Duration: model.Horizon1W,
		Sectors: map[string]*model.SectorGroup{
			"Energy":  {AvgChangePct: null.FloatFrom(-1.5)},
			"Tech":    {AvgChangePct: null.FloatFrom(2.25)},
			"Unknown": {},
			"R&D":     {AvgChangePct: null.FloatFrom(0)},
		},
	}
	msg := FormatHeatmap(hm)
	iTech := strings.Index(msg, "Tech")
	iRD := strings.Index(msg, "R&amp;D")
	iEnergy := strings.Index(msg, "Energy")
	iUnknown := strings.Index(msg, "Unknown: n/a")
	assert.True(t, iTech < iRD && iRD < iEnergy && iEnergy < iUnknown, msg)
	assert.Contains(t, msg, "Tech: +2.25%")
}

func TestFormatJobs(t *testing.T) {
	assert.Equal(t, "No ingest jobs recorded yet.", FormatJobs(nil))
	msg := FormatJobs([]model.IngestJob{{ID: "0123456789abcdef", Status: model.IngestRunning, Total: 4, Succeeded: 1}})
	assert.Contains(t, msg, "01234567 running 1/4")
}

func TestFormatSnapshot(t *testing.T) {
	assert.Contains(t, FormatSnapshot("AAA", nil), "Not enough data")
	snap := &model.IndicatorSnapshot{
		LatestClose:   101.5,
		RSI:           null.FloatFrom(55.4),
		MACDCrossover: model.CrossoverBullish,
		Dist21:        null.FloatFrom(1.234),
	}
	msg := FormatSnapshot("AAA", snap)
	assert.Contains(t, msg, "Close: 101.50")
	assert.Contains(t, msg, "RSI(14): 55.4")
	assert.Contains(t, msg, "MACD: bullish")
	assert.Contains(t, msg, "EMA21: +1.23%")
	assert.NotContains(t, msg, "EMA44")
}
