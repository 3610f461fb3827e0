package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/cache"
	"MarketPulse/internal/collector"
	"MarketPulse/internal/ingest"
	"MarketPulse/internal/model"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fixture struct {
	sched  *Scheduler
	runner *ingest.Runner
	notes  *fakeNotifier
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	universe := []model.UniverseEntry{
		{Symbol: "AAA", Sector: "Tech"},
		{Symbol: "BBB", Sector: "Energy"},
	}
	data, err := json.Marshal(universe)
	require.NoError(t, err)
	universePath := filepath.Join(dir, "universe.json")
	require.NoError(t, os.WriteFile(universePath, data, 0o644))

	ohlcv := filepath.Join(dir, "ohlcv")
	col := collector.NewCollector(collector.NewCSVSource(ohlcv), cache.NewMemoryStore(),
		collector.Config{UniversePath: universePath, TTL: time.Minute})

	notes := &fakeNotifier{}
	f := &fixture{notes: notes, dir: dir}
	f.runner = ingest.NewRunner(ingest.Config{
		UniversePath: universePath,
		OutDir:       ohlcv,
		LogsDir:      filepath.Join(dir, "logs"),
	}, &collector.MockFetcher{Price: 100}, nil, ingest.WithOnFinish(func(j model.IngestJob) {
		f.sched.NotifyIngest(j)
	}))
	t.Cleanup(f.runner.Close)

	f.sched = NewScheduler(context.Background(), f.runner, col, notes, zerolog.Nop())
	return f
}

func TestRegisterAll(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sched.RegisterAll("0 30 22 * * 1-5", "0 * * * * *"))
	assert.Len(t, f.sched.Cron.Entries(), 2)

	f = newFixture(t)
	require.NoError(t, f.sched.RegisterAll("off", ""))
	assert.Empty(t, f.sched.Cron.Entries())

	f = newFixture(t)
	assert.Error(t, f.sched.RegisterAll("not a cron", "off"))
}

func TestIngestThenCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.sched.RunIngestNow()
	require.NoError(t, err)
	f.runner.Wait()

	msgs := f.notes.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], job.ID)
	assert.Contains(t, msgs[0], "Saved: 2")

	reply := f.sched.HandleCommand(ctx, "/heatmap 1w")
	assert.Contains(t, reply, "Tech")
	assert.Contains(t, reply, "Energy")
	assert.Contains(t, reply, "1w")

	reply = f.sched.HandleCommand(ctx, "/analysis aaa")
	assert.Contains(t, reply, "<b>AAA</b>")
	assert.Contains(t, reply, "RSI(14)")

	assert.Contains(t, f.sched.HandleCommand(ctx, "/analysis ZZZ"), "No data for ZZZ")
	assert.Contains(t, f.sched.HandleCommand(ctx, "/heatmap 2w"), "Invalid duration")
	assert.Contains(t, f.sched.HandleCommand(ctx, "/analysis"), "Usage")
	assert.Contains(t, f.sched.HandleCommand(ctx, "hello"), "Available commands")
}

func TestHeatmapBeforeIngest(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "No data available. Run ingest first.", f.sched.HandleCommand(context.Background(), "/heatmap"))
}

func TestIngestCommand(t *testing.T) {
	f := newFixture(t)
	reply := f.sched.HandleCommand(context.Background(), "/ingest")
	assert.True(t, strings.HasPrefix(reply, "⏳ Ingest started"), reply)
	f.runner.Wait()
}

func TestIngestTaskReportsStartFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(filepath.Join(f.dir, "universe.json")))
	f.sched.ingestTask()

	msgs := f.notes.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "failed to start")
}

func TestSweepTask(t *testing.T) {
	f := newFixture(t)
	_, err := f.sched.RunIngestNow()
	require.NoError(t, err)
	f.runner.Wait()

	_ = f.sched.HandleCommand(context.Background(), "/heatmap")
	f.sched.Now = func() time.Time { return time.Now().Add(time.Hour) }
	f.sched.sweepTask()

	n, err := f.sched.Collector.EvictExpired(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n, fmt.Sprintf("sweep left %d entries", n))
}

func TestNilNotifier(t *testing.T) {
	f := newFixture(t)
	f.sched.Notifier = nil
	assert.NotPanics(t, func() { f.sched.trySend("x") })
}
