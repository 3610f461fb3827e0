package recorder

import "MarketPulse/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordIngestJob(_ *model.IngestJob) error          { return nil }
func (n *NoopRecorder) RecordSymbolResult(_ *SymbolResult) error          { return nil }
func (n *NoopRecorder) RecentIngestJobs(_ int) ([]model.IngestJob, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                      { return nil }
