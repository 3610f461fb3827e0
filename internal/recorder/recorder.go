package recorder

import (
	"time"

	"MarketPulse/internal/model"
)

// SymbolResult records the outcome of downloading one symbol in an ingest job.
type SymbolResult struct {
	JobID  string
	Symbol string
	Rows   int
	Err    string // empty on success
	At     time.Time
}

// Recorder persists the ingest history for later inspection.
type Recorder interface {
	RecordIngestJob(job *model.IngestJob) error
	RecordSymbolResult(res *SymbolResult) error
	RecentIngestJobs(limit int) ([]model.IngestJob, error)
	Close() error
}
