package model

import "time"

// IngestStatus is the lifecycle state of an ingest job.
type IngestStatus string

const (
	IngestRunning  IngestStatus = "running"
	IngestFinished IngestStatus = "finished"
	IngestFailed   IngestStatus = "failed"
)

// IngestProgress is the progress document polled by clients.
type IngestProgress struct {
	Total   int          `json:"total"`
	Done    int          `json:"done"`
	Current *string      `json:"current"`
	Status  IngestStatus `json:"status"`
}

// IngestJob describes one ingest run.
type IngestJob struct {
	ID           string       `json:"job_id"`
	LogPath      string       `json:"log_path"`
	ProgressPath string       `json:"progress_path"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at,omitzero"`
	Total        int          `json:"total"`
	Succeeded    int          `json:"succeeded"`
	Failed       int          `json:"failed"`
	Status       IngestStatus `json:"status"`
}
