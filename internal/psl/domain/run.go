package domain

import (
	"fmt"
	"time"
)

// Run is the ledger record of one successful update.
type Run struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	SourceURL    string    `json:"source_url"`
	StatusCode   int       `json:"status_code"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedBytes int64     `json:"fetched_bytes"`
	OutputPath   string    `json:"output_path"`
	Digest       string    `json:"digest"`
	Lines        int       `json:"lines"`
	Inserted     int       `json:"inserted"`
}

// Validate checks the fields the ledger keys and compares on.
func (r Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if r.FinishedAt.IsZero() {
		return fmt.Errorf("run finishedAt must be set")
	}
	if r.FinishedAt.Before(r.StartedAt) {
		return fmt.Errorf("run finishedAt %v is before startedAt %v", r.FinishedAt, r.StartedAt)
	}
	if r.Digest == "" {
		return fmt.Errorf("run digest must not be empty")
	}
	return nil
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
