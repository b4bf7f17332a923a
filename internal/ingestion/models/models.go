package models

import (
	"time"

	"github.com/google/uuid"

	"idgov/pkg/domain"
)

// RunStatus is the outcome of one import.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// ImportRun is the provenance record of one partition upload. Failed runs are
// recorded too so operators can see rejected files.
type ImportRun struct {
	ID            uuid.UUID         `json:"id"`
	SourceSystem  domain.SystemName `json:"sourceSystem"`
	Filename      string            `json:"filename"`
	Encoding      string            `json:"encoding,omitempty"`
	RowsRead      int               `json:"rowsRead"`
	RowsImported  int               `json:"rowsImported"`
	Warnings      []string          `json:"warnings"`
	Status        RunStatus         `json:"status"`
	Error         string            `json:"error,omitempty"`
	Generation    int64             `json:"generation,omitempty"`
	UploaderAgent string            `json:"uploaderAgent,omitempty"`
	ClientIP      string            `json:"clientIp,omitempty"`
	StartedAt     time.Time         `json:"startedAt"`
	FinishedAt    time.Time         `json:"finishedAt"`
}

// Succeeded reports whether the partition was replaced.
func (r *ImportRun) Succeeded() bool {
	return r.Status == RunStatusSuccess
}

// Duration is the wall time the import took.
func (r *ImportRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Source describes where an upload came from.
type Source struct {
	Filename string
	// UserAgent is the raw client header; the service summarizes it.
	UserAgent string
	ClientIP  string
}
