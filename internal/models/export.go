package models

import (
	"time"

	"github.com/google/uuid"
)

type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportSucceeded ExportStatus = "succeeded"
	ExportFailed    ExportStatus = "failed"
)

// Export is the audit record of one export request.
type Export struct {
	ID                uuid.UUID    `json:"id"`
	DiagramID         *uuid.UUID   `json:"diagram_id,omitempty"`
	ProjectName       string       `json:"project_name"`
	Status            ExportStatus `json:"status"`
	ClassCount        int          `json:"class_count"`
	RelationshipCount int          `json:"relationship_count"`
	WarningCount      int          `json:"warning_count"`
	ArchiveSize       int64        `json:"archive_size"`
	MirrorKey         *string      `json:"mirror_key,omitempty"`
	ErrorMessage      *string      `json:"error_message,omitempty"`
	StartedAt         time.Time    `json:"started_at"`
	FinishedAt        *time.Time   `json:"finished_at,omitempty"`
}

func (e *Export) Prepare() {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = ExportPending
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now().UTC()
	}
}

// ExportOutcome is what a finished export reports back to its record.
type ExportOutcome struct {
	Status            ExportStatus
	ClassCount        int
	RelationshipCount int
	WarningCount      int
	ArchiveSize       int64
	MirrorKey         string
	Err               error
}
