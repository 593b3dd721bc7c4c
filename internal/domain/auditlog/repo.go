// Package auditlog stores the audit trail and serves it read-only over HTTP.
package auditlog

import (
	"context"

	"github.com/google/uuid"

	"github.com/hacknrollers/FHIR-fly/internal/platform/audit"
)

type Filter struct {
	TableName string
	Operation audit.Operation
	RecordID  *uuid.UUID
	UserID    string
}

// Repository is append-only: entries are never updated or deleted.
type Repository interface {
	audit.Sink
	GetByID(ctx context.Context, id uuid.UUID) (*audit.Entry, error)
	// List returns entries newest first.
	List(ctx context.Context, f Filter, limit, offset int) ([]*audit.Entry, int, error)
}
