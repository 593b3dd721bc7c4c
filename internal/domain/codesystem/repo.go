package codesystem

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists code systems. Lookups that match nothing return an
// error wrapping apperr.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, cs *CodeSystem) error
	GetByID(ctx context.Context, id uuid.UUID) (*CodeSystem, error)
	// GetByURL and GetByName return the oldest match; neither column is
	// unique.
	GetByURL(ctx context.Context, url string) (*CodeSystem, error)
	GetByName(ctx context.Context, name string) (*CodeSystem, error)
	Update(ctx context.Context, cs *CodeSystem) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*CodeSystem, int, error)
}
