package concept

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Concept) error
	GetByID(ctx context.Context, id uuid.UUID) (*Concept, error)
	// GetByCode returns the oldest concept with the code in the code system.
	GetByCode(ctx context.Context, codeSystemID uuid.UUID, code string) (*Concept, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Concept, int, error)
	ListByCodeSystem(ctx context.Context, codeSystemID uuid.UUID) ([]*Concept, error)
	Update(ctx context.Context, c *Concept) error
	Delete(ctx context.Context, id uuid.UUID) error
}
