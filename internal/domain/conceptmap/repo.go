package conceptmap

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *ConceptMap) error
	GetByID(ctx context.Context, id uuid.UUID) (*ConceptMap, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*ConceptMap, int, error)
	Update(ctx context.Context, m *ConceptMap) error
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByConceptIDs returns, in one query, every map whose source or target
	// concept is in ids, ordered by (created_at, id).
	FindByConceptIDs(ctx context.Context, ids []uuid.UUID) ([]*ConceptMap, error)
	// FindTranslation returns the oldest map for the source concept between
	// the two code systems.
	FindTranslation(ctx context.Context, sourceCS, targetCS, sourceCode uuid.UUID) (*ConceptMap, error)
}
