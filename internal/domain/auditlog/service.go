package auditlog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/audit"
)

// recordHistoryLimit caps the per-record history endpoint.
const recordHistoryLimit = 1000

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*audit.Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*audit.Entry, int, error) {
	if f.Operation != "" {
		f.Operation = audit.Operation(strings.ToUpper(string(f.Operation)))
		if !f.Operation.Valid() {
			return nil, 0, apperr.Validation("operation", "must be one of INSERT, UPDATE, DELETE")
		}
	}
	return s.repo.List(ctx, f, limit, offset)
}

// History returns the trail of one record, newest first.
func (s *Service) History(ctx context.Context, table string, recordID uuid.UUID) ([]*audit.Entry, error) {
	items, _, err := s.repo.List(ctx, Filter{TableName: table, RecordID: &recordID}, recordHistoryLimit, 0)
	return items, err
}
