package concept

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/audit"
	"github.com/hacknrollers/FHIR-fly/internal/platform/db"
)

// Enricher decorates a page of concepts for presentation. Implementations
// must return a slice of the same length and order and must not modify the
// concepts they are given.
type Enricher interface {
	Enrich(ctx context.Context, concepts []*Concept) ([]*Concept, error)
}

type Service struct {
	repo     Repository
	audit    *audit.Recorder
	enricher Enricher
}

func NewService(repo Repository, rec *audit.Recorder) *Service {
	return &Service{repo: repo, audit: rec}
}

// SetEnricher installs the read-time decorator applied to every concept the
// service returns from a read.
func (s *Service) SetEnricher(e Enricher) { s.enricher = e }

func (s *Service) enrich(ctx context.Context, items []*Concept) ([]*Concept, error) {
	if s.enricher == nil {
		return items, nil
	}
	return s.enricher.Enrich(ctx, items)
}

func (s *Service) enrichOne(ctx context.Context, c *Concept) (*Concept, error) {
	out, err := s.enrich(ctx, []*Concept{c})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func validate(c *Concept) error {
	if c.CodeSystemID == uuid.Nil {
		return apperr.Validation("codesystem_id", "is required")
	}
	if strings.TrimSpace(c.Code) == "" {
		return apperr.Validation("code", "is required")
	}
	return apperr.CheckObject("raw", c.Raw)
}

func mapWriteErr(err error, c *Concept) error {
	if db.IsForeignKeyViolation(err) {
		return apperr.Validation("codesystem_id", "codesystem %s does not exist", c.CodeSystemID)
	}
	return err
}

func (s *Service) Create(ctx context.Context, c *Concept) error {
	if err := validate(c); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return mapWriteErr(err, c)
	}
	s.audit.Record(ctx, audit.Insert(TableName, c.ID, c))
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Concept, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.enrichOne(ctx, c)
}

func (s *Service) GetByCode(ctx context.Context, codeSystemID uuid.UUID, code string) (*Concept, error) {
	c, err := s.repo.GetByCode(ctx, codeSystemID, code)
	if err != nil {
		return nil, err
	}
	return s.enrichOne(ctx, c)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Concept, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err = s.enrich(ctx, items)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) ListByCodeSystem(ctx context.Context, codeSystemID uuid.UUID) ([]*Concept, error) {
	items, err := s.repo.ListByCodeSystem(ctx, codeSystemID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, items)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, p *Patch) (*Concept, error) {
	old, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := p.Merge(old)
	if err != nil {
		return nil, err
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, mapWriteErr(err, c)
	}
	s.audit.Record(ctx, audit.Update(TableName, c.ID, old, c))
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*Concept, error) {
	old, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Delete(TableName, id, old))
	return old, nil
}
