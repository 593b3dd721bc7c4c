package conceptmap

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/audit"
	"github.com/hacknrollers/FHIR-fly/internal/platform/db"
)

type Service struct {
	repo  Repository
	audit *audit.Recorder
}

func NewService(repo Repository, rec *audit.Recorder) *Service {
	return &Service{repo: repo, audit: rec}
}

func validate(m *ConceptMap) error {
	for _, f := range []struct {
		v    uuid.UUID
		name string
	}{
		{m.SourceCodeSystemID, "source_codesystem_id"},
		{m.TargetCodeSystemID, "target_codesystem_id"},
		{m.SourceCode, "source_code"},
		{m.TargetCode, "target_code"},
	} {
		if f.v == uuid.Nil {
			return apperr.Validation(f.name, "is required")
		}
	}
	return apperr.CheckObject("conceptmap_metadata", m.Metadata)
}

func mapWriteErr(err error) error {
	if db.IsForeignKeyViolation(err) {
		return apperr.Validation("codesystem_id", "source or target codesystem does not exist")
	}
	return err
}

func (s *Service) Create(ctx context.Context, m *ConceptMap) error {
	if err := validate(m); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return mapWriteErr(err)
	}
	s.audit.Record(ctx, audit.Insert(TableName, m.ID, m))
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ConceptMap, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*ConceptMap, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, p *Patch) (*ConceptMap, error) {
	old, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := p.Merge(old)
	if err != nil {
		return nil, err
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, mapWriteErr(err)
	}
	s.audit.Record(ctx, audit.Update(TableName, m.ID, old, m))
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*ConceptMap, error) {
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
