package codesystem

import (
	"context"
	"fmt"
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

// NewService builds the code system service. rec may be nil to disable the
// audit trail.
func NewService(repo Repository, rec *audit.Recorder) *Service {
	return &Service{repo: repo, audit: rec}
}

var validStatuses = map[string]bool{
	"draft": true, "active": true, "retired": true, "unknown": true,
}

var validContentValues = map[string]bool{
	"not-present": true, "example": true, "fragment": true, "complete": true, "supplement": true,
}

func validate(cs *CodeSystem) error {
	if cs.Status != nil && !validStatuses[*cs.Status] {
		return apperr.Validation("status", "invalid value %q", *cs.Status)
	}
	if cs.Content != nil && !validContentValues[*cs.Content] {
		return apperr.Validation("content", "invalid value %q", *cs.Content)
	}
	if err := apperr.CheckObject("meta", cs.Meta); err != nil {
		return err
	}
	return apperr.CheckObject("resource", cs.Resource)
}

func (s *Service) Create(ctx context.Context, cs *CodeSystem) error {
	if err := validate(cs); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, cs); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Insert(TableName, cs.ID, cs))
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CodeSystem, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByURL(ctx context.Context, url string) (*CodeSystem, error) {
	return s.repo.GetByURL(ctx, url)
}

func (s *Service) GetByName(ctx context.Context, name string) (*CodeSystem, error) {
	return s.repo.GetByName(ctx, name)
}

// Resolve finds a code system by exact url, falling back to exact name.
func (s *Service) Resolve(ctx context.Context, ident string) (*CodeSystem, error) {
	cs, err := s.repo.GetByURL(ctx, ident)
	if err == nil || !apperr.IsNotFound(err) {
		return cs, err
	}
	cs, err = s.repo.GetByName(ctx, ident)
	if apperr.IsNotFound(err) {
		return nil, apperr.NotFound("codesystem '%s'", ident)
	}
	return cs, err
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*CodeSystem, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, p *Patch) (*CodeSystem, error) {
	old, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cs := p.Merge(old)
	if err := validate(cs); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, cs); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Update(TableName, cs.ID, old, cs))
	return cs, nil
}

// Delete removes a code system and returns it as it was. Code systems still
// referenced by concepts or maps cannot be deleted.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*CodeSystem, error) {
	old, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, apperr.Validation("id", "codesystem %s is still referenced", id)
		}
		return nil, fmt.Errorf("delete codesystem %s: %w", id, err)
	}
	s.audit.Record(ctx, audit.Delete(TableName, id, old))
	return old, nil
}
