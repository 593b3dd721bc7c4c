package concept

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/audit"
	"github.com/hacknrollers/FHIR-fly/internal/platform/patch"
)

// -- Mocks --

type mockRepo struct {
	store     map[uuid.UUID]*Concept
	order     []uuid.UUID
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Concept)}
}

func (m *mockRepo) Create(_ context.Context, c *Concept) error {
	if m.createErr != nil {
		return m.createErr
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.store[c.ID] = &cp
	m.order = append(m.order, c.ID)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Concept, error) {
	c, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("concept %s", id)
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) GetByCode(_ context.Context, csID uuid.UUID, code string) (*Concept, error) {
	for _, id := range m.order {
		if c, ok := m.store[id]; ok && c.CodeSystemID == csID && c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("concept %s", code)
}

func (m *mockRepo) all(match func(*Concept) bool) []*Concept {
	var out []*Concept
	for _, id := range m.order {
		if c, ok := m.store[id]; ok && match(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Concept, int, error) {
	all := m.all(func(c *Concept) bool { return f.CodeSystemID == nil || c.CodeSystemID == *f.CodeSystemID })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRepo) ListByCodeSystem(_ context.Context, csID uuid.UUID) ([]*Concept, error) {
	return m.all(func(c *Concept) bool { return c.CodeSystemID == csID }), nil
}

func (m *mockRepo) Update(_ context.Context, c *Concept) error {
	if _, ok := m.store[c.ID]; !ok {
		return apperr.NotFound("concept %s", c.ID)
	}
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return apperr.NotFound("concept %s", id)
	}
	delete(m.store, id)
	return nil
}

// tagEnricher appends a marker property to every concept it sees.
type tagEnricher struct {
	calls int
	err   error
}

func (e *tagEnricher) Enrich(_ context.Context, items []*Concept) ([]*Concept, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([]*Concept, len(items))
	for i, c := range items {
		props := append(append([]Property{}, c.Properties...), Property{"code": "tag"})
		out[i] = c.WithProperties(props)
	}
	return out, nil
}

type memSink struct{ entries []audit.Entry }

func (s *memSink) Append(_ context.Context, e *audit.Entry) error {
	s.entries = append(s.entries, *e)
	return nil
}

func newTestService() (*Service, *mockRepo, *tagEnricher, *memSink) {
	repo := newMockRepo()
	sink := &memSink{}
	svc := NewService(repo, audit.NewRecorder(sink, zerolog.Nop(), time.Second, nil))
	enr := &tagEnricher{}
	svc.SetEnricher(enr)
	return svc, repo, enr, sink
}

// -- Tests --

func TestService_Create_Validation(t *testing.T) {
	svc, _, _, sink := newTestService()
	ctx := context.Background()

	if err := svc.Create(ctx, &Concept{Code: "X"}); !apperr.IsValidation(err) {
		t.Errorf("missing codesystem_id: expected validation error, got %v", err)
	}
	if err := svc.Create(ctx, &Concept{CodeSystemID: uuid.New(), Code: "  "}); !apperr.IsValidation(err) {
		t.Errorf("blank code: expected validation error, got %v", err)
	}
	if len(sink.entries) != 0 {
		t.Error("rejected creates must not be audited")
	}
}

func TestService_Create_UnknownCodeSystem(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.createErr = errors.New("insert concept: FOREIGN KEY constraint failed")
	err := svc.Create(context.Background(), &Concept{CodeSystemID: uuid.New(), Code: "A"})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_ReadsAreEnriched(t *testing.T) {
	svc, _, enr, _ := newTestService()
	ctx := context.Background()
	csID := uuid.New()
	c := &Concept{CodeSystemID: csID, Code: "SR11", Properties: []Property{{"code": "stored"}}}
	if err := svc.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Properties) != 2 || got.Properties[1]["code"] != "tag" {
		t.Errorf("Get not enriched: %v", got.Properties)
	}
	if _, err := svc.GetByCode(ctx, csID, "SR11"); err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	items, total, err := svc.List(ctx, Filter{}, 10, 0)
	if err != nil || total != 1 || len(items[0].Properties) != 2 {
		t.Fatalf("List: %v %d %v", items, total, err)
	}
	if _, err := svc.ListByCodeSystem(ctx, csID); err != nil {
		t.Fatalf("ListByCodeSystem: %v", err)
	}
	if enr.calls != 4 {
		t.Errorf("expected 4 enrichment calls, got %d", enr.calls)
	}
	if len(c.Properties) != 1 {
		t.Errorf("caller's concept was modified: %v", c.Properties)
	}
}

func TestService_EnrichmentErrorPropagates(t *testing.T) {
	svc, _, enr, _ := newTestService()
	ctx := context.Background()
	c := &Concept{CodeSystemID: uuid.New(), Code: "A"}
	_ = svc.Create(ctx, c)
	enr.err = errors.New("db down")
	if _, err := svc.Get(ctx, c.ID); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_Update(t *testing.T) {
	svc, _, _, sink := newTestService()
	ctx := context.Background()
	c := &Concept{CodeSystemID: uuid.New(), Code: "A", Display: strPtr("Alpha")}
	_ = svc.Create(ctx, c)

	got, err := svc.Update(ctx, c.ID, &Patch{Definition: patch.Of("first letter")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Code != "A" || *got.Display != "Alpha" || *got.Definition != "first letter" {
		t.Errorf("unexpected result %+v", got)
	}
	if last := sink.entries[len(sink.entries)-1]; last.Operation != audit.OpUpdate {
		t.Errorf("expected UPDATE audit, got %s", last.Operation)
	}

	if _, err := svc.Update(ctx, c.ID, &Patch{Code: patch.Null[string]()}); !apperr.IsValidation(err) {
		t.Errorf("clearing code: expected validation error, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	c := &Concept{CodeSystemID: uuid.New(), Code: "A"}
	_ = svc.Create(ctx, c)

	old, err := svc.Delete(ctx, c.ID)
	if err != nil || old.ID != c.ID {
		t.Fatalf("Delete: %v %v", old, err)
	}
	if _, err := svc.Delete(ctx, c.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func strPtr(s string) *string { return &s }
