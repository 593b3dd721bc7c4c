package terminology

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hacknrollers/FHIR-fly/internal/domain/codesystem"
	"github.com/hacknrollers/FHIR-fly/internal/domain/conceptmap"
	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
)

type TranslationRequest struct {
	// SourceCodeSystem and TargetCodeSystem are code system urls or names.
	SourceCodeSystem string `json:"source_codesystem"`
	TargetCodeSystem string `json:"target_codesystem"`
	// SourceCode is the id of the source concept.
	SourceCode string `json:"source_code"`
}

type TranslationResponse struct {
	TargetCode  *uuid.UUID `json:"target_code"`
	Equivalence *string    `json:"equivalence"`
	Found       bool       `json:"found"`
}

// CodeSystemResolver finds a code system by url, falling back to name.
type CodeSystemResolver interface {
	Resolve(ctx context.Context, ident string) (*codesystem.CodeSystem, error)
}

type TranslationFinder interface {
	FindTranslation(ctx context.Context, sourceCS, targetCS, sourceCode uuid.UUID) (*conceptmap.ConceptMap, error)
}

const (
	outcomeFound     = "found"
	outcomeNotFound  = "not_found"
	outcomeBadCode   = "invalid_code"
	outcomeNoCodeSys = "unknown_codesystem"
)

// Translator answers point-to-point translation requests. It never writes.
type Translator struct {
	codeSystems CodeSystemResolver
	maps        TranslationFinder
	metrics     *Metrics
}

func NewTranslator(cs CodeSystemResolver, maps TranslationFinder, m *Metrics) *Translator {
	return &Translator{codeSystems: cs, maps: maps, metrics: m}
}

// Translate resolves both code systems, then looks up the map for the
// source concept. An unknown code system is a NotFound error; a source code
// that is not a concept id, or has no map, is reported as Found=false.
func (t *Translator) Translate(ctx context.Context, req TranslationRequest) (*TranslationResponse, error) {
	if strings.TrimSpace(req.SourceCodeSystem) == "" {
		return nil, apperr.Validation("source_codesystem", "is required")
	}
	if strings.TrimSpace(req.TargetCodeSystem) == "" {
		return nil, apperr.Validation("target_codesystem", "is required")
	}

	src, err := t.resolve(ctx, "source", req.SourceCodeSystem)
	if err != nil {
		return nil, err
	}
	tgt, err := t.resolve(ctx, "target", req.TargetCodeSystem)
	if err != nil {
		return nil, err
	}

	code, err := uuid.Parse(strings.TrimSpace(req.SourceCode))
	if err != nil {
		t.metrics.observeTranslation(outcomeBadCode)
		return &TranslationResponse{}, nil
	}

	m, err := t.maps.FindTranslation(ctx, src.ID, tgt.ID, code)
	if apperr.IsNotFound(err) {
		t.metrics.observeTranslation(outcomeNotFound)
		return &TranslationResponse{}, nil
	}
	if err != nil {
		return nil, err
	}
	t.metrics.observeTranslation(outcomeFound)
	target := m.TargetCode
	return &TranslationResponse{TargetCode: &target, Equivalence: m.Equivalence, Found: true}, nil
}

func (t *Translator) resolve(ctx context.Context, role, ident string) (*codesystem.CodeSystem, error) {
	cs, err := t.codeSystems.Resolve(ctx, ident)
	if apperr.IsNotFound(err) {
		t.metrics.observeTranslation(outcomeNoCodeSys)
		return nil, apperr.NotFound("%s codesystem %q", role, ident)
	}
	return cs, err
}
