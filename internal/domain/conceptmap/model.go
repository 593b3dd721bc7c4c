package conceptmap

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hacknrollers/FHIR-fly/internal/platform/patch"
)

const TableName = "conceptmap"

// ConceptMap links a concept in a source code system to a concept in a target
// code system. SourceCode and TargetCode are concept ids, not code strings.
type ConceptMap struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	SourceCodeSystemID uuid.UUID       `db:"source_codesystem_id" json:"source_codesystem_id"`
	TargetCodeSystemID uuid.UUID       `db:"target_codesystem_id" json:"target_codesystem_id"`
	SourceCode         uuid.UUID       `db:"source_code" json:"source_code"`
	TargetCode         uuid.UUID       `db:"target_code" json:"target_code"`
	Equivalence        *string         `db:"equivalence" json:"equivalence"`
	Metadata           json.RawMessage `db:"metadata" json:"conceptmap_metadata"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

type Patch struct {
	SourceCodeSystemID patch.Field[uuid.UUID]       `json:"source_codesystem_id"`
	TargetCodeSystemID patch.Field[uuid.UUID]       `json:"target_codesystem_id"`
	SourceCode         patch.Field[uuid.UUID]       `json:"source_code"`
	TargetCode         patch.Field[uuid.UUID]       `json:"target_code"`
	Equivalence        patch.Field[string]          `json:"equivalence"`
	Metadata           patch.Field[json.RawMessage] `json:"conceptmap_metadata"`
}

func (p *Patch) Merge(m *ConceptMap) (*ConceptMap, error) {
	out := *m
	for _, f := range []struct {
		field patch.Field[uuid.UUID]
		dst   *uuid.UUID
		name  string
	}{
		{p.SourceCodeSystemID, &out.SourceCodeSystemID, "source_codesystem_id"},
		{p.TargetCodeSystemID, &out.TargetCodeSystemID, "target_codesystem_id"},
		{p.SourceCode, &out.SourceCode, "source_code"},
		{p.TargetCode, &out.TargetCode, "target_code"},
	} {
		if err := f.field.ApplyRequired(f.dst, f.name); err != nil {
			return nil, err
		}
	}
	p.Equivalence.Apply(&out.Equivalence)
	p.Metadata.ApplyValue(&out.Metadata)
	return &out, nil
}

type Filter struct {
	SourceCodeSystemID *uuid.UUID
	TargetCodeSystemID *uuid.UUID
	// Search matches equivalence case-insensitively.
	Search string
}
