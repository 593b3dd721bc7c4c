package client

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CodeSystem is a terminology code system as served by the API.
type CodeSystem struct {
	ID         uuid.UUID       `json:"id"`
	ExternalID *string         `json:"external_id,omitempty"`
	URL        *string         `json:"url,omitempty"`
	Version    *string         `json:"version,omitempty"`
	Name       *string         `json:"name,omitempty"`
	Title      *string         `json:"title,omitempty"`
	Status     *string         `json:"status,omitempty"`
	Publisher  *string         `json:"publisher,omitempty"`
	Content    *string         `json:"content,omitempty"`
	Meta       json.RawMessage `json:"meta,omitempty"`
	Resource   json.RawMessage `json:"resource,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Property is one entry of a concept's property list. Reads add mapping
// entries shaped {"code": label, "value": concept id, "equivalence": ...}.
type Property map[string]interface{}

type Concept struct {
	ID           uuid.UUID       `json:"id"`
	CodeSystemID uuid.UUID       `json:"codesystem_id"`
	Code         string          `json:"code"`
	Display      *string         `json:"display,omitempty"`
	Definition   *string         `json:"definition,omitempty"`
	Properties   []Property      `json:"properties,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ConceptMap links a source concept to a target concept. SourceCode and
// TargetCode are concept ids.
type ConceptMap struct {
	ID                 uuid.UUID       `json:"id"`
	SourceCodeSystemID uuid.UUID       `json:"source_codesystem_id"`
	TargetCodeSystemID uuid.UUID       `json:"target_codesystem_id"`
	SourceCode         uuid.UUID       `json:"source_code"`
	TargetCode         uuid.UUID       `json:"target_code"`
	Equivalence        *string         `json:"equivalence,omitempty"`
	Metadata           json.RawMessage `json:"conceptmap_metadata,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TranslationRequest names the code systems by url or name; SourceCode is
// the id of the source concept.
type TranslationRequest struct {
	SourceCodeSystem string `json:"source_codesystem"`
	TargetCodeSystem string `json:"target_codesystem"`
	SourceCode       string `json:"source_code"`
}

type TranslationResponse struct {
	TargetCode  *uuid.UUID `json:"target_code"`
	Equivalence *string    `json:"equivalence"`
	Found       bool       `json:"found"`
}
