package concept

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hacknrollers/FHIR-fly/internal/platform/patch"
)

const TableName = "concept"

// Property is one free-form entry of a concept's property list.
type Property map[string]interface{}

// Concept maps to the concept table. (CodeSystemID, Code) is the natural
// lookup key but is not enforced unique.
type Concept struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	CodeSystemID uuid.UUID       `db:"codesystem_id" json:"codesystem_id"`
	Code         string          `db:"code" json:"code"`
	Display      *string         `db:"display" json:"display"`
	Definition   *string         `db:"definition" json:"definition"`
	Properties   []Property      `db:"properties" json:"properties"`
	Raw          json.RawMessage `db:"raw" json:"raw"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// WithProperties returns a shallow copy of c carrying props. The receiver is
// left untouched.
func (c *Concept) WithProperties(props []Property) *Concept {
	out := *c
	out.Properties = props
	return &out
}

type Patch struct {
	CodeSystemID patch.Field[uuid.UUID]       `json:"codesystem_id"`
	Code         patch.Field[string]          `json:"code"`
	Display      patch.Field[string]          `json:"display"`
	Definition   patch.Field[string]          `json:"definition"`
	Properties   patch.Field[[]Property]      `json:"properties"`
	Raw          patch.Field[json.RawMessage] `json:"raw"`
}

// Merge applies p to a copy of c. codesystem_id and code cannot be cleared.
func (p *Patch) Merge(c *Concept) (*Concept, error) {
	out := *c
	if err := p.CodeSystemID.ApplyRequired(&out.CodeSystemID, "codesystem_id"); err != nil {
		return nil, err
	}
	if err := p.Code.ApplyRequired(&out.Code, "code"); err != nil {
		return nil, err
	}
	p.Display.Apply(&out.Display)
	p.Definition.Apply(&out.Definition)
	p.Properties.ApplyValue(&out.Properties)
	p.Raw.ApplyValue(&out.Raw)
	return &out, nil
}

type Filter struct {
	CodeSystemID *uuid.UUID
	// Search matches code, display or definition case-insensitively.
	Search string
}

func encodeProperties(props []Property) ([]byte, error) {
	if props == nil {
		return nil, nil
	}
	return json.Marshal(props)
}

func decodeProperties(raw []byte) ([]Property, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var props []Property
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, err
	}
	return props, nil
}
