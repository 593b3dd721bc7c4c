package codesystem

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hacknrollers/FHIR-fly/internal/platform/fhir"
	"github.com/hacknrollers/FHIR-fly/internal/platform/patch"
)

// TableName is the audit table name for code systems.
const TableName = "codesystem"

// CodeSystem maps to the codesystem table.
type CodeSystem struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ExternalID *string         `db:"external_id" json:"external_id"`
	URL        *string         `db:"url" json:"url"`
	Version    *string         `db:"version" json:"version"`
	Name       *string         `db:"name" json:"name"`
	Title      *string         `db:"title" json:"title"`
	Status     *string         `db:"status" json:"status"`
	Publisher  *string         `db:"publisher" json:"publisher"`
	Content    *string         `db:"content" json:"content"`
	Meta       json.RawMessage `db:"meta" json:"meta"`
	Resource   json.RawMessage `db:"resource" json:"resource"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// Patch is the body of an update; only fields present in the request are
// applied.
type Patch struct {
	ExternalID patch.Field[string]          `json:"external_id"`
	URL        patch.Field[string]          `json:"url"`
	Version    patch.Field[string]          `json:"version"`
	Name       patch.Field[string]          `json:"name"`
	Title      patch.Field[string]          `json:"title"`
	Status     patch.Field[string]          `json:"status"`
	Publisher  patch.Field[string]          `json:"publisher"`
	Content    patch.Field[string]          `json:"content"`
	Meta       patch.Field[json.RawMessage] `json:"meta"`
	Resource   patch.Field[json.RawMessage] `json:"resource"`
}

// Merge applies p to a copy of cs.
func (p *Patch) Merge(cs *CodeSystem) *CodeSystem {
	out := *cs
	p.ExternalID.Apply(&out.ExternalID)
	p.URL.Apply(&out.URL)
	p.Version.Apply(&out.Version)
	p.Name.Apply(&out.Name)
	p.Title.Apply(&out.Title)
	p.Status.Apply(&out.Status)
	p.Publisher.Apply(&out.Publisher)
	p.Content.Apply(&out.Content)
	p.Meta.ApplyValue(&out.Meta)
	p.Resource.ApplyValue(&out.Resource)
	return &out
}

// Filter narrows a List call.
type Filter struct {
	// Search matches name, title or url case-insensitively.
	Search string
}

// ToFHIR renders the code system as a FHIR CodeSystem resource. A stored
// resource document, when present, is used as the base.
func (cs *CodeSystem) ToFHIR() fhir.Object {
	result := fhir.Object{}
	if len(cs.Resource) > 0 {
		_ = json.Unmarshal(cs.Resource, &result)
	}
	result["resourceType"] = "CodeSystem"
	result["id"] = cs.ID.String()
	updated := cs.UpdatedAt
	result["meta"] = fhir.Meta{LastUpdated: &updated}

	set := func(key string, v *string) {
		if v != nil {
			result[key] = *v
		}
	}
	set("url", cs.URL)
	set("version", cs.Version)
	set("name", cs.Name)
	set("title", cs.Title)
	set("status", cs.Status)
	set("publisher", cs.Publisher)
	set("content", cs.Content)
	if cs.ExternalID != nil {
		result["identifier"] = []map[string]string{{"value": *cs.ExternalID}}
	}
	return result
}
