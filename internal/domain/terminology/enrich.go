// Package terminology implements the read-time operations that span code
// systems: mapping enrichment of concept pages and point-to-point
// translation.
package terminology

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/hacknrollers/FHIR-fly/internal/domain/concept"
	"github.com/hacknrollers/FHIR-fly/internal/domain/conceptmap"
)

// Labels name the synthetic properties added by enrichment. Source labels a
// map in which the concept is the source (the value is the target concept);
// Target labels a map in which the concept is the target.
type Labels struct {
	Source string
	Target string
}

const (
	DefaultSourceLabel = "icd11Mapping"
	DefaultTargetLabel = "namasteMapping"
)

func DefaultLabels() Labels {
	return Labels{Source: DefaultSourceLabel, Target: DefaultTargetLabel}
}

// withDefaults fills empty labels.
func (l Labels) withDefaults() Labels {
	if l.Source == "" {
		l.Source = DefaultSourceLabel
	}
	if l.Target == "" {
		l.Target = DefaultTargetLabel
	}
	return l
}

// MapFinder is the storage contract enrichment depends on.
type MapFinder interface {
	FindByConceptIDs(ctx context.Context, ids []uuid.UUID) ([]*conceptmap.ConceptMap, error)
}

// Enricher appends mapping properties to pages of concepts. It implements
// concept.Enricher.
type Enricher struct {
	maps    MapFinder
	labels  Labels
	metrics *Metrics
}

// NewEnricher builds an Enricher. m may be nil.
func NewEnricher(maps MapFinder, labels Labels, m *Metrics) *Enricher {
	return &Enricher{maps: maps, labels: labels.withDefaults(), metrics: m}
}

// Enrich fetches every map touching the page in a single query and merges
// them in. An empty page is returned without querying.
func (e *Enricher) Enrich(ctx context.Context, concepts []*concept.Concept) ([]*concept.Concept, error) {
	if len(concepts) == 0 {
		return []*concept.Concept{}, nil
	}
	ids := make([]uuid.UUID, len(concepts))
	for i, c := range concepts {
		ids[i] = c.ID
	}
	maps, err := e.maps.FindByConceptIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out, added := enrich(concepts, maps, e.labels)
	e.metrics.observeEnrichment(added)
	return out, nil
}

// Enrich is the pure merge step: for each concept, one property per map in
// which it is the source, then one per map in which it is the target, each
// group ordered by (created_at, id). The result has the input's order and
// length; input concepts and their property slices are not modified.
func Enrich(concepts []*concept.Concept, maps []*conceptmap.ConceptMap, labels Labels) []*concept.Concept {
	out, _ := enrich(concepts, maps, labels.withDefaults())
	return out
}

func enrich(concepts []*concept.Concept, maps []*conceptmap.ConceptMap, labels Labels) ([]*concept.Concept, int) {
	ordered := make([]*conceptmap.ConceptMap, len(maps))
	copy(ordered, maps)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	asSource := make(map[uuid.UUID][]*conceptmap.ConceptMap)
	asTarget := make(map[uuid.UUID][]*conceptmap.ConceptMap)
	for _, m := range ordered {
		asSource[m.SourceCode] = append(asSource[m.SourceCode], m)
		asTarget[m.TargetCode] = append(asTarget[m.TargetCode], m)
	}

	added := 0
	out := make([]*concept.Concept, len(concepts))
	for i, c := range concepts {
		src, tgt := asSource[c.ID], asTarget[c.ID]
		if len(src)+len(tgt) == 0 {
			out[i] = c.WithProperties(c.Properties)
			continue
		}
		props := make([]concept.Property, 0, len(c.Properties)+len(src)+len(tgt))
		props = append(props, c.Properties...)
		for _, m := range src {
			props = append(props, mappingProperty(labels.Source, m.TargetCode, m.Equivalence))
		}
		for _, m := range tgt {
			props = append(props, mappingProperty(labels.Target, m.SourceCode, m.Equivalence))
		}
		added += len(src) + len(tgt)
		out[i] = c.WithProperties(props)
	}
	return out, added
}

func mappingProperty(label string, value uuid.UUID, equivalence *string) concept.Property {
	p := concept.Property{"code": label, "value": value.String(), "equivalence": nil}
	if equivalence != nil {
		p["equivalence"] = *equivalence
	}
	return p
}
