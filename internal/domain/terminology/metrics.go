package terminology

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts terminology operations. A nil *Metrics records nothing.
type Metrics struct {
	translations *prometheus.CounterVec
	mappings     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fhirfly",
			Name:      "translations_total",
			Help:      "Translation lookups by outcome.",
		}, []string{"outcome"}),
		mappings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fhirfly",
			Name:      "enrichment_mappings_total",
			Help:      "Mapping properties added to concepts at read time.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.translations, m.mappings)
	}
	return m
}

func (m *Metrics) observeEnrichment(added int) {
	if m == nil || added == 0 {
		return
	}
	m.mappings.Add(float64(added))
}

func (m *Metrics) observeTranslation(outcome string) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(outcome).Inc()
}
