package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all ingestion metrics.
type Metrics struct {
	ArchivesProcessed  prometheus.Counter
	DocumentsProcessed *prometheus.CounterVec
	EntityOutcomes     *prometheus.CounterVec
}

// New creates the ingestion metrics, registered with reg. A nil reg
// produces unregistered metrics, which is what tests want.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ArchivesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_processed_total",
			Help:      "Total number of source archives processed",
		}),
		DocumentsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Total number of documents by terminal status",
		}, []string{"status"}),
		EntityOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_outcomes_total",
			Help:      "Total number of persisted entity candidates by outcome",
		}, []string{"entity", "outcome"}),
	}
}
