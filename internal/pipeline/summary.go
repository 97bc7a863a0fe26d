package pipeline

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chartvault/chartvault/internal/repository"
)

// OutcomeCounts tallies what happened to the candidates of one entity type.
type OutcomeCounts struct {
	Inserted  int `json:"inserted"`
	Duplicate int `json:"duplicate"`
	Skipped   int `json:"skipped"`
}

// RunSummary aggregates per-entity outcomes across one ingestion run.
type RunSummary struct {
	RunID              string
	Archives           int
	DocumentsProcessed int
	DocumentsRejected  int
	DocumentsFailed    int
	Entities           map[string]*OutcomeCounts
}

func NewRunSummary() *RunSummary {
	return &RunSummary{
		RunID:    uuid.NewString(),
		Entities: map[string]*OutcomeCounts{},
	}
}

// Record tallies one persistence outcome under the given entity type.
func (s *RunSummary) Record(entity string, outcome repository.Outcome) {
	counts, ok := s.Entities[entity]
	if !ok {
		counts = &OutcomeCounts{}
		s.Entities[entity] = counts
	}
	switch outcome {
	case repository.OutcomeInserted:
		counts.Inserted++
	case repository.OutcomeDuplicate:
		counts.Duplicate++
	case repository.OutcomeSkipped:
		counts.Skipped++
	}
}

// Log emits the run summary at info level, one line per entity type so
// the operator can scan inserted vs duplicate vs skipped at a glance.
func (s *RunSummary) Log(log zerolog.Logger) {
	log.Info().
		Str("run_id", s.RunID).
		Int("archives", s.Archives).
		Int("documents_processed", s.DocumentsProcessed).
		Int("documents_rejected", s.DocumentsRejected).
		Int("documents_failed", s.DocumentsFailed).
		Msg("ingestion run finished")

	entities := make([]string, 0, len(s.Entities))
	for entity := range s.Entities {
		entities = append(entities, entity)
	}
	sort.Strings(entities)
	for _, entity := range entities {
		counts := s.Entities[entity]
		log.Info().
			Str("run_id", s.RunID).
			Str("entity", entity).
			Int("inserted", counts.Inserted).
			Int("duplicate", counts.Duplicate).
			Int("skipped", counts.Skipped).
			Msg("entity counts")
	}
}
