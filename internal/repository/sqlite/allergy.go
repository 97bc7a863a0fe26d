package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chartvault/chartvault/internal/model"
	"github.com/chartvault/chartvault/internal/repository"
)

type allergyRepository struct {
	db sqlx.ExtContext
}

func NewAllergyRepository(db sqlx.ExtContext) repository.AllergyRepository {
	return &allergyRepository{db: db}
}

func (r *allergyRepository) Insert(ctx context.Context, allergy *model.Allergy) (repository.Outcome, error) {
	affected, err := rowsAffected(ctx, r.db,
		`INSERT INTO allergy (
			patient_id, encounter_id, provider_id, substance, substance_code,
			substance_code_system, substance_code_display, reaction,
			reaction_code, reaction_code_system, severity, criticality,
			status, onset_date, noted_date, source_allergy_id, notes,
			data_source_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		allergy.PatientID, allergy.EncounterID, allergy.ProviderID,
		allergy.Substance, allergy.SubstanceCode, allergy.SubstanceCodeSystem,
		allergy.SubstanceCodeDisplay, allergy.Reaction, allergy.ReactionCode,
		allergy.ReactionCodeSystem, allergy.Severity, allergy.Criticality,
		allergy.Status, allergy.OnsetDate, allergy.NotedDate,
		allergy.SourceAllergyID, allergy.Notes, allergy.DataSourceID,
	)
	if err != nil {
		return repository.OutcomeSkipped, fmt.Errorf("allergy insert: %w", err)
	}
	if affected == 0 {
		return repository.OutcomeDuplicate, nil
	}
	return repository.OutcomeInserted, nil
}
