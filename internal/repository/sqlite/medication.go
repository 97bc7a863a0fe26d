package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chartvault/chartvault/internal/model"
	"github.com/chartvault/chartvault/internal/repository"
)

type medicationRepository struct {
	db sqlx.ExtContext
}

func NewMedicationRepository(db sqlx.ExtContext) repository.MedicationRepository {
	return &medicationRepository{db: db}
}

// Insert persists a medication. The dedup_key column is generated from
// name, dose, route, frequency, and dates, so the unique index does the
// content comparison.
func (r *medicationRepository) Insert(ctx context.Context, medication *model.Medication) (repository.Outcome, error) {
	affected, err := rowsAffected(ctx, r.db,
		`INSERT INTO medication (
			patient_id, encounter_id, name, dose, route, frequency,
			start_date, end_date, status, notes, data_source_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		medication.PatientID, medication.EncounterID, medication.Name,
		medication.Dose, medication.Route, medication.Frequency,
		medication.StartDate, medication.EndDate, medication.Status,
		medication.Notes, medication.DataSourceID,
	)
	if err != nil {
		return repository.OutcomeSkipped, fmt.Errorf("medication insert: %w", err)
	}
	if affected == 0 {
		return repository.OutcomeDuplicate, nil
	}
	return repository.OutcomeInserted, nil
}
