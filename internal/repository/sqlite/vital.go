package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chartvault/chartvault/internal/model"
	"github.com/chartvault/chartvault/internal/repository"
)

type vitalRepository struct {
	db sqlx.ExtContext
}

func NewVitalRepository(db sqlx.ExtContext) repository.VitalRepository {
	return &vitalRepository{db: db}
}

func (r *vitalRepository) Insert(ctx context.Context, vital *model.Vital) (repository.Outcome, error) {
	affected, err := rowsAffected(ctx, r.db,
		`INSERT INTO vital (
			patient_id, encounter_id, vital_type, value, unit, date, data_source_id
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		vital.PatientID, vital.EncounterID, vital.VitalType, vital.Value,
		vital.Unit, vital.Date, vital.DataSourceID,
	)
	if err != nil {
		return repository.OutcomeSkipped, fmt.Errorf("vital insert: %w", err)
	}
	if affected == 0 {
		return repository.OutcomeDuplicate, nil
	}
	return repository.OutcomeInserted, nil
}
