package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chartvault/chartvault/internal/model"
	"github.com/chartvault/chartvault/internal/repository"
)

type immunizationRepository struct {
	db sqlx.ExtContext
}

func NewImmunizationRepository(db sqlx.ExtContext) repository.ImmunizationRepository {
	return &immunizationRepository{db: db}
}

func (r *immunizationRepository) Insert(ctx context.Context, immunization *model.Immunization) (repository.Outcome, error) {
	affected, err := rowsAffected(ctx, r.db,
		`INSERT INTO immunization (
			patient_id, vaccine_name, cvx_code, date_administered,
			status, lot_number, notes, data_source_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		immunization.PatientID, immunization.VaccineName, immunization.CvxCode,
		immunization.DateAdministered, immunization.Status,
		immunization.LotNumber, immunization.Notes, immunization.DataSourceID,
	)
	if err != nil {
		return repository.OutcomeSkipped, fmt.Errorf("immunization insert: %w", err)
	}
	if affected == 0 {
		return repository.OutcomeDuplicate, nil
	}
	return repository.OutcomeInserted, nil
}
