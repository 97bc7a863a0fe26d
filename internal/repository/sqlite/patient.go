package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chartvault/chartvault/internal/model"
	"github.com/chartvault/chartvault/internal/repository"
)

type patientRepository struct {
	db sqlx.ExtContext
}

func NewPatientRepository(db sqlx.ExtContext) repository.PatientRepository {
	return &patientRepository{db: db}
}

// Upsert inserts the patient or reuses the row whose (given, family,
// birth date) identity matches. Existing rows are never modified.
func (r *patientRepository) Upsert(ctx context.Context, patient *model.Patient) (int64, repository.Outcome, error) {
	var id int64
	err := sqlx.GetContext(ctx, r.db, &id,
		`SELECT id FROM patient
		  WHERE COALESCE(given_name, '') = COALESCE(?, '')
		    AND COALESCE(family_name, '') = COALESCE(?, '')
		    AND COALESCE(birth_date, '') = COALESCE(?, '')`,
		patient.GivenName, patient.FamilyName, patient.BirthDate,
	)
	if err == nil {
		return id, repository.OutcomeDuplicate, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, repository.OutcomeSkipped, fmt.Errorf("patient lookup: %w", err)
	}

	id, err = lastInsertID(ctx, r.db,
		`INSERT INTO patient (given_name, family_name, birth_date, gender, source_file, data_source_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		patient.GivenName, patient.FamilyName, patient.BirthDate,
		patient.Gender, patient.SourceFile, patient.DataSourceID,
	)
	if err != nil {
		return 0, repository.OutcomeSkipped, fmt.Errorf("patient insert: %w", err)
	}
	return id, repository.OutcomeInserted, nil
}
