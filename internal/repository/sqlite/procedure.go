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

type procedureRepository struct {
	db sqlx.ExtContext
}

func NewProcedureRepository(db sqlx.ExtContext) repository.ProcedureRepository {
	return &procedureRepository{db: db}
}

// Insert persists a procedure and its code list, same two-tier pattern as
// conditions.
func (r *procedureRepository) Insert(ctx context.Context, procedure *model.Procedure, codes []model.ProcedureCode) (repository.Outcome, error) {
	affected, err := rowsAffected(ctx, r.db,
		`INSERT INTO procedure (
			patient_id, encounter_id, provider_id, name, code, code_system,
			code_display, status, date, notes, data_source_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		procedure.PatientID, procedure.EncounterID, procedure.ProviderID,
		procedure.Name, procedure.Code, procedure.CodeSystem,
		procedure.CodeDisplay, procedure.Status, procedure.Date,
		procedure.Notes, procedure.DataSourceID,
	)
	if err != nil {
		return repository.OutcomeSkipped, fmt.Errorf("procedure insert: %w", err)
	}

	outcome := repository.OutcomeInserted
	if affected == 0 {
		outcome = repository.OutcomeDuplicate
	}

	var procedureID int64
	err = sqlx.GetContext(ctx, r.db, &procedureID,
		`SELECT id FROM procedure
		  WHERE patient_id = ?
		    AND name = ?
		    AND COALESCE(code, '') = COALESCE(?, '')
		    AND COALESCE(date, '') = COALESCE(?, '')`,
		procedure.PatientID, procedure.Name, procedure.Code, procedure.Date,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return outcome, nil
	}
	if err != nil {
		return outcome, fmt.Errorf("procedure id lookup: %w", err)
	}

	for _, code := range codes {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO procedure_code (procedure_id, code, code_system, display_name)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT DO NOTHING`,
			procedureID, code.Code, code.CodeSystem, code.DisplayName,
		); err != nil {
			return outcome, fmt.Errorf("procedure code insert: %w", err)
		}
	}
	return outcome, nil
}
