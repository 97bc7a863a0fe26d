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

type conditionRepository struct {
	db sqlx.ExtContext
}

func NewConditionRepository(db sqlx.ExtContext) repository.ConditionRepository {
	return &conditionRepository{db: db}
}

// Insert persists a condition and its code list. The row dedups on
// (patient, name, code, onset); codes attach to whichever row holds that
// identity, so a duplicate still completes the code set.
func (r *conditionRepository) Insert(ctx context.Context, condition *model.Condition, codes []model.ConditionCode) (repository.Outcome, error) {
	affected, err := rowsAffected(ctx, r.db,
		`INSERT INTO condition (
			patient_id, name, onset_date, status, notes, provider_id,
			encounter_id, code, code_system, code_display, data_source_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		condition.PatientID, condition.Name, condition.OnsetDate,
		condition.Status, condition.Notes, condition.ProviderID,
		condition.EncounterID, condition.Code, condition.CodeSystem,
		condition.CodeDisplay, condition.DataSourceID,
	)
	if err != nil {
		return repository.OutcomeSkipped, fmt.Errorf("condition insert: %w", err)
	}

	outcome := repository.OutcomeInserted
	if affected == 0 {
		outcome = repository.OutcomeDuplicate
	}

	var conditionID int64
	err = sqlx.GetContext(ctx, r.db, &conditionID,
		`SELECT id FROM condition
		  WHERE patient_id = ?
		    AND name = ?
		    AND COALESCE(code, '') = COALESCE(?, '')
		    AND COALESCE(onset_date, '') = COALESCE(?, '')`,
		condition.PatientID, condition.Name, condition.Code, condition.OnsetDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return outcome, nil
	}
	if err != nil {
		return outcome, fmt.Errorf("condition id lookup: %w", err)
	}

	for _, code := range codes {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO condition_code (condition_id, code, code_system, display_name)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT DO NOTHING`,
			conditionID, code.Code, code.CodeSystem, code.DisplayName,
		); err != nil {
			return outcome, fmt.Errorf("condition code insert: %w", err)
		}
	}
	return outcome, nil
}
