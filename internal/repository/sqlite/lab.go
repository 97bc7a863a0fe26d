package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chartvault/chartvault/internal/model"
	"github.com/chartvault/chartvault/internal/repository"
)

type labResultRepository struct {
	db sqlx.ExtContext
}

func NewLabResultRepository(db sqlx.ExtContext) repository.LabResultRepository {
	return &labResultRepository{db: db}
}

func (r *labResultRepository) Insert(ctx context.Context, lab *model.LabResult) (repository.Outcome, error) {
	affected, err := rowsAffected(ctx, r.db,
		`INSERT INTO lab_result (
			patient_id, encounter_id, loinc_code, test_name, result_value,
			unit, reference_range, abnormal_flag, date,
			ordering_provider_id, performing_org_id, data_source_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		lab.PatientID, lab.EncounterID, lab.LoincCode, lab.TestName,
		lab.ResultValue, lab.Unit, lab.ReferenceRange, lab.AbnormalFlag,
		lab.Date, lab.OrderingProviderID, lab.PerformingOrgID, lab.DataSourceID,
	)
	if err != nil {
		return repository.OutcomeSkipped, fmt.Errorf("lab result insert: %w", err)
	}
	if affected == 0 {
		return repository.OutcomeDuplicate, nil
	}
	return repository.OutcomeInserted, nil
}
