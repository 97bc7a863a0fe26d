package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chartvault/chartvault/internal/model"
	"github.com/chartvault/chartvault/internal/repository"
)

type insuranceRepository struct {
	db sqlx.ExtContext
}

func NewInsuranceRepository(db sqlx.ExtContext) repository.InsuranceRepository {
	return &insuranceRepository{db: db}
}

func (r *insuranceRepository) Insert(ctx context.Context, insurance *model.Insurance) (repository.Outcome, error) {
	affected, err := rowsAffected(ctx, r.db,
		`INSERT INTO insurance (
			patient_id, payer_name, payer_id, plan_name, coverage_type,
			policy_type, member_id, group_number, subscriber_id,
			subscriber_name, relationship, coverage_start, coverage_end,
			status, source_policy_id, notes, data_source_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		insurance.PatientID, insurance.PayerName, insurance.PayerID,
		insurance.PlanName, insurance.CoverageType, insurance.PolicyType,
		insurance.MemberID, insurance.GroupNumber, insurance.SubscriberID,
		insurance.SubscriberName, insurance.Relationship,
		insurance.CoverageStart, insurance.CoverageEnd, insurance.Status,
		insurance.SourcePolicyID, insurance.Notes, insurance.DataSourceID,
	)
	if err != nil {
		return repository.OutcomeSkipped, fmt.Errorf("insurance insert: %w", err)
	}
	if affected == 0 {
		return repository.OutcomeDuplicate, nil
	}
	return repository.OutcomeInserted, nil
}
