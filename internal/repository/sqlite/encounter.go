package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chartvault/chartvault/internal/ccd"
	"github.com/chartvault/chartvault/internal/model"
	"github.com/chartvault/chartvault/internal/repository"
)

type encounterRepository struct {
	db sqlx.ExtContext
}

func NewEncounterRepository(db sqlx.ExtContext) repository.EncounterRepository {
	return &encounterRepository{db: db}
}

// Insert persists an encounter. A candidate missing any of date, source
// encounter id, or provider is not a real visit anchor and is skipped; a
// candidate matching an existing (patient, provider, date) row is a
// duplicate regardless of its source id.
func (r *encounterRepository) Insert(ctx context.Context, encounter *model.Encounter) (int64, repository.Outcome, error) {
	if encounter.EncounterDate == nil || *encounter.EncounterDate == "" ||
		encounter.SourceEncounterID == nil || *encounter.SourceEncounterID == "" ||
		encounter.ProviderID == nil {
		return 0, repository.OutcomeSkipped, nil
	}

	var id int64
	err := sqlx.GetContext(ctx, r.db, &id,
		`SELECT id FROM encounter
		  WHERE patient_id = ?
		    AND COALESCE(encounter_date, '') = COALESCE(?, '')
		    AND COALESCE(provider_id, -1) = COALESCE(?, -1)`,
		encounter.PatientID, encounter.EncounterDate, encounter.ProviderID,
	)
	if err == nil {
		return id, repository.OutcomeDuplicate, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, repository.OutcomeSkipped, fmt.Errorf("encounter lookup: %w", err)
	}

	id, err = lastInsertID(ctx, r.db,
		`INSERT INTO encounter (
			patient_id, encounter_date, provider_id, organization_id,
			source_encounter_id, encounter_type, notes, reason_for_visit,
			data_source_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		encounter.PatientID, encounter.EncounterDate, encounter.ProviderID,
		encounter.OrganizationID, encounter.SourceEncounterID,
		encounter.EncounterType, encounter.Notes, encounter.ReasonForVisit,
		encounter.DataSourceID,
	)
	if err != nil {
		return 0, repository.OutcomeSkipped, fmt.Errorf("encounter insert: %w", err)
	}
	return id, repository.OutcomeInserted, nil
}

// FindEncounterID resolves the encounter a dependent fact belongs to,
// trying progressively looser matches: source id with exact date, source
// id with day prefix, exact date, day prefix, then latest-for-provider.
// Every rung is tried with the provider filter before without it.
func (r *encounterRepository) FindEncounterID(ctx context.Context, patientID int64, query repository.EncounterQuery) (int64, error) {
	day := ccd.DateOnly(query.EncounterDate)

	if query.SourceEncounterID != "" {
		base := `SELECT id FROM encounter
		          WHERE patient_id = ?
		            AND COALESCE(source_encounter_id, '') = COALESCE(?, '')`
		params := []interface{}{patientID, query.SourceEncounterID}
		if query.EncounterDate != "" {
			base += ` AND COALESCE(encounter_date, '') = COALESCE(?, '')`
			params = append(params, query.EncounterDate)
		}
		id, err := r.runRung(ctx, base, params, query.ProviderID,
			` ORDER BY encounter_date DESC, id DESC LIMIT 1`)
		if err != nil || id != 0 {
			return id, err
		}
		if day != "" {
			base = `SELECT id FROM encounter
			         WHERE patient_id = ?
			           AND COALESCE(source_encounter_id, '') = COALESCE(?, '')
			           AND substr(COALESCE(encounter_date, ''), 1, 8) = ?`
			id, err = r.runRung(ctx, base,
				[]interface{}{patientID, query.SourceEncounterID, day},
				query.ProviderID, ` ORDER BY encounter_date DESC, id DESC LIMIT 1`)
			if err != nil || id != 0 {
				return id, err
			}
		}
	}

	if query.EncounterDate != "" {
		id, err := r.runRung(ctx,
			`SELECT id FROM encounter
			  WHERE patient_id = ?
			    AND COALESCE(encounter_date, '') = COALESCE(?, '')`,
			[]interface{}{patientID, query.EncounterDate},
			query.ProviderID, ` ORDER BY id DESC LIMIT 1`)
		if err != nil || id != 0 {
			return id, err
		}
	}

	if day != "" {
		id, err := r.runRung(ctx,
			`SELECT id FROM encounter
			  WHERE patient_id = ?
			    AND substr(COALESCE(encounter_date, ''), 1, 8) = ?`,
			[]interface{}{patientID, day},
			query.ProviderID, ` ORDER BY encounter_date DESC, id DESC LIMIT 1`)
		if err != nil || id != 0 {
			return id, err
		}
	}

	if query.ProviderID != nil {
		return r.runRung(ctx,
			`SELECT id FROM encounter WHERE patient_id = ?`,
			[]interface{}{patientID},
			query.ProviderID, ` ORDER BY encounter_date DESC, id DESC LIMIT 1`)
	}

	return 0, nil
}

func (r *encounterRepository) runRung(ctx context.Context, baseSQL string, baseParams []interface{}, providerID *int64, orderClause string) (int64, error) {
	if providerID != nil {
		params := append(append([]interface{}{}, baseParams...), *providerID)
		id, err := r.fetchID(ctx,
			baseSQL+` AND COALESCE(provider_id, -1) = COALESCE(?, -1)`+orderClause, params)
		if err != nil || id != 0 {
			return id, err
		}
	}
	return r.fetchID(ctx, baseSQL+orderClause, baseParams)
}

func (r *encounterRepository) fetchID(ctx context.Context, query string, params []interface{}) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, r.db, &id, query, params...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("encounter resolve: %w", err)
	}
	return id, nil
}
