package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// A step is one forward-only migration. Steps run in order inside a
// transaction each and are recorded in schema_migrations; a populated
// store only runs the steps it has not seen.
type step struct {
	version    int
	name       string
	statements []string
}

var steps = []step{
	{
		version: 1,
		name:    "base schema",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS patient (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				given_name TEXT,
				family_name TEXT,
				birth_date TEXT,
				gender TEXT,
				source_file TEXT,
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE TABLE IF NOT EXISTS data_source (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				original_filename TEXT NOT NULL,
				ingested_at TEXT NOT NULL,
				file_sha256 TEXT NOT NULL,
				source_archive TEXT,
				document_created TEXT,
				repository_unique_id TEXT,
				document_hash TEXT,
				document_size INTEGER,
				author_institution TEXT,
				attachment_id INTEGER
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_data_source_sha256
				ON data_source(file_sha256)`,
			`CREATE TABLE IF NOT EXISTS provider (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				npi TEXT,
				specialty TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS encounter (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL REFERENCES patient(id),
				encounter_date TEXT,
				provider_id INTEGER REFERENCES provider(id),
				organization_id INTEGER REFERENCES provider(id),
				source_encounter_id TEXT,
				encounter_type TEXT,
				notes TEXT,
				reason_for_visit TEXT,
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE TABLE IF NOT EXISTS condition (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL REFERENCES patient(id),
				name TEXT NOT NULL,
				onset_date TEXT,
				status TEXT,
				notes TEXT,
				provider_id INTEGER REFERENCES provider(id),
				encounter_id INTEGER REFERENCES encounter(id),
				code TEXT,
				code_system TEXT,
				code_display TEXT,
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE TABLE IF NOT EXISTS condition_code (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				condition_id INTEGER NOT NULL REFERENCES condition(id),
				code TEXT NOT NULL,
				code_system TEXT,
				display_name TEXT
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_condition_code
				ON condition_code(condition_id, code, COALESCE(code_system, ''))`,
			`CREATE TABLE IF NOT EXISTS medication (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL REFERENCES patient(id),
				encounter_id INTEGER REFERENCES encounter(id),
				name TEXT NOT NULL,
				dose TEXT,
				route TEXT,
				frequency TEXT,
				start_date TEXT,
				end_date TEXT,
				status TEXT,
				notes TEXT,
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE TABLE IF NOT EXISTS lab_result (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL REFERENCES patient(id),
				encounter_id INTEGER REFERENCES encounter(id),
				loinc_code TEXT NOT NULL,
				test_name TEXT,
				result_value TEXT,
				unit TEXT,
				reference_range TEXT,
				abnormal_flag TEXT,
				date TEXT,
				ordering_provider_id INTEGER REFERENCES provider(id),
				performing_org_id INTEGER REFERENCES provider(id),
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_lab_result
				ON lab_result(patient_id, COALESCE(encounter_id, -1), loinc_code)`,
			`CREATE TABLE IF NOT EXISTS vital (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL REFERENCES patient(id),
				encounter_id INTEGER REFERENCES encounter(id),
				vital_type TEXT NOT NULL,
				value TEXT NOT NULL,
				unit TEXT,
				date TEXT,
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_vital
				ON vital(patient_id, vital_type, COALESCE(date, ''))`,
			`CREATE TABLE IF NOT EXISTS immunization (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL REFERENCES patient(id),
				vaccine_name TEXT,
				cvx_code TEXT,
				date_administered TEXT,
				status TEXT,
				lot_number TEXT,
				notes TEXT,
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_immunization
				ON immunization(patient_id, COALESCE(cvx_code, ''), COALESCE(date_administered, ''))`,
			`CREATE TABLE IF NOT EXISTS procedure (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL REFERENCES patient(id),
				encounter_id INTEGER REFERENCES encounter(id),
				provider_id INTEGER REFERENCES provider(id),
				name TEXT NOT NULL,
				code TEXT,
				code_system TEXT,
				code_display TEXT,
				status TEXT,
				date TEXT,
				notes TEXT,
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_procedure
				ON procedure(patient_id, name, COALESCE(code, ''), COALESCE(date, ''))`,
			`CREATE TABLE IF NOT EXISTS procedure_code (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				procedure_id INTEGER NOT NULL REFERENCES procedure(id),
				code TEXT NOT NULL,
				code_system TEXT,
				display_name TEXT
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_procedure_code
				ON procedure_code(procedure_id, code, COALESCE(code_system, ''))`,
			`CREATE TABLE IF NOT EXISTS progress_note (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL REFERENCES patient(id),
				encounter_id INTEGER REFERENCES encounter(id),
				provider_id INTEGER REFERENCES provider(id),
				note_title TEXT,
				note_datetime TEXT,
				note_text TEXT NOT NULL,
				note_hash TEXT NOT NULL,
				source_note_id TEXT,
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_progress_note
				ON progress_note(patient_id, COALESCE(encounter_id, -1), COALESCE(provider_id, -1), note_hash)`,
			`CREATE TABLE IF NOT EXISTS allergy (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL REFERENCES patient(id),
				encounter_id INTEGER REFERENCES encounter(id),
				provider_id INTEGER REFERENCES provider(id),
				substance TEXT,
				substance_code TEXT,
				substance_code_system TEXT,
				substance_code_display TEXT,
				reaction TEXT,
				reaction_code TEXT,
				reaction_code_system TEXT,
				severity TEXT,
				criticality TEXT,
				status TEXT,
				onset_date TEXT,
				noted_date TEXT,
				source_allergy_id TEXT,
				notes TEXT,
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_allergy
				ON allergy(patient_id, COALESCE(substance, ''), COALESCE(substance_code, ''),
					COALESCE(onset_date, ''), COALESCE(status, ''))`,
			`CREATE TABLE IF NOT EXISTS insurance (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL REFERENCES patient(id),
				payer_name TEXT,
				payer_id TEXT,
				plan_name TEXT,
				coverage_type TEXT,
				policy_type TEXT,
				member_id TEXT,
				group_number TEXT,
				subscriber_id TEXT,
				subscriber_name TEXT,
				relationship TEXT,
				coverage_start TEXT,
				coverage_end TEXT,
				status TEXT,
				source_policy_id TEXT,
				notes TEXT,
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_insurance
				ON insurance(patient_id, COALESCE(payer_name, ''), COALESCE(plan_name, ''),
					COALESCE(member_id, ''), COALESCE(coverage_start, ''))`,
			`CREATE TABLE IF NOT EXISTS attachment (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id INTEGER NOT NULL REFERENCES patient(id),
				file_path TEXT NOT NULL,
				mime_type TEXT,
				description TEXT,
				data_source_id INTEGER REFERENCES data_source(id)
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_attachment
				ON attachment(patient_id, file_path)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_patient_identity
				ON patient(COALESCE(given_name, ''), COALESCE(family_name, ''), COALESCE(birth_date, ''))`,
		},
	},
	{
		version: 2,
		name:    "provider identity columns",
		statements: []string{
			`ALTER TABLE provider ADD COLUMN given_name TEXT`,
			`ALTER TABLE provider ADD COLUMN family_name TEXT`,
			`ALTER TABLE provider ADD COLUMN credentials TEXT`,
			`ALTER TABLE provider ADD COLUMN organization TEXT`,
			`ALTER TABLE provider ADD COLUMN normalized_key TEXT`,
			`ALTER TABLE provider ADD COLUMN entity_type TEXT DEFAULT 'person'`,
			// Rows written before these columns existed get a best-effort
			// classification and a key derived from what they carry.
			`UPDATE provider
			    SET entity_type = CASE
			        WHEN entity_type IS NOT NULL AND TRIM(entity_type) <> '' THEN entity_type
			        WHEN (given_name IS NULL OR TRIM(given_name) = '')
			         AND (family_name IS NULL OR TRIM(family_name) = '') THEN 'organization'
			        ELSE 'person'
			    END`,
			`UPDATE provider
			    SET normalized_key = LOWER(
			        REPLACE(COALESCE(given_name, '') || COALESCE(family_name, ''), ' ', '')
			    )
			  WHERE (normalized_key IS NULL OR TRIM(normalized_key) = '')
			    AND ((given_name IS NOT NULL AND TRIM(given_name) <> '')
			         OR (family_name IS NOT NULL AND TRIM(family_name) <> ''))`,
			`UPDATE provider
			    SET normalized_key = LOWER(REPLACE(COALESCE(name, ''), ' ', ''))
			  WHERE normalized_key IS NULL OR TRIM(normalized_key) = ''`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_provider_normalized_key
				ON provider(normalized_key)`,
		},
	},
	{
		version: 3,
		name:    "medication dedup key",
		statements: []string{
			`ALTER TABLE medication ADD COLUMN dedup_key TEXT
				GENERATED ALWAYS AS (LOWER(
					name || '|' || COALESCE(dose, '') || '|' || COALESCE(route, '') || '|' ||
					COALESCE(frequency, '') || '|' || COALESCE(start_date, '') || '|' ||
					COALESCE(end_date, '')
				)) VIRTUAL`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_medication_dedup
				ON medication(patient_id, dedup_key)`,
		},
	},
	{
		version: 4,
		name:    "encounter uniqueness",
		statements: []string{
			// Partial index: encounters lacking a provider are never
			// merged with one another.
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_encounter_provider
				ON encounter(patient_id, provider_id, COALESCE(encounter_date, ''))
				WHERE provider_id IS NOT NULL`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_condition
				ON condition(patient_id, name, COALESCE(code, ''), COALESCE(onset_date, ''))`,
			`CREATE INDEX IF NOT EXISTS idx_encounter_patient_date
				ON encounter(patient_id, encounter_date)`,
		},
	},
}

// Migrate brings the store up to the current schema version. Each pending
// step runs inside its own transaction and is recorded before commit, so
// a rerun never reapplies work.
func Migrate(ctx context.Context, db *sqlx.DB, log zerolog.Logger) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("schema: create migrations table: %w", err)
	}

	applied := map[int]bool{}
	var versions []int
	if err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return fmt.Errorf("schema: read applied versions: %w", err)
	}
	for _, version := range versions {
		applied[version] = true
	}

	for _, s := range steps {
		if applied[s.version] {
			continue
		}
		if err := applyStep(ctx, db, s); err != nil {
			return err
		}
		log.Info().Int("version", s.version).Str("name", s.name).Msg("applied migration")
	}
	return nil
}

func applyStep(ctx context.Context, db *sqlx.DB, s step) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("schema: begin migration %d: %w", s.version, err)
	}
	defer tx.Rollback()

	for _, statement := range s.statements {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("schema: migration %d (%s): %w", s.version, s.name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		s.version, s.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("schema: record migration %d: %w", s.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("schema: commit migration %d: %w", s.version, err)
	}
	return nil
}

// Version reports the highest applied migration version, zero for a fresh
// store.
func Version(ctx context.Context, db *sqlx.DB) (int, error) {
	var version int
	err := db.GetContext(ctx, &version,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err != nil {
		return 0, fmt.Errorf("schema: read version: %w", err)
	}
	return version, nil
}
