package model

// Condition is a diagnosis or problem-list entry. The primary code is
// denormalized onto the row; every code (including translations) also
// lands in condition_code.
type Condition struct {
	ID           int64   `db:"id" json:"id"`
	PatientID    int64   `db:"patient_id" json:"patient_id"`
	Name         string  `db:"name" json:"name"`
	OnsetDate    *string `db:"onset_date" json:"onset_date,omitempty"`
	Status       *string `db:"status" json:"status,omitempty"`
	Notes        *string `db:"notes" json:"notes,omitempty"`
	ProviderID   *int64  `db:"provider_id" json:"provider_id,omitempty"`
	EncounterID  *int64  `db:"encounter_id" json:"encounter_id,omitempty"`
	Code         *string `db:"code" json:"code,omitempty"`
	CodeSystem   *string `db:"code_system" json:"code_system,omitempty"`
	CodeDisplay  *string `db:"code_display" json:"code_display,omitempty"`
	DataSourceID *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}

// ConditionCode is one external code attached to a condition, unique by
// (condition, code, code system).
type ConditionCode struct {
	ID          int64   `db:"id" json:"id"`
	ConditionID int64   `db:"condition_id" json:"condition_id"`
	Code        string  `db:"code" json:"code"`
	CodeSystem  *string `db:"code_system" json:"code_system,omitempty"`
	DisplayName *string `db:"display_name" json:"display_name,omitempty"`
}
