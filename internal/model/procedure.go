package model

// Procedure is a performed procedure with the same two-tier code pattern
// as Condition.
type Procedure struct {
	ID           int64   `db:"id" json:"id"`
	PatientID    int64   `db:"patient_id" json:"patient_id"`
	EncounterID  *int64  `db:"encounter_id" json:"encounter_id,omitempty"`
	ProviderID   *int64  `db:"provider_id" json:"provider_id,omitempty"`
	Name         string  `db:"name" json:"name"`
	Code         *string `db:"code" json:"code,omitempty"`
	CodeSystem   *string `db:"code_system" json:"code_system,omitempty"`
	CodeDisplay  *string `db:"code_display" json:"code_display,omitempty"`
	Status       *string `db:"status" json:"status,omitempty"`
	Date         *string `db:"date" json:"date,omitempty"`
	Notes        *string `db:"notes" json:"notes,omitempty"`
	DataSourceID *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}

// ProcedureCode is one external code attached to a procedure.
type ProcedureCode struct {
	ID          int64   `db:"id" json:"id"`
	ProcedureID int64   `db:"procedure_id" json:"procedure_id"`
	Code        string  `db:"code" json:"code"`
	CodeSystem  *string `db:"code_system" json:"code_system,omitempty"`
	DisplayName *string `db:"display_name" json:"display_name,omitempty"`
}
