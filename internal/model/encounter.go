package model

// Encounter is one clinical visit. A candidate is eligible for insertion
// only when date, source encounter id, and provider are all present;
// uniqueness is (patient, provider, date) with missing providers never
// merged into one another.
type Encounter struct {
	ID                int64   `db:"id" json:"id"`
	PatientID         int64   `db:"patient_id" json:"patient_id"`
	EncounterDate     *string `db:"encounter_date" json:"encounter_date,omitempty"`
	ProviderID        *int64  `db:"provider_id" json:"provider_id,omitempty"`
	OrganizationID    *int64  `db:"organization_id" json:"organization_id,omitempty"`
	SourceEncounterID *string `db:"source_encounter_id" json:"source_encounter_id,omitempty"`
	EncounterType     *string `db:"encounter_type" json:"encounter_type,omitempty"`
	Notes             *string `db:"notes" json:"notes,omitempty"`
	ReasonForVisit    *string `db:"reason_for_visit" json:"reason_for_visit,omitempty"`
	DataSourceID      *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}
