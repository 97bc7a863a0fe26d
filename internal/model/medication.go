package model

// Medication is one prescribed or administered drug. DedupKey is the
// normalized composite of name, dose, route, frequency, and dates that
// backs the per-patient uniqueness index.
type Medication struct {
	ID           int64   `db:"id" json:"id"`
	PatientID    int64   `db:"patient_id" json:"patient_id"`
	EncounterID  *int64  `db:"encounter_id" json:"encounter_id,omitempty"`
	Name         string  `db:"name" json:"name"`
	Dose         *string `db:"dose" json:"dose,omitempty"`
	Route        *string `db:"route" json:"route,omitempty"`
	Frequency    *string `db:"frequency" json:"frequency,omitempty"`
	StartDate    *string `db:"start_date" json:"start_date,omitempty"`
	EndDate      *string `db:"end_date" json:"end_date,omitempty"`
	Status       *string `db:"status" json:"status,omitempty"`
	Notes        *string `db:"notes" json:"notes,omitempty"`
	DedupKey     string  `db:"dedup_key" json:"-"`
	DataSourceID *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}
