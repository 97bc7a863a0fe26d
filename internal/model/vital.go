package model

// Vital is one measurement, unique per (patient, type, date).
type Vital struct {
	ID           int64   `db:"id" json:"id"`
	PatientID    int64   `db:"patient_id" json:"patient_id"`
	EncounterID  *int64  `db:"encounter_id" json:"encounter_id,omitempty"`
	VitalType    string  `db:"vital_type" json:"vital_type"`
	Value        string  `db:"value" json:"value"`
	Unit         *string `db:"unit" json:"unit,omitempty"`
	Date         *string `db:"date" json:"date,omitempty"`
	DataSourceID *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}
