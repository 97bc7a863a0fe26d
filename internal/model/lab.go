package model

// LabResult is one test result, unique per (patient, encounter, LOINC
// code) so the same panel never imports twice.
type LabResult struct {
	ID                  int64   `db:"id" json:"id"`
	PatientID           int64   `db:"patient_id" json:"patient_id"`
	EncounterID         *int64  `db:"encounter_id" json:"encounter_id,omitempty"`
	LoincCode           string  `db:"loinc_code" json:"loinc_code"`
	TestName            *string `db:"test_name" json:"test_name,omitempty"`
	ResultValue         *string `db:"result_value" json:"result_value,omitempty"`
	Unit                *string `db:"unit" json:"unit,omitempty"`
	ReferenceRange      *string `db:"reference_range" json:"reference_range,omitempty"`
	AbnormalFlag        *string `db:"abnormal_flag" json:"abnormal_flag,omitempty"`
	Date                *string `db:"date" json:"date,omitempty"`
	OrderingProviderID  *int64  `db:"ordering_provider_id" json:"ordering_provider_id,omitempty"`
	PerformingOrgID     *int64  `db:"performing_org_id" json:"performing_org_id,omitempty"`
	DataSourceID        *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}
