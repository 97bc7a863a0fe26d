package model

// Immunization is one vaccine administration, unique per (patient, CVX
// code, administration date).
type Immunization struct {
	ID               int64   `db:"id" json:"id"`
	PatientID        int64   `db:"patient_id" json:"patient_id"`
	VaccineName      *string `db:"vaccine_name" json:"vaccine_name,omitempty"`
	CvxCode          *string `db:"cvx_code" json:"cvx_code,omitempty"`
	DateAdministered *string `db:"date_administered" json:"date_administered,omitempty"`
	Status           *string `db:"status" json:"status,omitempty"`
	LotNumber        *string `db:"lot_number" json:"lot_number,omitempty"`
	Notes            *string `db:"notes" json:"notes,omitempty"`
	DataSourceID     *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}
