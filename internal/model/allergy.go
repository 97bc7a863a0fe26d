package model

// Allergy is one substance intolerance observation.
type Allergy struct {
	ID                   int64   `db:"id" json:"id"`
	PatientID            int64   `db:"patient_id" json:"patient_id"`
	EncounterID          *int64  `db:"encounter_id" json:"encounter_id,omitempty"`
	ProviderID           *int64  `db:"provider_id" json:"provider_id,omitempty"`
	Substance            *string `db:"substance" json:"substance,omitempty"`
	SubstanceCode        *string `db:"substance_code" json:"substance_code,omitempty"`
	SubstanceCodeSystem  *string `db:"substance_code_system" json:"substance_code_system,omitempty"`
	SubstanceCodeDisplay *string `db:"substance_code_display" json:"substance_code_display,omitempty"`
	Reaction             *string `db:"reaction" json:"reaction,omitempty"`
	ReactionCode         *string `db:"reaction_code" json:"reaction_code,omitempty"`
	ReactionCodeSystem   *string `db:"reaction_code_system" json:"reaction_code_system,omitempty"`
	Severity             *string `db:"severity" json:"severity,omitempty"`
	Criticality          *string `db:"criticality" json:"criticality,omitempty"`
	Status               *string `db:"status" json:"status,omitempty"`
	OnsetDate            *string `db:"onset_date" json:"onset_date,omitempty"`
	NotedDate            *string `db:"noted_date" json:"noted_date,omitempty"`
	SourceAllergyID      *string `db:"source_allergy_id" json:"source_allergy_id,omitempty"`
	Notes                *string `db:"notes" json:"notes,omitempty"`
	DataSourceID         *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}
