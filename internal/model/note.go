package model

// ProgressNote is narrative text. NoteHash fingerprints the text so
// identical notes re-imported under the same encounter and provider are
// no-ops while distinct text is kept.
type ProgressNote struct {
	ID           int64   `db:"id" json:"id"`
	PatientID    int64   `db:"patient_id" json:"patient_id"`
	EncounterID  *int64  `db:"encounter_id" json:"encounter_id,omitempty"`
	ProviderID   *int64  `db:"provider_id" json:"provider_id,omitempty"`
	NoteTitle    *string `db:"note_title" json:"note_title,omitempty"`
	NoteDatetime *string `db:"note_datetime" json:"note_datetime,omitempty"`
	NoteText     string  `db:"note_text" json:"note_text"`
	NoteHash     string  `db:"note_hash" json:"note_hash"`
	SourceNoteID *string `db:"source_note_id" json:"source_note_id,omitempty"`
	DataSourceID *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}
