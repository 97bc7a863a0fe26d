package model

// Attachment points at the retained copy of a raw source file so the
// browsing collaborator can preview the original document.
type Attachment struct {
	ID           int64   `db:"id" json:"id"`
	PatientID    int64   `db:"patient_id" json:"patient_id"`
	FilePath     string  `db:"file_path" json:"file_path"`
	MimeType     *string `db:"mime_type" json:"mime_type,omitempty"`
	Description  *string `db:"description" json:"description,omitempty"`
	DataSourceID *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}
