package model

// Patient is the single individual whose records the store consolidates.
// Identity is the (given, family, birth date) triple; ingestion reuses the
// existing row when a later document describes the same person.
type Patient struct {
	ID           int64   `db:"id" json:"id"`
	GivenName    *string `db:"given_name" json:"given_name,omitempty"`
	FamilyName   *string `db:"family_name" json:"family_name,omitempty"`
	BirthDate    *string `db:"birth_date" json:"birth_date,omitempty"`
	Gender       *string `db:"gender" json:"gender,omitempty"`
	SourceFile   *string `db:"source_file" json:"source_file,omitempty"`
	DataSourceID *int64  `db:"data_source_id" json:"data_source_id,omitempty"`
}
