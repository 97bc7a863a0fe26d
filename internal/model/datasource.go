package model

// DataSource records the provenance of one ingested document. Rows are
// unique by content hash, so re-ingesting an identical file is a no-op.
type DataSource struct {
	ID                 int64   `db:"id" json:"id"`
	OriginalFilename   string  `db:"original_filename" json:"original_filename"`
	IngestedAt         string  `db:"ingested_at" json:"ingested_at"`
	FileSHA256         string  `db:"file_sha256" json:"file_sha256"`
	SourceArchive      *string `db:"source_archive" json:"source_archive,omitempty"`
	DocumentCreated    *string `db:"document_created" json:"document_created,omitempty"`
	RepositoryUniqueID *string `db:"repository_unique_id" json:"repository_unique_id,omitempty"`
	DocumentHash       *string `db:"document_hash" json:"document_hash,omitempty"`
	DocumentSize       *int64  `db:"document_size" json:"document_size,omitempty"`
	AuthorInstitution  *string `db:"author_institution" json:"author_institution,omitempty"`
	AttachmentID       *int64  `db:"attachment_id" json:"attachment_id,omitempty"`
}

// DocumentMeta carries the optional XDS metadata descriptor fields found
// alongside documents in an export package. All fields are best-effort.
type DocumentMeta struct {
	DocumentCreated    *string
	RepositoryUniqueID *string
	DocumentHash       *string
	DocumentSize       *int64
	AuthorInstitution  *string
}
