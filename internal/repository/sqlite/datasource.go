package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chartvault/chartvault/internal/model"
	"github.com/chartvault/chartvault/internal/repository"
)

type dataSourceRepository struct {
	db sqlx.ExtContext
}

func NewDataSourceRepository(db sqlx.ExtContext) repository.DataSourceRepository {
	return &dataSourceRepository{db: db}
}

// Register records document provenance. A document whose content hash is
// already known returns the existing row as a duplicate.
func (r *dataSourceRepository) Register(ctx context.Context, source *model.DataSource) (int64, repository.Outcome, error) {
	var id int64
	err := sqlx.GetContext(ctx, r.db, &id,
		`SELECT id FROM data_source WHERE file_sha256 = ?`, source.FileSHA256)
	if err == nil {
		return id, repository.OutcomeDuplicate, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, repository.OutcomeSkipped, fmt.Errorf("data source lookup: %w", err)
	}

	id, err = lastInsertID(ctx, r.db,
		`INSERT INTO data_source (
			original_filename, ingested_at, file_sha256, source_archive,
			document_created, repository_unique_id, document_hash,
			document_size, author_institution
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		source.OriginalFilename, source.IngestedAt, source.FileSHA256,
		source.SourceArchive, source.DocumentCreated, source.RepositoryUniqueID,
		source.DocumentHash, source.DocumentSize, source.AuthorInstitution,
	)
	if err != nil {
		return 0, repository.OutcomeSkipped, fmt.Errorf("data source insert: %w", err)
	}
	return id, repository.OutcomeInserted, nil
}

func (r *dataSourceRepository) SetAttachmentID(ctx context.Context, dataSourceID, attachmentID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE data_source SET attachment_id = ? WHERE id = ?`,
		attachmentID, dataSourceID,
	); err != nil {
		return fmt.Errorf("data source attachment link: %w", err)
	}
	return nil
}
