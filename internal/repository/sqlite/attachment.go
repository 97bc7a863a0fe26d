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

type attachmentRepository struct {
	db sqlx.ExtContext
}

func NewAttachmentRepository(db sqlx.ExtContext) repository.AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Insert(ctx context.Context, attachment *model.Attachment) (int64, repository.Outcome, error) {
	affected, err := rowsAffected(ctx, r.db,
		`INSERT INTO attachment (
			patient_id, file_path, mime_type, description, data_source_id
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		attachment.PatientID, attachment.FilePath, attachment.MimeType,
		attachment.Description, attachment.DataSourceID,
	)
	if err != nil {
		return 0, repository.OutcomeSkipped, fmt.Errorf("attachment insert: %w", err)
	}

	var id int64
	err = sqlx.GetContext(ctx, r.db, &id,
		`SELECT id FROM attachment WHERE patient_id = ? AND file_path = ?`,
		attachment.PatientID, attachment.FilePath,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.OutcomeSkipped, nil
	}
	if err != nil {
		return 0, repository.OutcomeSkipped, fmt.Errorf("attachment lookup: %w", err)
	}

	if affected == 0 {
		return id, repository.OutcomeDuplicate, nil
	}
	return id, repository.OutcomeInserted, nil
}
