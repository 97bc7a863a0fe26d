package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chartvault/chartvault/internal/model"
	"github.com/chartvault/chartvault/internal/repository"
)

type progressNoteRepository struct {
	db sqlx.ExtContext
}

func NewProgressNoteRepository(db sqlx.ExtContext) repository.ProgressNoteRepository {
	return &progressNoteRepository{db: db}
}

func (r *progressNoteRepository) Insert(ctx context.Context, note *model.ProgressNote) (repository.Outcome, error) {
	affected, err := rowsAffected(ctx, r.db,
		`INSERT INTO progress_note (
			patient_id, encounter_id, provider_id, note_title,
			note_datetime, note_text, note_hash, source_note_id, data_source_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		note.PatientID, note.EncounterID, note.ProviderID, note.NoteTitle,
		note.NoteDatetime, note.NoteText, note.NoteHash, note.SourceNoteID,
		note.DataSourceID,
	)
	if err != nil {
		return repository.OutcomeSkipped, fmt.Errorf("progress note insert: %w", err)
	}
	if affected == 0 {
		return repository.OutcomeDuplicate, nil
	}
	return repository.OutcomeInserted, nil
}
