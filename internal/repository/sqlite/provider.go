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

type providerRepository struct {
	db sqlx.ExtContext
}

func NewProviderRepository(db sqlx.ExtContext) repository.ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) FindProviderByKey(ctx context.Context, normalizedKey string) (*model.Provider, error) {
	var provider model.Provider
	err := sqlx.GetContext(ctx, r.db, &provider,
		`SELECT id, name, given_name, family_name, credentials, npi,
		        specialty, organization, normalized_key, entity_type
		   FROM provider
		  WHERE normalized_key = ?`, normalizedKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("provider lookup: %w", err)
	}
	return &provider, nil
}

func (r *providerRepository) InsertProvider(ctx context.Context, provider *model.Provider) (int64, error) {
	id, err := lastInsertID(ctx, r.db,
		`INSERT INTO provider (
			name, given_name, family_name, credentials, npi,
			specialty, organization, normalized_key, entity_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		provider.Name, provider.GivenName, provider.FamilyName,
		provider.Credentials, provider.NPI, provider.Specialty,
		provider.Organization, provider.NormalizedKey, provider.EntityType,
	)
	if err != nil {
		return 0, fmt.Errorf("provider insert: %w", err)
	}
	return id, nil
}
