package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/chartvault/chartvault/internal/model"
)

// ProviderStore is the persistence surface the resolver needs.
type ProviderStore interface {
	FindProviderByKey(ctx context.Context, normalizedKey string) (*model.Provider, error)
	InsertProvider(ctx context.Context, provider *model.Provider) (int64, error)
}

// Candidate is one free-text provider attribution awaiting resolution.
type Candidate struct {
	Name         string
	NPI          string
	Specialty    string
	Organization string
	Credentials  string
	EntityType   model.ProviderEntityType
}

// Resolver deduplicates provider attributions against the store. Lookups
// are fronted by an in-process cache keyed on the normalized identity, so
// a batch ingest hits the database once per distinct provider.
type Resolver struct {
	store ProviderStore
	cache *cache.Cache
	log   zerolog.Logger
}

// NewResolver builds a resolver around the given store.
func NewResolver(store ProviderStore, log zerolog.Logger) *Resolver {
	return &Resolver{
		store: store,
		cache: cache.New(time.Hour, 10*time.Minute),
		log:   log.With().Str("component", "provider_registry").Logger(),
	}
}

// Resolve returns the provider ID for a candidate, inserting a new row on
// first sight. The zero ID with a nil error means the candidate carried no
// resolvable identity. A candidate declared a person but whose name reads
// as an organization is stored as an organization; the person row, when
// both appear, stays distinct because the keys differ.
func (r *Resolver) Resolve(ctx context.Context, candidate Candidate) (int64, error) {
	rawName := strings.TrimSpace(candidate.Name)
	if rawName == "" {
		return 0, nil
	}

	entityType := candidate.EntityType
	if entityType == "" {
		entityType = model.ProviderPerson
	}
	if entityType == model.ProviderPerson && LooksLikeOrganization(rawName) {
		entityType = model.ProviderOrganization
	}

	provider := model.Provider{
		Name:       rawName,
		EntityType: entityType,
	}
	if entityType == model.ProviderOrganization {
		provider.NormalizedKey = OrganizationKey(rawName)
		provider.Organization = &rawName
	} else {
		given, family, credentials := ParsePersonName(rawName)
		if credentials == "" {
			credentials = strings.TrimSpace(candidate.Credentials)
		}
		provider.GivenName = optional(given)
		provider.FamilyName = optional(family)
		provider.Credentials = optional(credentials)
		provider.Organization = optional(strings.TrimSpace(candidate.Organization))
		provider.NormalizedKey = PersonKey(given, family, rawName)
	}
	if provider.NormalizedKey == "" {
		return 0, nil
	}
	provider.NPI = optional(strings.TrimSpace(candidate.NPI))
	provider.Specialty = optional(strings.TrimSpace(candidate.Specialty))

	if cached, ok := r.cache.Get(provider.NormalizedKey); ok {
		return cached.(int64), nil
	}

	existing, err := r.store.FindProviderByKey(ctx, provider.NormalizedKey)
	if err != nil {
		return 0, fmt.Errorf("registry: find provider %q: %w", provider.NormalizedKey, err)
	}
	if existing != nil {
		r.cache.SetDefault(provider.NormalizedKey, existing.ID)
		return existing.ID, nil
	}

	id, err := r.store.InsertProvider(ctx, &provider)
	if err != nil {
		return 0, fmt.Errorf("registry: insert provider %q: %w", provider.NormalizedKey, err)
	}
	r.log.Debug().
		Str("key", provider.NormalizedKey).
		Str("entity_type", string(entityType)).
		Msg("registered provider")
	r.cache.SetDefault(provider.NormalizedKey, id)
	return id, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
