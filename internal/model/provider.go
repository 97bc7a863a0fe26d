package model

type ProviderEntityType string

const (
	ProviderPerson       ProviderEntityType = "person"
	ProviderOrganization ProviderEntityType = "organization"
)

// Provider is a clinician or an organization from free-text attribution.
// A person and their employing organization are always distinct rows;
// NormalizedKey is the dedup identity.
type Provider struct {
	ID            int64              `db:"id" json:"id"`
	Name          string             `db:"name" json:"name"`
	GivenName     *string            `db:"given_name" json:"given_name,omitempty"`
	FamilyName    *string            `db:"family_name" json:"family_name,omitempty"`
	Credentials   *string            `db:"credentials" json:"credentials,omitempty"`
	NPI           *string            `db:"npi" json:"npi,omitempty"`
	Specialty     *string            `db:"specialty" json:"specialty,omitempty"`
	Organization  *string            `db:"organization" json:"organization,omitempty"`
	NormalizedKey string             `db:"normalized_key" json:"normalized_key"`
	EntityType    ProviderEntityType `db:"entity_type" json:"entity_type"`
}
