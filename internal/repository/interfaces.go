package repository

import (
	"context"

	"github.com/chartvault/chartvault/internal/model"
)

// Outcome classifies what a write did. Persistence is append-only: an
// entity matching an existing row by its uniqueness policy is a
// duplicate, one failing its eligibility rules is a skip.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeDuplicate
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeSkipped:
		return "skipped"
	}
	return "unknown"
}

// EncounterQuery carries the hints used to link a clinical fact to an
// already persisted encounter.
type EncounterQuery struct {
	EncounterDate     string
	SourceEncounterID string
	ProviderID        *int64
}

type PatientRepository interface {
	// Upsert inserts the patient or reuses the row matching the
	// (given, family, birth date) identity.
	Upsert(ctx context.Context, patient *model.Patient) (int64, Outcome, error)
}

type DataSourceRepository interface {
	// Register records provenance for a document, deduplicating on the
	// content hash.
	Register(ctx context.Context, source *model.DataSource) (int64, Outcome, error)
	SetAttachmentID(ctx context.Context, dataSourceID, attachmentID int64) error
}

type ProviderRepository interface {
	FindProviderByKey(ctx context.Context, normalizedKey string) (*model.Provider, error)
	InsertProvider(ctx context.Context, provider *model.Provider) (int64, error)
}

type EncounterRepository interface {
	// Insert persists an encounter when it is eligible (date, source
	// encounter id, and provider all present) and not yet stored.
	Insert(ctx context.Context, encounter *model.Encounter) (int64, Outcome, error)
	// FindEncounterID resolves the encounter a dependent fact belongs
	// to; the zero ID means no plausible match.
	FindEncounterID(ctx context.Context, patientID int64, query EncounterQuery) (int64, error)
}

type ConditionRepository interface {
	Insert(ctx context.Context, condition *model.Condition, codes []model.ConditionCode) (Outcome, error)
}

type MedicationRepository interface {
	Insert(ctx context.Context, medication *model.Medication) (Outcome, error)
}

type LabResultRepository interface {
	Insert(ctx context.Context, lab *model.LabResult) (Outcome, error)
}

type VitalRepository interface {
	Insert(ctx context.Context, vital *model.Vital) (Outcome, error)
}

type ImmunizationRepository interface {
	Insert(ctx context.Context, immunization *model.Immunization) (Outcome, error)
}

type ProcedureRepository interface {
	Insert(ctx context.Context, procedure *model.Procedure, codes []model.ProcedureCode) (Outcome, error)
}

type ProgressNoteRepository interface {
	Insert(ctx context.Context, note *model.ProgressNote) (Outcome, error)
}

type AllergyRepository interface {
	Insert(ctx context.Context, allergy *model.Allergy) (Outcome, error)
}

type InsuranceRepository interface {
	Insert(ctx context.Context, insurance *model.Insurance) (Outcome, error)
}

type AttachmentRepository interface {
	Insert(ctx context.Context, attachment *model.Attachment) (int64, Outcome, error)
}
