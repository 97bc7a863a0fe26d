package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/chartvault/chartvault/internal/ccd"
	"github.com/chartvault/chartvault/internal/model"
	"github.com/chartvault/chartvault/internal/registry"
	"github.com/chartvault/chartvault/internal/repository"
	"github.com/chartvault/chartvault/internal/repository/sqlite"
	"github.com/chartvault/chartvault/pkg/metrics"
)

// Orchestrator sequences one ingestion run: archives are enumerated,
// every document is processed inside its own transaction, and outcomes
// are tallied into a RunSummary. Document- and entity-level problems are
// isolated; only a store that cannot be opened is fatal.
type Orchestrator struct {
	db            *sqlx.DB
	attachmentDir string
	validate      *validator.Validate
	metrics       *metrics.Metrics
	log           zerolog.Logger
}

func New(db *sqlx.DB, attachmentDir string, m *metrics.Metrics, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		db:            db,
		attachmentDir: attachmentDir,
		validate:      validator.New(),
		metrics:       m,
		log:           log.With().Str("component", "pipeline").Logger(),
	}
}

// Run ingests every zip archive under inputDir. The returned summary is
// valid even when individual archives or documents failed.
func (o *Orchestrator) Run(ctx context.Context, inputDir string) (*RunSummary, error) {
	archives, err := filepath.Glob(filepath.Join(inputDir, "*.zip"))
	if err != nil {
		return nil, fmt.Errorf("scan input dir %s: %w", inputDir, err)
	}

	summary := NewRunSummary()
	log := o.log.With().Str("run_id", summary.RunID).Logger()

	for _, archivePath := range archives {
		documents, err := ReadArchive(archivePath)
		if err != nil {
			log.Warn().Err(err).Str("archive", archivePath).Msg("skipping unreadable archive")
			continue
		}
		summary.Archives++
		o.metrics.ArchivesProcessed.Inc()
		archiveName := filepath.Base(archivePath)

		for _, doc := range documents {
			if err := o.processDocument(ctx, log, archiveName, doc, summary); err != nil {
				summary.DocumentsFailed++
				o.metrics.DocumentsProcessed.WithLabelValues("failed").Inc()
				log.Warn().Err(err).
					Str("archive", archiveName).
					Str("document", doc.Name).
					Msg("document failed")
			}
		}
	}

	summary.Log(log)
	return summary, nil
}

// processDocument runs one document through the full sequence inside a
// single transaction: provenance, patient, providers, encounters, then
// every dependent domain. An error return means the transaction rolled
// back and nothing from this document is visible.
func (o *Orchestrator) processDocument(ctx context.Context, log zerolog.Logger, archiveName string, doc Document, summary *RunSummary) error {
	parsed, err := ccd.Parse(doc.Content)
	if err != nil {
		return fmt.Errorf("parse %s: %w", doc.Name, err)
	}
	patient := parsed.ExtractPatient()

	tx, err := o.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	w := &docWriter{
		orchestrator:  o,
		log:           log,
		summary:       summary,
		doc:           parsed,
		patients:      sqlite.NewPatientRepository(tx),
		dataSources:   sqlite.NewDataSourceRepository(tx),
		encounters:    sqlite.NewEncounterRepository(tx),
		conditions:    sqlite.NewConditionRepository(tx),
		medications:   sqlite.NewMedicationRepository(tx),
		labs:          sqlite.NewLabResultRepository(tx),
		vitals:        sqlite.NewVitalRepository(tx),
		immunizations: sqlite.NewImmunizationRepository(tx),
		procedures:    sqlite.NewProcedureRepository(tx),
		notes:         sqlite.NewProgressNoteRepository(tx),
		allergies:     sqlite.NewAllergyRepository(tx),
		insurance:     sqlite.NewInsuranceRepository(tx),
		attachments:   sqlite.NewAttachmentRepository(tx),
		resolver:      registry.NewResolver(sqlite.NewProviderRepository(tx), log),
	}

	sum := sha256.Sum256(doc.Content)
	source := model.DataSource{
		OriginalFilename:   doc.Name,
		IngestedAt:         time.Now().UTC().Format(time.RFC3339),
		FileSHA256:         hex.EncodeToString(sum[:]),
		SourceArchive:      &archiveName,
		DocumentCreated:    doc.Meta.DocumentCreated,
		RepositoryUniqueID: doc.Meta.RepositoryUniqueID,
		DocumentHash:       doc.Meta.DocumentHash,
		DocumentSize:       doc.Meta.DocumentSize,
		AuthorInstitution:  doc.Meta.AuthorInstitution,
	}
	dataSourceID, outcome, err := w.dataSources.Register(ctx, &source)
	if err != nil {
		return fmt.Errorf("register provenance: %w", err)
	}
	summary.Record("data_source", outcome)
	w.dataSourceID = &dataSourceID

	if !patient.Identified() {
		summary.DocumentsRejected++
		o.metrics.DocumentsProcessed.WithLabelValues("rejected").Inc()
		log.Warn().
			Str("archive", archiveName).
			Str("document", doc.Name).
			Msg("document names no patient, skipping clinical content")
		return tx.Commit()
	}

	patientID, outcome, err := w.patients.Upsert(ctx, &model.Patient{
		GivenName:    nullable(patient.Given),
		FamilyName:   nullable(patient.Family),
		BirthDate:    nullable(patient.BirthDate),
		Gender:       nullable(patient.Gender),
		SourceFile:   &archiveName,
		DataSourceID: w.dataSourceID,
	})
	if err != nil {
		return fmt.Errorf("persist patient: %w", err)
	}
	summary.Record("patient", outcome)
	w.patientID = patientID

	w.persistEncounters(ctx)
	w.persistConditions(ctx)
	w.persistProcedures(ctx)
	w.persistMedications(ctx)
	w.persistLabs(ctx)
	w.persistVitals(ctx)
	w.persistImmunizations(ctx)
	w.persistProgressNotes(ctx)
	w.persistAllergies(ctx)
	w.persistInsurance(ctx)

	if err := w.retainAttachment(ctx, doc, source.FileSHA256, dataSourceID); err != nil {
		log.Warn().Err(err).Str("document", doc.Name).Msg("attachment not retained")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", doc.Name, err)
	}
	summary.DocumentsProcessed++
	o.metrics.DocumentsProcessed.WithLabelValues("processed").Inc()
	return nil
}

// docWriter binds the per-document transaction, repositories, and
// resolved IDs together so the persist methods stay short.
type docWriter struct {
	orchestrator *Orchestrator
	log          zerolog.Logger
	summary      *RunSummary
	doc          *ccd.Document

	patientID    int64
	dataSourceID *int64

	patients      repository.PatientRepository
	dataSources   repository.DataSourceRepository
	encounters    repository.EncounterRepository
	conditions    repository.ConditionRepository
	medications   repository.MedicationRepository
	labs          repository.LabResultRepository
	vitals        repository.VitalRepository
	immunizations repository.ImmunizationRepository
	procedures    repository.ProcedureRepository
	notes         repository.ProgressNoteRepository
	allergies     repository.AllergyRepository
	insurance     repository.InsuranceRepository
	attachments   repository.AttachmentRepository
	resolver      *registry.Resolver
}

// record tallies the outcome in both the run summary and prometheus.
func (w *docWriter) record(entity string, outcome repository.Outcome) {
	w.summary.Record(entity, outcome)
	w.orchestrator.metrics.EntityOutcomes.WithLabelValues(entity, outcome.String()).Inc()
}

// skip logs an entity-level problem and counts the candidate as skipped.
// Nothing at this level aborts the document.
func (w *docWriter) skip(entity string, err error) {
	w.log.Warn().Err(err).Str("entity", entity).Msg("candidate skipped")
	w.record(entity, repository.OutcomeSkipped)
}

func (w *docWriter) resolveProvider(ctx context.Context, name string) *int64 {
	return w.resolve(ctx, name, model.ProviderPerson)
}

func (w *docWriter) resolveOrganization(ctx context.Context, name string) *int64 {
	return w.resolve(ctx, name, model.ProviderOrganization)
}

func (w *docWriter) resolve(ctx context.Context, name string, entityType model.ProviderEntityType) *int64 {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	id, err := w.resolver.Resolve(ctx, registry.Candidate{Name: name, EntityType: entityType})
	if err != nil {
		w.log.Warn().Err(err).Str("name", name).Msg("provider unresolved, linking null")
		return nil
	}
	if id == 0 {
		return nil
	}
	return &id
}

// linkEncounter resolves the encounter a dependent fact belongs to. A
// nil return links the fact to no encounter rather than guessing.
func (w *docWriter) linkEncounter(ctx context.Context, date, sourceID string, providerID *int64) *int64 {
	if date == "" && sourceID == "" && providerID == nil {
		return nil
	}
	id, err := w.encounters.FindEncounterID(ctx, w.patientID, repository.EncounterQuery{
		EncounterDate:     date,
		SourceEncounterID: sourceID,
		ProviderID:        providerID,
	})
	if err != nil {
		w.log.Warn().Err(err).Msg("encounter lookup failed, linking null")
		return nil
	}
	if id == 0 {
		return nil
	}
	return &id
}

func (w *docWriter) persistEncounters(ctx context.Context) {
	for _, entry := range w.doc.ExtractEncounters() {
		providerID := w.resolveProvider(ctx, entry.Provider)
		organizationID := w.resolveOrganization(ctx, entry.Organization)
		linked := providerID
		if linked == nil {
			linked = organizationID
		}
		_, outcome, err := w.encounters.Insert(ctx, &model.Encounter{
			PatientID:         w.patientID,
			EncounterDate:     nullable(firstNonEmpty(entry.Start, entry.End)),
			ProviderID:        linked,
			OrganizationID:    organizationID,
			SourceEncounterID: nullable(entry.SourceID),
			EncounterType:     nullable(entry.Type),
			Notes:             nullable(entry.Notes),
			ReasonForVisit:    nullable(entry.ReasonForVisit),
			DataSourceID:      w.dataSourceID,
		})
		if err != nil {
			w.skip("encounter", err)
			continue
		}
		w.record("encounter", outcome)
	}
}

func (w *docWriter) persistConditions(ctx context.Context) {
	for _, entry := range w.doc.ExtractConditions() {
		providerID := w.resolveProvider(ctx, entry.Provider)
		encounterID := w.linkEncounter(ctx,
			firstNonEmpty(entry.EncounterStart, entry.Start, entry.AuthorTime),
			entry.EncounterSourceID, providerID)
		if encounterID == nil && entry.EncounterEnd != "" {
			encounterID = w.linkEncounter(ctx, entry.EncounterEnd, entry.EncounterSourceID, providerID)
		}

		var primary ccd.CodeRef
		if len(entry.Codes) > 0 {
			primary = entry.Codes[0]
		}
		name := firstNonEmpty(entry.Name, primary.Display, primary.Code)
		if name == "" {
			w.record("condition", repository.OutcomeSkipped)
			continue
		}

		outcome, err := w.conditions.Insert(ctx, &model.Condition{
			PatientID:    w.patientID,
			Name:         name,
			OnsetDate:    nullable(entry.Start),
			Status:       nullable(entry.Status),
			Notes:        nullable(entry.Notes),
			ProviderID:   providerID,
			EncounterID:  encounterID,
			Code:         nullable(primary.Code),
			CodeSystem:   nullable(primary.System),
			CodeDisplay:  nullable(primary.Display),
			DataSourceID: w.dataSourceID,
		}, conditionCodes(entry.Codes))
		if err != nil {
			w.skip("condition", err)
			continue
		}
		w.record("condition", outcome)
	}
}

func (w *docWriter) persistProcedures(ctx context.Context) {
	for _, entry := range w.doc.ExtractProcedures() {
		if err := w.orchestrator.validate.Struct(entry); err != nil {
			w.record("procedure", repository.OutcomeSkipped)
			continue
		}
		providerID := w.resolveProvider(ctx, entry.Provider)
		date := firstNonEmpty(entry.Date, entry.AuthorTime)
		encounterID := w.linkEncounter(ctx, date, entry.EncounterSourceID, providerID)

		var primary ccd.CodeRef
		if len(entry.Codes) > 0 {
			primary = entry.Codes[0]
		}

		outcome, err := w.procedures.Insert(ctx, &model.Procedure{
			PatientID:    w.patientID,
			EncounterID:  encounterID,
			ProviderID:   providerID,
			Name:         entry.Name,
			Code:         nullable(primary.Code),
			CodeSystem:   nullable(primary.System),
			CodeDisplay:  nullable(primary.Display),
			Status:       nullable(entry.Status),
			Date:         nullable(date),
			Notes:        nullable(entry.Notes),
			DataSourceID: w.dataSourceID,
		}, procedureCodes(entry.Codes))
		if err != nil {
			w.skip("procedure", err)
			continue
		}
		w.record("procedure", outcome)
	}
}

func (w *docWriter) persistMedications(ctx context.Context) {
	for _, entry := range w.doc.ExtractMedications() {
		if err := w.orchestrator.validate.Struct(entry); err != nil {
			w.record("medication", repository.OutcomeSkipped)
			continue
		}
		providerID := w.resolveProvider(ctx, entry.Provider)
		encounterID := w.linkEncounter(ctx,
			firstNonEmpty(entry.Start, entry.End, entry.AuthorTime), "", providerID)

		notes := entry.Notes
		if entry.RxNorm != "" {
			if notes != "" {
				notes = fmt.Sprintf("%s (RxNorm: %s)", notes, entry.RxNorm)
			} else {
				notes = fmt.Sprintf("RxNorm: %s", entry.RxNorm)
			}
		}

		outcome, err := w.medications.Insert(ctx, &model.Medication{
			PatientID:    w.patientID,
			EncounterID:  encounterID,
			Name:         entry.Name,
			Dose:         nullable(entry.Dose),
			Route:        nullable(entry.Route),
			Frequency:    nullable(entry.Frequency),
			StartDate:    nullable(entry.Start),
			EndDate:      nullable(entry.End),
			Status:       nullable(entry.Status),
			Notes:        nullable(notes),
			DataSourceID: w.dataSourceID,
		})
		if err != nil {
			w.skip("medication", err)
			continue
		}
		w.record("medication", outcome)
	}
}

func (w *docWriter) persistLabs(ctx context.Context) {
	for _, entry := range w.doc.ExtractLabs() {
		if err := w.orchestrator.validate.Struct(entry); err != nil {
			w.record("lab_result", repository.OutcomeSkipped)
			continue
		}
		orderingID := w.resolveProvider(ctx, entry.OrderingProvider)
		performingID := w.resolveOrganization(ctx, entry.PerformingOrg)

		encounterID := w.linkEncounter(ctx,
			firstNonEmpty(entry.EncounterStart, entry.Date),
			entry.EncounterSourceID, orderingID)
		if encounterID == nil {
			encounterID = w.linkEncounter(ctx,
				firstNonEmpty(entry.EncounterEnd, entry.Date),
				entry.EncounterSourceID, performingID)
		}

		outcome, err := w.labs.Insert(ctx, &model.LabResult{
			PatientID:          w.patientID,
			EncounterID:        encounterID,
			LoincCode:          entry.Loinc,
			TestName:           nullable(entry.TestName),
			ResultValue:        nullable(entry.Value),
			Unit:               nullable(entry.Unit),
			ReferenceRange:     nullable(entry.ReferenceRange),
			AbnormalFlag:       nullable(entry.AbnormalFlag),
			Date:               nullable(entry.Date),
			OrderingProviderID: orderingID,
			PerformingOrgID:    performingID,
			DataSourceID:       w.dataSourceID,
		})
		if err != nil {
			w.skip("lab_result", err)
			continue
		}
		w.record("lab_result", outcome)
	}
}

func (w *docWriter) persistVitals(ctx context.Context) {
	for _, entry := range w.doc.ExtractVitals() {
		if entry.Type == "" || entry.Value == "" {
			w.record("vital", repository.OutcomeSkipped)
			continue
		}
		providerID := w.resolveProvider(ctx, entry.Provider)
		encounterID := w.linkEncounter(ctx,
			firstNonEmpty(entry.EncounterStart, entry.Date),
			entry.EncounterSourceID, providerID)
		if encounterID == nil && entry.EncounterEnd != "" {
			encounterID = w.linkEncounter(ctx, entry.EncounterEnd, entry.EncounterSourceID, providerID)
		}

		outcome, err := w.vitals.Insert(ctx, &model.Vital{
			PatientID:    w.patientID,
			EncounterID:  encounterID,
			VitalType:    entry.Type,
			Value:        entry.Value,
			Unit:         nullable(entry.Unit),
			Date:         nullable(entry.Date),
			DataSourceID: w.dataSourceID,
		})
		if err != nil {
			w.skip("vital", err)
			continue
		}
		w.record("vital", outcome)
	}
}

func (w *docWriter) persistImmunizations(ctx context.Context) {
	for _, entry := range w.doc.ExtractImmunizations() {
		if entry.VaccineName == "" && len(entry.CvxCodes) == 0 {
			w.record("immunization", repository.OutcomeSkipped)
			continue
		}
		var cvx *string
		var notes *string
		if len(entry.CvxCodes) > 0 {
			cvx = &entry.CvxCodes[0]
			if len(entry.CvxCodes) > 1 {
				extra := "Also coded: " + strings.Join(entry.CvxCodes[1:], ", ")
				notes = &extra
			}
		}

		outcome, err := w.immunizations.Insert(ctx, &model.Immunization{
			PatientID:        w.patientID,
			VaccineName:      nullable(entry.VaccineName),
			CvxCode:          cvx,
			DateAdministered: nullable(entry.Date),
			Status:           nullable(entry.Status),
			LotNumber:        nullable(entry.LotNumber),
			Notes:            notes,
			DataSourceID:     w.dataSourceID,
		})
		if err != nil {
			w.skip("immunization", err)
			continue
		}
		w.record("immunization", outcome)
	}
}

func (w *docWriter) persistProgressNotes(ctx context.Context) {
	for _, entry := range w.doc.ExtractProgressNotes() {
		if err := w.orchestrator.validate.Struct(entry); err != nil {
			w.record("progress_note", repository.OutcomeSkipped)
			continue
		}
		providerID := w.resolveProvider(ctx, entry.Provider)
		encounterID := w.linkEncounter(ctx, entry.EncounterDate, "", providerID)

		sum := sha256.Sum256([]byte(entry.Text))
		note := model.ProgressNote{
			PatientID:    w.patientID,
			EncounterID:  encounterID,
			ProviderID:   providerID,
			NoteTitle:    nullable(entry.Title),
			NoteDatetime: nullable(entry.NoteDatetime),
			NoteText:     entry.Text,
			NoteHash:     hex.EncodeToString(sum[:]),
			SourceNoteID: nullable(entry.SourceID),
			DataSourceID: w.dataSourceID,
		}
		outcome, err := w.notes.Insert(ctx, &note)
		if err != nil {
			w.skip("progress_note", err)
			continue
		}
		w.record("progress_note", outcome)
	}
}

func (w *docWriter) persistAllergies(ctx context.Context) {
	for _, entry := range w.doc.ExtractAllergies() {
		if entry.Substance == "" {
			w.record("allergy", repository.OutcomeSkipped)
			continue
		}
		providerID := w.resolveProvider(ctx, entry.Provider)
		encounterID := w.linkEncounter(ctx,
			firstNonEmpty(entry.EncounterStart, entry.Onset),
			entry.EncounterSourceID, providerID)
		if encounterID == nil && entry.EncounterEnd != "" {
			encounterID = w.linkEncounter(ctx, entry.EncounterEnd, entry.EncounterSourceID, providerID)
		}

		outcome, err := w.allergies.Insert(ctx, &model.Allergy{
			PatientID:            w.patientID,
			EncounterID:          encounterID,
			ProviderID:           providerID,
			Substance:            nullable(entry.Substance),
			SubstanceCode:        nullable(entry.SubstanceCode),
			SubstanceCodeSystem:  nullable(entry.SubstanceCodeSystem),
			SubstanceCodeDisplay: nullable(entry.SubstanceCodeDisplay),
			Reaction:             nullable(entry.Reaction),
			ReactionCode:         nullable(entry.ReactionCode),
			ReactionCodeSystem:   nullable(entry.ReactionCodeSystem),
			Severity:             nullable(entry.Severity),
			Criticality:          nullable(entry.Criticality),
			Status:               nullable(entry.Status),
			OnsetDate:            nullable(entry.Onset),
			NotedDate:            nullable(entry.NotedDate),
			SourceAllergyID:      nullable(entry.SourceAllergyID),
			Notes:                nullable(entry.Notes),
			DataSourceID:         w.dataSourceID,
		})
		if err != nil {
			w.skip("allergy", err)
			continue
		}
		w.record("allergy", outcome)
	}
}

func (w *docWriter) persistInsurance(ctx context.Context) {
	for _, entry := range w.doc.ExtractInsurance() {
		outcome, err := w.insurance.Insert(ctx, &model.Insurance{
			PatientID:      w.patientID,
			PayerName:      nullable(entry.PayerName),
			PayerID:        nullable(entry.PayerID),
			PlanName:       nullable(entry.PlanName),
			CoverageType:   nullable(entry.CoverageType),
			PolicyType:     nullable(entry.PolicyType),
			MemberID:       nullable(entry.MemberID),
			GroupNumber:    nullable(entry.GroupNumber),
			SubscriberID:   nullable(entry.SubscriberID),
			SubscriberName: nullable(entry.SubscriberName),
			Relationship:   nullable(entry.Relationship),
			CoverageStart:  nullable(entry.CoverageStart),
			CoverageEnd:    nullable(entry.CoverageEnd),
			Status:         nullable(entry.Status),
			SourcePolicyID: nullable(entry.SourcePolicyID),
			Notes:          nullable(entry.Notes),
			DataSourceID:   w.dataSourceID,
		})
		if err != nil {
			w.skip("insurance", err)
			continue
		}
		w.record("insurance", outcome)
	}
}

// retainAttachment copies the raw document into the attachment directory
// and links the row back to its provenance record. Retention is skipped
// entirely when no directory is configured.
func (w *docWriter) retainAttachment(ctx context.Context, doc Document, sha string, dataSourceID int64) error {
	dir := w.orchestrator.attachmentDir
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create attachment dir: %w", err)
	}
	filePath := filepath.Join(dir, sha+".xml")
	if err := os.WriteFile(filePath, doc.Content, 0o644); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}

	mimeType := "text/xml"
	attachmentID, outcome, err := w.attachments.Insert(ctx, &model.Attachment{
		PatientID:    w.patientID,
		FilePath:     filePath,
		MimeType:     &mimeType,
		Description:  &doc.Name,
		DataSourceID: &dataSourceID,
	})
	if err != nil {
		return err
	}
	w.record("attachment", outcome)
	if attachmentID == 0 {
		return nil
	}
	return w.dataSources.SetAttachmentID(ctx, dataSourceID, attachmentID)
}

func conditionCodes(refs []ccd.CodeRef) []model.ConditionCode {
	out := make([]model.ConditionCode, 0, len(refs))
	for _, ref := range refs {
		if ref.Code == "" {
			continue
		}
		out = append(out, model.ConditionCode{
			Code:        ref.Code,
			CodeSystem:  nullable(ref.System),
			DisplayName: nullable(ref.Display),
		})
	}
	return out
}

func procedureCodes(refs []ccd.CodeRef) []model.ProcedureCode {
	out := make([]model.ProcedureCode, 0, len(refs))
	for _, ref := range refs {
		if ref.Code == "" {
			continue
		}
		out = append(out, model.ProcedureCode{
			Code:        ref.Code,
			CodeSystem:  nullable(ref.System),
			DisplayName: nullable(ref.Display),
		})
	}
	return out
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
