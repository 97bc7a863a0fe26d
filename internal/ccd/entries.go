package ccd

// Candidate records produced by the extractors. Fields tagged required
// are what the persistence layer validates before attempting an insert;
// everything else degrades to null in the store.

// PatientInfo is the demographics block from the document header. A
// document yielding neither a given nor a family name is rejected whole.
type PatientInfo struct {
	Given     string
	Family    string
	BirthDate string
	Gender    string
}

// Identified reports whether the document names a usable patient.
func (p PatientInfo) Identified() bool {
	return p.Given != "" || p.Family != ""
}

// CodeRef is one external coding of a clinical fact.
type CodeRef struct {
	Code    string `validate:"required"`
	System  string
	Display string
}

// EncounterEntry is a candidate clinical visit.
type EncounterEntry struct {
	Code           string
	Type           string
	Status         string
	Mood           string
	Start          string
	End            string
	Provider       string
	Organization   string
	Location       string
	Notes          string
	SourceID       string
	ReasonForVisit string
}

// ConditionEntry is a candidate problem-list entry.
type ConditionEntry struct {
	Name              string
	Codes             []CodeRef
	Status            string
	Start             string
	End               string
	Notes             string
	Provider          string
	AuthorTime        string
	EncounterSourceID string
	EncounterStart    string
	EncounterEnd      string
}

// MedicationEntry is a candidate medication administration.
type MedicationEntry struct {
	Name       string `validate:"required"`
	RxNorm     string
	Dose       string
	Route      string
	Frequency  string
	Start      string
	End        string
	Status     string
	Notes      string
	Provider   string
	AuthorTime string
	SourceID   string
}

// LabEntry is a candidate laboratory observation.
type LabEntry struct {
	Loinc             string `validate:"required"`
	TestName          string
	Value             string `validate:"required"`
	Unit              string
	ReferenceRange    string
	AbnormalFlag      string
	Date              string
	OrderingProvider  string
	PerformingOrg     string
	EncounterSourceID string
	EncounterStart    string
	EncounterEnd      string
}

// VitalEntry is a candidate vital sign measurement.
type VitalEntry struct {
	Code              string
	Type              string
	Value             string `validate:"required"`
	Unit              string
	Status            string
	Date              string
	Provider          string
	EncounterSourceID string
	EncounterStart    string
	EncounterEnd      string
}

// ImmunizationEntry is a candidate vaccine administration.
type ImmunizationEntry struct {
	VaccineName string
	CvxCodes    []string
	Date        string
	Status      string
	ProductName string
	LotNumber   string
}

// ProcedureEntry is a candidate performed procedure.
type ProcedureEntry struct {
	Name              string `validate:"required"`
	Codes             []CodeRef
	Status            string
	Date              string
	Notes             string
	Provider          string
	AuthorTime        string
	EncounterSourceID string
}

// NoteEntry is a candidate progress note.
type NoteEntry struct {
	Title         string
	Provider      string
	NoteDatetime  string
	EncounterDate string
	Text          string `validate:"required"`
	SourceID      string
}

// AllergyEntry is a candidate allergy/intolerance observation.
type AllergyEntry struct {
	Substance            string
	SubstanceCode        string
	SubstanceCodeSystem  string
	SubstanceCodeDisplay string
	Reaction             string
	ReactionCode         string
	ReactionCodeSystem   string
	Severity             string
	Criticality          string
	Status               string
	Onset                string
	NotedDate            string
	Notes                string
	Provider             string
	SourceAllergyID      string
	EncounterSourceID    string
	EncounterStart       string
	EncounterEnd         string
}

// InsuranceEntry is a candidate coverage fact.
type InsuranceEntry struct {
	PayerName      string
	PayerID        string
	PlanName       string
	CoverageType   string
	PolicyType     string
	MemberID       string
	GroupNumber    string
	SubscriberID   string
	SubscriberName string
	Relationship   string
	CoverageStart  string
	CoverageEnd    string
	Status         string
	SourcePolicyID string
	Notes          string
}
