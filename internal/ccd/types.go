package ccd

import "encoding/xml"

// HL7 namespaces and the template/section identifiers the extractors key on.
const (
	CDANamespace = "urn:hl7-org:v3"
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

	// Section LOINC codes
	LOINCProblemList     = "11450-4"
	LOINCPastIllness     = "11348-0"
	LOINCProblemReport   = "29299-5"
	LOINCResults         = "30954-2"
	LOINCVitalSigns      = "8716-3"
	LOINCImmunizations   = "11369-6"
	LOINCPanelComment    = "56850-1"
	LOINCProcedureHx     = "47519-4"
	LOINCInterventions   = "62387-6"
	LOINCProcedureNote   = "29554-3"
	LOINCAllergies       = "48765-2"
	LOINCAllergyIntol    = "50544-6"
	LOINCAllergySummary  = "75305-3"
	LOINCPaymentSources  = "48768-6"
	LOINCCoverageExt     = "55109-3"
	LOINCHealthPlanPay   = "75274-1"

	// Entry template IDs
	TemplateProblemObservation = "2.16.840.1.113883.10.20.22.4.4"
	TemplateMedicationActivity = "2.16.840.1.113883.10.20.22.4.16"
	TemplateAllergyConcern     = "2.16.840.1.113883.10.20.22.4.7"
	TemplateAllergyObservation = "2.16.840.1.113883.10.20.22.4.8"
	TemplateReactionObs        = "2.16.840.1.113883.10.20.22.4.9"
	TemplateSeverityObs        = "2.16.840.1.113883.10.20.22.4.8.2"
	TemplateCoverageActivity   = "2.16.840.1.113883.10.20.22.4.60"
	TemplatePolicyActivity     = "2.16.840.1.113883.10.20.22.4.61"
	TemplateProcedureAct       = "2.16.840.1.113883.10.20.22.4.12"
	TemplateProcedureObs       = "2.16.840.1.113883.10.20.22.4.13"
	TemplateProcedure          = "2.16.840.1.113883.10.20.22.4.14"
	// Pre-C-CDA insurance provider act still emitted by some systems.
	TemplateInsuranceProvider = "2.16.840.1.113883.10.20.1.20"

	// Code system OIDs
	OIDLOINC = "2.16.840.1.113883.6.1"
	OIDCVX   = "2.16.840.1.113883.12.292"
	// Legacy SNOMED/CVX mapping occasionally seen on immunization codes.
	OIDLegacyCVX = "2.16.840.1.113883.6.59"
)

// LOINC codes whose sections carry reason-for-visit narrative.
var reasonForVisitCodes = map[string]bool{
	"29299-5": true, // Reason for visit narrative
	"46241-6": true, // Reason for referral
	"78018-7": true, // Reason for encounter
}

// ClinicalDocument is the root of a CCD.
type ClinicalDocument struct {
	XMLName         xml.Name         `xml:"urn:hl7-org:v3 ClinicalDocument"`
	Title           string           `xml:"title"`
	EffectiveTime   *TimeValue       `xml:"effectiveTime"`
	RecordTarget    *RecordTarget    `xml:"recordTarget"`
	DocumentationOf *DocumentationOf `xml:"documentationOf"`
	ComponentOf     *ComponentOf     `xml:"componentOf"`
	Component       *Component       `xml:"component"`
}

type TemplateID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr"`
}

type InstanceID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr"`
}

// Code is a coded value. OriginalText may carry a narrative reference and
// Translations carry alternate codings.
type Code struct {
	Code           string     `xml:"code,attr"`
	CodeSystem     string     `xml:"codeSystem,attr"`
	CodeSystemName string     `xml:"codeSystemName,attr"`
	DisplayName    string     `xml:"displayName,attr"`
	NullFlavor     string     `xml:"nullFlavor,attr"`
	OriginalText   *Narrative `xml:"originalText"`
	Translations   []Code     `xml:"translation"`
}

type TimeValue struct {
	Value string `xml:"value,attr"`
}

// EffectiveTime covers both point times and intervals; PIVL_TS frequency
// expressions additionally carry a period.
type EffectiveTime struct {
	XSIType      string     `xml:"http://www.w3.org/2001/XMLSchema-instance type,attr"`
	Value        string     `xml:"value,attr"`
	Low          *TimeValue `xml:"low"`
	High         *TimeValue `xml:"high"`
	Period       *Quantity  `xml:"period"`
	OriginalText *Narrative `xml:"originalText"`
}

type Quantity struct {
	Value string `xml:"value,attr"`
	Unit  string `xml:"unit,attr"`
}

// Value is an observation value of any xsi:type; coded values reuse the
// Code attributes and physical quantities use Value/Unit.
type Value struct {
	XSIType        string     `xml:"http://www.w3.org/2001/XMLSchema-instance type,attr"`
	Code           string     `xml:"code,attr"`
	CodeSystem     string     `xml:"codeSystem,attr"`
	CodeSystemName string     `xml:"codeSystemName,attr"`
	DisplayName    string     `xml:"displayName,attr"`
	Value          string     `xml:"value,attr"`
	Unit           string     `xml:"unit,attr"`
	Text           string     `xml:",chardata"`
	Translations   []Code     `xml:"translation"`
}

type RecordTarget struct {
	PatientRole *PatientRole `xml:"patientRole"`
}

type PatientRole struct {
	IDs     []InstanceID `xml:"id"`
	Patient *Patient     `xml:"patient"`
}

type Patient struct {
	Names      []PersonName `xml:"name"`
	GenderCode *Code        `xml:"administrativeGenderCode"`
	BirthTime  *TimeValue   `xml:"birthTime"`
}

// PersonName handles both structured (given/family) and flat text names.
type PersonName struct {
	Text     string   `xml:",chardata"`
	Prefixes []string `xml:"prefix"`
	Given    []string `xml:"given"`
	Family   string   `xml:"family"`
	Suffixes []string `xml:"suffix"`
}

type Author struct {
	Time           *TimeValue      `xml:"time"`
	AssignedAuthor *AssignedEntity `xml:"assignedAuthor"`
}

// AssignedEntity doubles as assignedAuthor/assignedEntity; both carry an
// optional person and represented organization.
type AssignedEntity struct {
	IDs            []InstanceID  `xml:"id"`
	Code           *Code         `xml:"code"`
	AssignedPerson *NamedEntity  `xml:"assignedPerson"`
	Organization   *Organization `xml:"representedOrganization"`
}

type NamedEntity struct {
	Names []PersonName `xml:"name"`
}

type Organization struct {
	IDs   []InstanceID `xml:"id"`
	Names []PersonName `xml:"name"`
}

type Performer struct {
	TypeCode       string          `xml:"typeCode,attr"`
	AssignedEntity *AssignedEntity `xml:"assignedEntity"`
}

type Participant struct {
	TypeCode        string           `xml:"typeCode,attr"`
	AssignedEntity  *AssignedEntity  `xml:"assignedEntity"`
	ParticipantRole *ParticipantRole `xml:"participantRole"`
}

type ParticipantRole struct {
	IDs           []InstanceID   `xml:"id"`
	Code          *Code          `xml:"code"`
	Time          *EffectiveTime `xml:"time"`
	PlayingEntity *PlayingEntity `xml:"playingEntity"`
}

type PlayingEntity struct {
	Code  *Code        `xml:"code"`
	Names []PersonName `xml:"name"`
}

type DocumentationOf struct {
	ServiceEvent *ServiceEvent `xml:"serviceEvent"`
}

type ServiceEvent struct {
	EffectiveTime *EffectiveTime `xml:"effectiveTime"`
	Performers    []Performer    `xml:"performer"`
}

type ComponentOf struct {
	EncompassingEncounter *EncompassingEncounter `xml:"encompassingEncounter"`
}

type EncompassingEncounter struct {
	IDs                   []InstanceID           `xml:"id"`
	EffectiveTime         *EffectiveTime         `xml:"effectiveTime"`
	EncounterParticipants []EncounterParticipant `xml:"encounterParticipant"`
}

type EncounterParticipant struct {
	TypeCode       string          `xml:"typeCode,attr"`
	AssignedEntity *AssignedEntity `xml:"assignedEntity"`
}

type Component struct {
	StructuredBody *StructuredBody `xml:"structuredBody"`
}

type StructuredBody struct {
	Components []BodyComponent `xml:"component"`
}

type BodyComponent struct {
	Section *Section `xml:"section"`
}

type Section struct {
	NullFlavor  string       `xml:"nullFlavor,attr"`
	TemplateIDs []TemplateID `xml:"templateId"`
	Code        *Code        `xml:"code"`
	Title       string       `xml:"title"`
	Text        *Narrative   `xml:"text"`
	Entries     []Entry      `xml:"entry"`
	Components  []BodyComponent `xml:"component"`
}

// Entry wraps the one clinical statement an <entry> carries.
type Entry struct {
	Encounter               *Statement `xml:"encounter"`
	Observation             *Statement `xml:"observation"`
	Organizer               *Statement `xml:"organizer"`
	SubstanceAdministration *Statement `xml:"substanceAdministration"`
	Act                     *Statement `xml:"act"`
	Procedure               *Statement `xml:"procedure"`
}

// Statement is the shared shape of CDA clinical statements (observation,
// act, encounter, procedure, organizer, substanceAdministration). Fields
// not applicable to a given statement kind simply stay zero.
type Statement struct {
	ClassCode           string              `xml:"classCode,attr"`
	MoodCode            string              `xml:"moodCode,attr"`
	NullFlavor          string              `xml:"nullFlavor,attr"`
	TemplateIDs         []TemplateID        `xml:"templateId"`
	IDs                 []InstanceID        `xml:"id"`
	Code                *Code               `xml:"code"`
	Title               string              `xml:"title"`
	Text                *Narrative          `xml:"text"`
	StatusCode          *Code               `xml:"statusCode"`
	EffectiveTimes      []EffectiveTime     `xml:"effectiveTime"`
	PriorityCode        *Code               `xml:"priorityCode"`
	RouteCode           *Code               `xml:"routeCode"`
	DoseQuantity        *Quantity           `xml:"doseQuantity"`
	Values              []Value             `xml:"value"`
	InterpretationCodes []Code              `xml:"interpretationCode"`
	Consumable          *Consumable         `xml:"consumable"`
	Authors             []Author            `xml:"author"`
	Performers          []Performer         `xml:"performer"`
	Participants        []Participant       `xml:"participant"`
	EntryRelationships  []EntryRelationship `xml:"entryRelationship"`
	ReferenceRanges     []ReferenceRange    `xml:"referenceRange"`
	Components          []OrganizerComponent `xml:"component"`
}

type EntryRelationship struct {
	TypeCode    string     `xml:"typeCode,attr"`
	Observation *Statement `xml:"observation"`
	Encounter   *Statement `xml:"encounter"`
	Act         *Statement `xml:"act"`
	Procedure   *Statement `xml:"procedure"`
}

type OrganizerComponent struct {
	Observation *Statement `xml:"observation"`
	Organizer   *Statement `xml:"organizer"`
}

type ReferenceRange struct {
	ObservationRange *ObservationRange `xml:"observationRange"`
}

type ObservationRange struct {
	Text               *Narrative `xml:"text"`
	InterpretationCode *Code      `xml:"interpretationCode"`
}

type Consumable struct {
	ManufacturedProduct *ManufacturedProduct `xml:"manufacturedProduct"`
}

type ManufacturedProduct struct {
	ManufacturedMaterial *ManufacturedMaterial `xml:"manufacturedMaterial"`
}

type ManufacturedMaterial struct {
	Code          *Code        `xml:"code"`
	Names         []PersonName `xml:"name"`
	LotNumberText string       `xml:"lotNumberText"`
}
