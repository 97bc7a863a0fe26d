package ccd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docHeader = `
<recordTarget><patientRole><patient>
  <name><given>Maria</given><family>Gonzalez</family></name>
  <administrativeGenderCode code="F" displayName="Female"/>
  <birthTime value="19800101"/>
</patient></patientRole></recordTarget>`

func parseDoc(t *testing.T, body string) *Document {
	t.Helper()
	raw := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<ClinicalDocument xmlns="urn:hl7-org:v3" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		docHeader + body + `</ClinicalDocument>`
	doc, err := Parse([]byte(raw))
	require.NoError(t, err)
	return doc
}

func sections(inner string) string {
	return `<component><structuredBody>` + inner + `</structuredBody></component>`
}

func TestParseRejectsEmptyAndMalformed(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err)
	_, err = Parse([]byte("not xml at all <"))
	assert.Error(t, err)
}

func TestExtractPatient(t *testing.T) {
	doc := parseDoc(t, sections(""))
	patient := doc.ExtractPatient()
	assert.Equal(t, "Maria", patient.Given)
	assert.Equal(t, "Gonzalez", patient.Family)
	assert.Equal(t, "19800101", patient.BirthDate)
	assert.Equal(t, "F", patient.Gender)
	assert.True(t, patient.Identified())
}

func TestExtractPatientUnidentified(t *testing.T) {
	raw := `<?xml version="1.0"?><ClinicalDocument xmlns="urn:hl7-org:v3">` +
		`<recordTarget><patientRole><patient><birthTime value="19700101"/></patient></patientRole></recordTarget>` +
		`</ClinicalDocument>`
	doc, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.False(t, doc.ExtractPatient().Identified())
}

func TestExtractEncounters(t *testing.T) {
	doc := parseDoc(t, `
<componentOf><encompassingEncounter>
  <effectiveTime><low value="20240310090000"/><high value="20240310100000"/></effectiveTime>
  <encounterParticipant typeCode="ATND"><assignedEntity>
    <assignedPerson><name><given>Sarah</given><family>Chen</family></name></assignedPerson>
    <representedOrganization><name>Lakeside Medical Center</name></representedOrganization>
  </assignedEntity></encounterParticipant>
</encompassingEncounter></componentOf>`+
		sections(`
<component><section>
  <code code="46240-8"/><title>Encounters</title>
  <entry><encounter classCode="ENC" moodCode="EVN">
    <id extension="ENC-100" root="1.2.3"/>
    <code code="99213" displayName="Office outpatient visit"/>
    <statusCode code="completed"/>
    <effectiveTime><low value="20240310090000"/></effectiveTime>
  </encounter></entry>
  <entry><encounter classCode="ENC" moodCode="APT">
    <effectiveTime><low value="20240601"/></effectiveTime>
  </encounter></entry>
</section></component>
<component><section>
  <code code="29299-5"/><title>Reason for Visit</title>
  <text><paragraph>Chest pain</paragraph><paragraph>Chest pain</paragraph><paragraph>Follow up</paragraph></text>
</section></component>`))

	encounters := doc.ExtractEncounters()
	require.Len(t, encounters, 1, "appointment entries must be excluded")

	enc := encounters[0]
	assert.Equal(t, "ENC-100", enc.SourceID)
	assert.Equal(t, "99213", enc.Code)
	assert.Equal(t, "Office outpatient visit", enc.Type)
	assert.Equal(t, "completed", enc.Status)
	assert.Equal(t, "20240310090000", enc.Start)
	assert.Equal(t, "20240310100000", enc.End)
	assert.Equal(t, "Sarah Chen", enc.Provider)
	assert.Equal(t, "Lakeside Medical Center", enc.Organization)
	assert.Equal(t, "Chest pain; Follow up", enc.ReasonForVisit)
	assert.Equal(t, "Status: completed | Mood: EVN | Encounter ID: ENC-100", enc.Notes)
}

func TestExtractEncountersRejectsBirthDateTimestamp(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="46240-8"/><title>Encounters</title>
  <entry><encounter classCode="ENC" moodCode="EVN">
    <id extension="ENC-1" root="1.2.3"/>
    <effectiveTime><low value="19800101"/></effectiveTime>
  </encounter></entry>
</section></component>`))

	encounters := doc.ExtractEncounters()
	require.Len(t, encounters, 1)
	assert.Empty(t, encounters[0].Start, "patient birth date is never a visit date")
	assert.Empty(t, encounters[0].End)
}

func TestExtractConditions(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="11450-4"/><title>Problems</title>
  <text><content ID="problem1">Essential hypertension</content></text>
  <entry><act classCode="ACT" moodCode="EVN">
    <effectiveTime><low value="20230105"/></effectiveTime>
    <entryRelationship typeCode="SUBJ"><observation classCode="OBS" moodCode="EVN">
      <templateId root="2.16.840.1.113883.10.20.22.4.4"/>
      <text><reference value="#problem1"/></text>
      <statusCode code="completed"/>
      <effectiveTime><low value="20230110"/></effectiveTime>
      <value xsi:type="CD" code="59621000" codeSystem="2.16.840.1.113883.6.96" displayName="Essential hypertension"/>
      <entryRelationship typeCode="REFR"><observation classCode="OBS" moodCode="EVN">
        <code code="33999-4"/>
        <value xsi:type="CE" code="55561003" displayName="active"/>
      </observation></entryRelationship>
    </observation></entryRelationship>
  </act></entry>
  <entry><act classCode="ACT" moodCode="EVN">
    <entryRelationship typeCode="SUBJ"><observation classCode="OBS" moodCode="EVN">
      <templateId root="2.16.840.1.113883.10.20.22.4.4"/>
      <text><reference value="#problem1"/></text>
      <effectiveTime><low value="20230110"/></effectiveTime>
      <value xsi:type="CD" code="59621000" codeSystem="2.16.840.1.113883.6.96" displayName="Essential hypertension"/>
    </observation></entryRelationship>
  </act></entry>
</section></component>`))

	conditions := doc.ExtractConditions()
	require.Len(t, conditions, 1, "duplicate problems collapse to the first occurrence")

	cond := conditions[0]
	assert.Equal(t, "Essential hypertension", cond.Name)
	assert.Equal(t, "Active", cond.Status)
	assert.Equal(t, "20230110", cond.Start)
	require.Len(t, cond.Codes, 1)
	assert.Equal(t, "59621000", cond.Codes[0].Code)
	assert.Equal(t, "2.16.840.1.113883.6.96", cond.Codes[0].System)
	assert.Equal(t, "Essential hypertension", cond.Notes)
}

func TestExtractConditionsIgnoresUntemplatedObservations(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="11450-4"/><title>Problems</title>
  <entry><observation classCode="OBS" moodCode="EVN">
    <value xsi:type="CD" code="12345" displayName="Not a problem observation"/>
  </observation></entry>
</section></component>`))
	assert.Empty(t, doc.ExtractConditions())
}

func TestExtractMedications(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="10160-0"/><title>Medications</title>
  <text><content ID="sig1">Take 1 tablet by mouth daily</content></text>
  <entry><substanceAdministration classCode="SBADM" moodCode="EVN">
    <templateId root="2.16.840.1.113883.10.20.22.4.16"/>
    <id extension="MED-1" root="9.9"/>
    <text><reference value="#sig1"/></text>
    <statusCode code="active"/>
    <effectiveTime xsi:type="IVL_TS"><low value="20240201"/><high value="20240301"/></effectiveTime>
    <effectiveTime xsi:type="PIVL_TS"><period value="12" unit="h"/></effectiveTime>
    <routeCode code="C38288" displayName="Oral"/>
    <doseQuantity value="1" unit="tablet"/>
    <consumable><manufacturedProduct><manufacturedMaterial>
      <code code="197361" codeSystem="2.16.840.1.113883.6.88" displayName="Lisinopril 10 MG Oral Tablet"/>
    </manufacturedMaterial></manufacturedProduct></consumable>
  </substanceAdministration></entry>
  <entry><substanceAdministration classCode="SBADM" moodCode="EVN">
    <templateId root="2.16.840.1.113883.10.20.22.4.16"/>
    <statusCode code="active"/>
  </substanceAdministration></entry>
</section></component>`))

	meds := doc.ExtractMedications()
	require.Len(t, meds, 1, "nameless medications are dropped")

	med := meds[0]
	assert.Equal(t, "Lisinopril 10 MG Oral Tablet", med.Name)
	assert.Equal(t, "197361", med.RxNorm)
	assert.Equal(t, "1 tablet", med.Dose)
	assert.Equal(t, "Oral", med.Route)
	assert.Equal(t, "Every 12 h", med.Frequency)
	assert.Equal(t, "20240201", med.Start)
	assert.Equal(t, "20240301", med.End)
	assert.Equal(t, "Active", med.Status)
	assert.Equal(t, "Take 1 tablet by mouth daily", med.Notes)
	assert.Equal(t, "MED-1", med.SourceID)
}

func TestExtractLabs(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="30954-2"/><title>Results</title>
  <entry><organizer classCode="BATTERY" moodCode="EVN">
    <author><time value="20240315"/><assignedAuthor>
      <assignedPerson><name><given>James</given><family>Park</family></name></assignedPerson>
    </assignedAuthor></author>
    <performer><assignedEntity>
      <representedOrganization><name>Quest Diagnostics</name></representedOrganization>
    </assignedEntity></performer>
    <component><observation classCode="OBS" moodCode="EVN">
      <code code="2345-7" codeSystem="2.16.840.1.113883.6.1" displayName="Glucose"/>
      <effectiveTime value="20240315083000"/>
      <value xsi:type="PQ" value="105" unit="mg/dL"/>
      <interpretationCode code="H"/>
      <referenceRange><observationRange><text>70-99 mg/dL</text></observationRange></referenceRange>
    </observation></component>
    <component><observation classCode="OBS" moodCode="EVN">
      <code code="56850-1" codeSystem="2.16.840.1.113883.6.1"/>
      <value xsi:type="ST">ABNORMAL</value>
    </observation></component>
    <component><observation classCode="OBS" moodCode="EVN">
      <code code="718-7" codeSystem="2.16.840.1.113883.6.1" displayName="Hemoglobin"/>
      <value xsi:type="PQ" value="13.5" unit="g/dL"/>
    </observation></component>
    <component><observation classCode="OBS" moodCode="EVN">
      <code code="XYZ-1" codeSystem="9.9.9" displayName="Not LOINC"/>
      <value xsi:type="PQ" value="1" unit="x"/>
    </observation></component>
  </organizer></entry>
</section></component>`))

	labs := doc.ExtractLabs()
	require.Len(t, labs, 2, "panel comments and non-LOINC codes are not results")

	glucose := labs[0]
	assert.Equal(t, "2345-7", glucose.Loinc)
	assert.Equal(t, "Glucose", glucose.TestName)
	assert.Equal(t, "105", glucose.Value)
	assert.Equal(t, "mg/dL", glucose.Unit)
	assert.Equal(t, "70-99 mg/dL", glucose.ReferenceRange)
	assert.Equal(t, "H", glucose.AbnormalFlag)
	assert.Equal(t, "20240315083000", glucose.Date)
	assert.Equal(t, "James Park", glucose.OrderingProvider)
	assert.Equal(t, "Quest Diagnostics", glucose.PerformingOrg)

	hemoglobin := labs[1]
	assert.Equal(t, "718-7", hemoglobin.Loinc)
	assert.Equal(t, "ABNORMAL", hemoglobin.AbnormalFlag, "panel comment backfills the organizer flag")
}

func TestExtractLabsSkipsNullFlavorSection(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section nullFlavor="NI">
  <code code="30954-2"/><title>Results</title>
</section></component>`))
	assert.Empty(t, doc.ExtractLabs())
}

func TestExtractVitals(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="8716-3"/><title>Vital Signs</title>
  <entry><organizer classCode="CLUSTER" moodCode="EVN">
    <id extension="VS-1" root="5.5"/>
    <effectiveTime value="20240310091500"/>
    <component><observation classCode="OBS" moodCode="EVN">
      <code code="8867-4" codeSystem="2.16.840.1.113883.6.1" displayName="Heart Rate"/>
      <statusCode code="completed"/>
      <value xsi:type="PQ" value="72" unit="/min"/>
    </observation></component>
    <component><observation classCode="OBS" moodCode="EVN">
      <code code="8480-6" codeSystem="2.16.840.1.113883.6.1" displayName="Systolic BP"/>
    </observation></component>
  </organizer></entry>
</section></component>`))

	vitals := doc.ExtractVitals()
	require.Len(t, vitals, 1, "valueless observations are dropped")

	vital := vitals[0]
	assert.Equal(t, "Heart Rate", vital.Type)
	assert.Equal(t, "72", vital.Value)
	assert.Equal(t, "/min", vital.Unit)
	assert.Equal(t, "20240310091500", vital.Date, "organizer time backfills the observation")
	assert.Equal(t, "VS-1", vital.EncounterSourceID)
}

func TestExtractImmunizations(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="11369-6"/><title>Immunizations</title>
  <entry><substanceAdministration classCode="SBADM" moodCode="EVN" negationInd="false">
    <statusCode code="completed"/>
    <effectiveTime value="20231001"/>
    <consumable><manufacturedProduct><manufacturedMaterial>
      <code code="140" codeSystem="2.16.840.1.113883.12.292" displayName="Influenza, seasonal, injectable"/>
      <lotNumberText>AB1234</lotNumberText>
    </manufacturedMaterial></manufacturedProduct></consumable>
  </substanceAdministration></entry>
</section></component>`))

	immunizations := doc.ExtractImmunizations()
	require.Len(t, immunizations, 1)

	imm := immunizations[0]
	assert.Equal(t, "Influenza, seasonal, injectable", imm.VaccineName)
	assert.Equal(t, []string{"140"}, imm.CvxCodes)
	assert.Equal(t, "20231001", imm.Date)
	assert.Equal(t, "completed", imm.Status)
	assert.Equal(t, "AB1234", imm.LotNumber)
}

func TestExtractAllergies(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="48765-2"/><title>Allergies</title>
  <entry><act classCode="ACT" moodCode="EVN">
    <entryRelationship typeCode="SUBJ"><observation classCode="OBS" moodCode="EVN">
      <templateId root="2.16.840.1.113883.10.20.22.4.7"/>
      <id extension="ALG-1" root="7.7"/>
      <statusCode code="active"/>
      <effectiveTime><low value="20200601"/></effectiveTime>
      <value xsi:type="CD" code="419511003" displayName="Propensity to adverse reactions to drug"/>
      <participant typeCode="CSM"><participantRole><playingEntity>
        <code code="7980" codeSystem="2.16.840.1.113883.6.88" displayName="Penicillin"/>
      </playingEntity></participantRole></participant>
      <entryRelationship typeCode="MFST"><observation classCode="OBS" moodCode="EVN">
        <templateId root="2.16.840.1.113883.10.20.22.4.9"/>
        <value xsi:type="CD" code="271807003" codeSystem="2.16.840.1.113883.6.96" displayName="Rash"/>
      </observation></entryRelationship>
      <entryRelationship typeCode="SUBJ"><observation classCode="OBS" moodCode="EVN">
        <templateId root="2.16.840.1.113883.10.20.22.4.8.2"/>
        <code code="SEV"/>
        <value xsi:type="CD" code="6736007" displayName="Moderate"/>
      </observation></entryRelationship>
    </observation></entryRelationship>
  </act></entry>
</section></component>`))

	allergies := doc.ExtractAllergies()
	require.Len(t, allergies, 1)

	allergy := allergies[0]
	assert.Equal(t, "Penicillin", allergy.Substance)
	assert.Equal(t, "7980", allergy.SubstanceCode)
	assert.Equal(t, "Rash", allergy.Reaction)
	assert.Equal(t, "271807003", allergy.ReactionCode)
	assert.Equal(t, "Moderate", allergy.Severity)
	assert.Equal(t, "active", allergy.Status)
	assert.Equal(t, "20200601", allergy.Onset)
	assert.Equal(t, "ALG-1", allergy.SourceAllergyID)
}

func TestExtractProcedures(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="47519-4"/><title>Procedures</title>
  <entry><procedure classCode="PROC" moodCode="EVN">
    <templateId root="2.16.840.1.113883.10.20.22.4.14"/>
    <code code="45378" codeSystem="2.16.840.1.113883.6.12" displayName="Colonoscopy">
      <translation code="73761001" codeSystem="2.16.840.1.113883.6.96" displayName="Colonoscopy"/>
    </code>
    <statusCode code="completed"/>
    <effectiveTime value="20230920"/>
    <performer><assignedEntity>
      <assignedPerson><name><given>Robert</given><family>Lee</family></name></assignedPerson>
    </assignedEntity></performer>
  </procedure></entry>
</section></component>`))

	procedures := doc.ExtractProcedures()
	require.Len(t, procedures, 1)

	proc := procedures[0]
	assert.Equal(t, "Colonoscopy", proc.Name)
	assert.Equal(t, "Completed", proc.Status)
	assert.Equal(t, "20230920", proc.Date)
	assert.Equal(t, "Robert Lee", proc.Provider)
	require.Len(t, proc.Codes, 2)
	assert.Equal(t, "45378", proc.Codes[0].Code)
	assert.Equal(t, "73761001", proc.Codes[1].Code)
}

func TestExtractProgressNotes(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <title>Progress Notes</title>
  <text><list>
    <item>
      <caption>Dr. Sarah Chen - 3/14/2024 2:30 PM EDT</caption>
      <content ID="note1">Patient doing well.<br/>Continue current plan.</content>
    </item>
    <item>
      <caption>Dr. James Park</caption>
      <content ID="note2">   </content>
    </item>
  </list></text>
</section></component>`))

	notes := doc.ExtractProgressNotes()
	require.Len(t, notes, 1, "blank note bodies are dropped")

	note := notes[0]
	assert.Equal(t, "Dr. Sarah Chen", note.Provider)
	assert.Equal(t, "2024-03-14T14:30:00-04:00", note.NoteDatetime)
	assert.Equal(t, "20240314143000-0400", note.EncounterDate)
	assert.Equal(t, "Patient doing well.\nContinue current plan.", note.Text)
	assert.Equal(t, "note1", note.SourceID)
}

func TestParseNoteCaption(t *testing.T) {
	tests := []struct {
		caption       string
		provider      string
		noteDatetime  string
		encounterDate string
	}{
		{"Dr. Sarah Chen - 3/14/2024 2:30 PM EDT", "Dr. Sarah Chen", "2024-03-14T14:30:00-04:00", "20240314143000-0400"},
		{"Dr. Sarah Chen - 3/14/2024 12:05 AM UTC", "Dr. Sarah Chen", "2024-03-14T00:05:00+00:00", "20240314000500+0000"},
		{"Dr. Sarah Chen - 12/1/2024 12:00 PM", "Dr. Sarah Chen", "2024-12-01T12:00:00", "20241201120000"},
		{"Dr. Sarah Chen - 3/14/2024", "Dr. Sarah Chen", "2024-03-14", "20240314"},
		{"Dr. Sarah Chen", "Dr. Sarah Chen", "", ""},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		provider, noteDatetime, encounterDate := parseNoteCaption(tt.caption)
		assert.Equal(t, tt.provider, provider, tt.caption)
		assert.Equal(t, tt.noteDatetime, noteDatetime, tt.caption)
		assert.Equal(t, tt.encounterDate, encounterDate, tt.caption)
	}
}

func TestExtractInsurance(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="48768-6"/><title>Payers</title>
  <entry><act classCode="ACT" moodCode="EVN">
    <templateId root="2.16.840.1.113883.10.20.22.4.60"/>
    <statusCode code="completed"/>
    <entryRelationship typeCode="COMP"><act classCode="ACT" moodCode="EVN">
      <templateId root="2.16.840.1.113883.10.20.22.4.61"/>
      <id extension="GRP-7788" root="8.8"/>
      <code code="SELF" displayName="Self-funded plan"/>
      <statusCode code="active"/>
      <performer><assignedEntity>
        <id extension="PAYER-01" root="2.16.840.1.113883.19"/>
        <representedOrganization><name>Blue Shield</name></representedOrganization>
      </assignedEntity></performer>
      <participant typeCode="COV"><participantRole>
        <id extension="MBR-555" root="8.8"/>
        <code code="SELF" displayName="Self"/>
        <time><low value="20230101"/><high value="20241231"/></time>
      </participantRole></participant>
    </act></entryRelationship>
  </act></entry>
</section></component>`))

	policies := doc.ExtractInsurance()
	require.Len(t, policies, 1)

	policy := policies[0]
	assert.Equal(t, "Blue Shield", policy.PayerName)
	assert.Equal(t, "PAYER-01", policy.PayerID)
	assert.Equal(t, "Self-funded plan", policy.CoverageType)
	assert.Equal(t, "MBR-555", policy.MemberID)
	assert.Equal(t, "GRP-7788", policy.GroupNumber)
	assert.Equal(t, "Self", policy.Relationship)
	assert.Equal(t, "20230101", policy.CoverageStart)
	assert.Equal(t, "20241231", policy.CoverageEnd)
	assert.Equal(t, "active", policy.Status)
}

func TestExtractInsuranceDropsEmptyPolicies(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="48768-6"/><title>Payers</title>
  <entry><act classCode="ACT" moodCode="EVN">
    <templateId root="2.16.840.1.113883.10.20.22.4.60"/>
    <statusCode code="completed"/>
  </act></entry>
</section></component>`))
	assert.Empty(t, doc.ExtractInsurance())
}

func TestReasonForVisitJoinsEveryPair(t *testing.T) {
	doc := parseDoc(t, sections(`
<component><section>
  <code code="29299-5"/><title>Reason for Visit</title>
  <text><paragraph>One</paragraph><paragraph>Two</paragraph><paragraph>Three</paragraph></text>
</section></component>
<component><section>
  <code code="46240-8"/><title>Encounters</title>
  <entry><encounter classCode="ENC" moodCode="EVN"><id extension="E1" root="1"/></encounter></entry>
</section></component>`))

	encounters := doc.ExtractEncounters()
	require.Len(t, encounters, 1)
	reason := encounters[0].ReasonForVisit
	assert.Equal(t, "One; Two; Three", reason)
	assert.Equal(t, 2, strings.Count(reason, "; "))
}
