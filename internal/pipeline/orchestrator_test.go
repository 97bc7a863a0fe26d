package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartvault/chartvault/internal/repository/sqlite"
	"github.com/chartvault/chartvault/internal/schema"
	"github.com/chartvault/chartvault/pkg/metrics"
)

const sampleCCD = `<?xml version="1.0" encoding="UTF-8"?>
<ClinicalDocument xmlns="urn:hl7-org:v3" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <recordTarget><patientRole><patient>
    <name><given>Maria</given><family>Gonzalez</family></name>
    <administrativeGenderCode code="F"/>
    <birthTime value="19800101"/>
  </patient></patientRole></recordTarget>
  <componentOf><encompassingEncounter>
    <effectiveTime><low value="20240310090000"/><high value="20240310100000"/></effectiveTime>
    <encounterParticipant typeCode="ATND"><assignedEntity>
      <assignedPerson><name><given>Sarah</given><family>Chen</family></name></assignedPerson>
      <representedOrganization><name>Lakeside Medical Center</name></representedOrganization>
    </assignedEntity></encounterParticipant>
  </encompassingEncounter></componentOf>
  <component><structuredBody>
    <component><section>
      <code code="46240-8"/><title>Encounters</title>
      <entry><encounter classCode="ENC" moodCode="EVN">
        <id extension="ENC-100" root="1.2.3"/>
        <code code="99213" displayName="Office outpatient visit"/>
        <statusCode code="completed"/>
        <effectiveTime><low value="20240310090000"/></effectiveTime>
      </encounter></entry>
    </section></component>
    <component><section>
      <code code="11450-4"/><title>Problems</title>
      <text><content ID="problem1">Essential hypertension</content></text>
      <entry><act classCode="ACT" moodCode="EVN">
        <entryRelationship typeCode="SUBJ"><observation classCode="OBS" moodCode="EVN">
          <templateId root="2.16.840.1.113883.10.20.22.4.4"/>
          <text><reference value="#problem1"/></text>
          <effectiveTime><low value="20230110"/></effectiveTime>
          <value xsi:type="CD" code="59621000" codeSystem="2.16.840.1.113883.6.96" displayName="Essential hypertension"/>
        </observation></entryRelationship>
      </act></entry>
    </section></component>
    <component><section>
      <code code="10160-0"/><title>Medications</title>
      <text><content ID="sig1">Take 1 tablet by mouth daily</content></text>
      <entry><substanceAdministration classCode="SBADM" moodCode="EVN">
        <templateId root="2.16.840.1.113883.10.20.22.4.16"/>
        <text><reference value="#sig1"/></text>
        <statusCode code="active"/>
        <effectiveTime xsi:type="IVL_TS"><low value="20240201"/></effectiveTime>
        <doseQuantity value="1" unit="tablet"/>
        <consumable><manufacturedProduct><manufacturedMaterial>
          <code code="197361" codeSystem="2.16.840.1.113883.6.88" displayName="Lisinopril 10 MG Oral Tablet"/>
        </manufacturedMaterial></manufacturedProduct></consumable>
      </substanceAdministration></entry>
    </section></component>
    <component><section>
      <code code="30954-2"/><title>Results</title>
      <entry><organizer classCode="BATTERY" moodCode="EVN">
        <author><assignedAuthor>
          <assignedPerson><name><given>James</given><family>Park</family></name></assignedPerson>
        </assignedAuthor></author>
        <performer><assignedEntity>
          <representedOrganization><name>Quest Diagnostics</name></representedOrganization>
        </assignedEntity></performer>
        <component><observation classCode="OBS" moodCode="EVN">
          <code code="2345-7" codeSystem="2.16.840.1.113883.6.1" displayName="Glucose"/>
          <effectiveTime value="20240310093000"/>
          <value xsi:type="PQ" value="105" unit="mg/dL"/>
          <interpretationCode code="H"/>
        </observation></component>
        <component><observation classCode="OBS" moodCode="EVN">
          <code code="718-7" codeSystem="2.16.840.1.113883.6.1" displayName="Hemoglobin"/>
          <effectiveTime value="20240310093000"/>
          <value xsi:type="PQ" value="13.5" unit="g/dL"/>
        </observation></component>
      </organizer></entry>
    </section></component>
    <component><section>
      <code code="8716-3"/><title>Vital Signs</title>
      <entry><organizer classCode="CLUSTER" moodCode="EVN">
        <id extension="VS-1" root="5.5"/>
        <effectiveTime value="20240310091500"/>
        <component><observation classCode="OBS" moodCode="EVN">
          <code code="8867-4" codeSystem="2.16.840.1.113883.6.1" displayName="Heart Rate"/>
          <value xsi:type="PQ" value="72" unit="/min"/>
        </observation></component>
      </organizer></entry>
    </section></component>
    <component><section>
      <code code="11369-6"/><title>Immunizations</title>
      <entry><substanceAdministration classCode="SBADM" moodCode="EVN">
        <statusCode code="completed"/>
        <effectiveTime value="20231001"/>
        <consumable><manufacturedProduct><manufacturedMaterial>
          <code code="140" codeSystem="2.16.840.1.113883.12.292" displayName="Influenza, seasonal, injectable"/>
        </manufacturedMaterial></manufacturedProduct></consumable>
      </substanceAdministration></entry>
    </section></component>
    <component><section>
      <code code="47519-4"/><title>Procedures</title>
      <entry><procedure classCode="PROC" moodCode="EVN">
        <templateId root="2.16.840.1.113883.10.20.22.4.14"/>
        <code code="45378" codeSystem="2.16.840.1.113883.6.12" displayName="Colonoscopy"/>
        <statusCode code="completed"/>
        <effectiveTime value="20230920"/>
        <performer><assignedEntity>
          <assignedPerson><name><given>Robert</given><family>Lee</family></name></assignedPerson>
        </assignedEntity></performer>
      </procedure></entry>
    </section></component>
    <component><section>
      <code code="48765-2"/><title>Allergies</title>
      <entry><act classCode="ACT" moodCode="EVN">
        <entryRelationship typeCode="SUBJ"><observation classCode="OBS" moodCode="EVN">
          <templateId root="2.16.840.1.113883.10.20.22.4.7"/>
          <statusCode code="active"/>
          <effectiveTime><low value="20200601"/></effectiveTime>
          <participant typeCode="CSM"><participantRole><playingEntity>
            <code code="7980" codeSystem="2.16.840.1.113883.6.88" displayName="Penicillin"/>
          </playingEntity></participantRole></participant>
        </observation></entryRelationship>
      </act></entry>
    </section></component>
    <component><section>
      <title>Progress Notes</title>
      <text><list><item>
        <caption>Dr. Sarah Chen - 3/14/2024 2:30 PM EDT</caption>
        <content ID="note1">Patient doing well.<br/>Continue current plan.</content>
      </item></list></text>
    </section></component>
    <component><section>
      <code code="48768-6"/><title>Payers</title>
      <entry><act classCode="ACT" moodCode="EVN">
        <templateId root="2.16.840.1.113883.10.20.22.4.60"/>
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
          </participantRole></participant>
        </act></entryRelationship>
      </act></entry>
    </section></component>
  </structuredBody></component>
</ClinicalDocument>`

func newIngestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, schema.Migrate(context.Background(), db, zerolog.Nop()))
	return db
}

func countRows(t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()
	var count int
	require.NoError(t, db.GetContext(context.Background(), &count, "SELECT COUNT(*) FROM "+table))
	return count
}

func TestRunIngestsArchive(t *testing.T) {
	db := newIngestDB(t)
	inputDir := t.TempDir()
	attachmentDir := filepath.Join(t.TempDir(), "attachments")
	content := []byte(sampleCCD)
	archivePath := filepath.Join(inputDir, "export.zip")
	writeZipAt(t, archivePath, map[string][]byte{"DOC0001.XML": content})

	o := New(db, attachmentDir, metrics.New("chartvault", nil), zerolog.Nop())
	summary, err := o.Run(context.Background(), inputDir)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Archives)
	assert.Equal(t, 1, summary.DocumentsProcessed)
	assert.Zero(t, summary.DocumentsRejected)
	assert.Zero(t, summary.DocumentsFailed)

	inserted := map[string]int{
		"data_source":   1,
		"patient":       1,
		"encounter":     1,
		"condition":     1,
		"medication":    1,
		"lab_result":    2,
		"vital":         1,
		"immunization":  1,
		"procedure":     1,
		"progress_note": 1,
		"allergy":       1,
		"insurance":     1,
		"attachment":    1,
	}
	for entity, want := range inserted {
		counts := summary.Entities[entity]
		require.NotNil(t, counts, entity)
		assert.Equal(t, want, counts.Inserted, entity)
		assert.Zero(t, counts.Duplicate, entity)
	}

	assert.Equal(t, 1, countRows(t, db, "patient"))
	assert.Equal(t, 1, countRows(t, db, "encounter"))
	assert.Equal(t, 2, countRows(t, db, "lab_result"))

	// The attending person and the organization are distinct provider rows.
	var entityTypes []string
	require.NoError(t, db.SelectContext(context.Background(), &entityTypes,
		`SELECT DISTINCT entity_type FROM provider ORDER BY entity_type`))
	assert.Equal(t, []string{"organization", "person"}, entityTypes)

	var providerID, organizationID int64
	require.NoError(t, db.GetContext(context.Background(), &providerID,
		`SELECT provider_id FROM encounter LIMIT 1`))
	require.NoError(t, db.GetContext(context.Background(), &organizationID,
		`SELECT organization_id FROM encounter LIMIT 1`))
	assert.NotEqual(t, providerID, organizationID)

	// The encounter links to the individual, not the facility.
	var linkedType string
	require.NoError(t, db.GetContext(context.Background(), &linkedType,
		`SELECT entity_type FROM provider WHERE id = ?`, providerID))
	assert.Equal(t, "person", linkedType)
	require.NoError(t, db.GetContext(context.Background(), &linkedType,
		`SELECT entity_type FROM provider WHERE id = ?`, organizationID))
	assert.Equal(t, "organization", linkedType)

	var medicationNotes string
	require.NoError(t, db.GetContext(context.Background(), &medicationNotes,
		`SELECT notes FROM medication LIMIT 1`))
	assert.Equal(t, "Take 1 tablet by mouth daily (RxNorm: 197361)", medicationNotes)

	sum := sha256.Sum256(content)
	retained := filepath.Join(attachmentDir, hex.EncodeToString(sum[:])+".xml")
	_, statErr := os.Stat(retained)
	assert.NoError(t, statErr, "raw document is retained on disk")
}

func TestRunIsIdempotent(t *testing.T) {
	db := newIngestDB(t)
	inputDir := t.TempDir()
	writeZipAt(t, filepath.Join(inputDir, "export.zip"),
		map[string][]byte{"DOC0001.XML": []byte(sampleCCD)})
	m := metrics.New("chartvault", nil)

	_, err := New(db, "", m, zerolog.Nop()).Run(context.Background(), inputDir)
	require.NoError(t, err)

	summary, err := New(db, "", m, zerolog.Nop()).Run(context.Background(), inputDir)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.DocumentsProcessed)
	for _, entity := range []string{
		"data_source", "patient", "encounter", "condition", "medication",
		"lab_result", "vital", "immunization", "procedure", "progress_note",
		"allergy", "insurance",
	} {
		counts := summary.Entities[entity]
		require.NotNil(t, counts, entity)
		assert.Zero(t, counts.Inserted, entity)
		assert.NotZero(t, counts.Duplicate, entity)
	}

	assert.Equal(t, 1, countRows(t, db, "patient"))
	assert.Equal(t, 1, countRows(t, db, "data_source"))
	assert.Equal(t, 1, countRows(t, db, "encounter"))
	assert.Equal(t, 1, countRows(t, db, "condition"))
	assert.Equal(t, 2, countRows(t, db, "lab_result"))
}

func TestRunRejectsPatientlessDocument(t *testing.T) {
	db := newIngestDB(t)
	inputDir := t.TempDir()
	patientless := `<?xml version="1.0"?><ClinicalDocument xmlns="urn:hl7-org:v3">` +
		`<recordTarget><patientRole><patient><birthTime value="19700101"/></patient></patientRole></recordTarget>` +
		`</ClinicalDocument>`
	writeZipAt(t, filepath.Join(inputDir, "export.zip"),
		map[string][]byte{"ANON.XML": []byte(patientless)})

	summary, err := New(db, "", metrics.New("chartvault", nil), zerolog.Nop()).
		Run(context.Background(), inputDir)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.DocumentsRejected)
	assert.Zero(t, summary.DocumentsProcessed)
	assert.Equal(t, 1, countRows(t, db, "data_source"), "provenance outlives the rejection")
	assert.Zero(t, countRows(t, db, "patient"))
}

func TestRunCountsUnparseableDocuments(t *testing.T) {
	db := newIngestDB(t)
	inputDir := t.TempDir()
	writeZipAt(t, filepath.Join(inputDir, "export.zip"),
		map[string][]byte{"BROKEN.XML": []byte("not a document <")})

	summary, err := New(db, "", metrics.New("chartvault", nil), zerolog.Nop()).
		Run(context.Background(), inputDir)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.DocumentsFailed)
	assert.Zero(t, summary.DocumentsProcessed)
	assert.Zero(t, countRows(t, db, "data_source"))
}

func TestRunEmptyInputDir(t *testing.T) {
	db := newIngestDB(t)

	summary, err := New(db, "", metrics.New("chartvault", nil), zerolog.Nop()).
		Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, summary.Archives)
	assert.Zero(t, summary.DocumentsProcessed)
}
