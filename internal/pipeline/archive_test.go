package pipeline

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescriptor = `<?xml version="1.0" encoding="UTF-8"?>
<SubmitObjectsRequest xmlns="urn:oasis:names:tc:ebxml-regrep:xsd:lcm:3.0"
    xmlns:rim="urn:oasis:names:tc:ebxml-regrep:xsd:rim:3.0">
  <rim:RegistryObjectList>
    <rim:ExtrinsicObject id="Document01" mimeType="text/xml">
      <rim:Slot name="creationTime"><rim:ValueList><rim:Value>20240310</rim:Value></rim:ValueList></rim:Slot>
      <rim:Slot name="repositoryUniqueId"><rim:ValueList><rim:Value>1.2.840.999</rim:Value></rim:ValueList></rim:Slot>
      <rim:Slot name="hash"><rim:ValueList><rim:Value>deadbeef</rim:Value></rim:ValueList></rim:Slot>
      <rim:Slot name="size"><rim:ValueList><rim:Value>2048</rim:Value></rim:ValueList></rim:Slot>
      <rim:Slot name="URI"><rim:ValueList><rim:Value>IHE_XDM/SUBSET01/doc0001.xml</rim:Value></rim:ValueList></rim:Slot>
      <rim:Classification classificationScheme="urn:uuid:93606bcf-9494-43ec-9b4e-a7748d1a838d">
        <rim:Slot name="authorInstitution">
          <rim:ValueList><rim:Value>Lakeside Medical Center^^^^^&amp;1.2.3&amp;ISO</rim:Value></rim:ValueList>
        </rim:Slot>
      </rim:Classification>
    </rim:ExtrinsicObject>
  </rim:RegistryObjectList>
</SubmitObjectsRequest>`

func writeZip(t *testing.T, files map[string][]byte) string {
	t.Helper()
	archivePath := filepath.Join(t.TempDir(), "export.zip")
	writeZipAt(t, archivePath, files)
	return archivePath
}

func writeZipAt(t *testing.T, archivePath string, files map[string][]byte) {
	t.Helper()
	f, err := os.Create(archivePath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestParseXDSMetadata(t *testing.T) {
	meta := parseXDSMetadata([]byte(sampleDescriptor))
	require.Len(t, meta, 1)

	entry, ok := meta["DOC0001.XML"]
	require.True(t, ok, "documents are keyed by uppercased file name")
	require.NotNil(t, entry.DocumentCreated)
	assert.Equal(t, "20240310", *entry.DocumentCreated)
	require.NotNil(t, entry.RepositoryUniqueID)
	assert.Equal(t, "1.2.840.999", *entry.RepositoryUniqueID)
	require.NotNil(t, entry.DocumentHash)
	assert.Equal(t, "deadbeef", *entry.DocumentHash)
	require.NotNil(t, entry.DocumentSize)
	assert.Equal(t, int64(2048), *entry.DocumentSize)
	require.NotNil(t, entry.AuthorInstitution)
	assert.Equal(t, "Lakeside Medical Center", *entry.AuthorInstitution)
}

func TestParseXDSMetadataMalformed(t *testing.T) {
	assert.Nil(t, parseXDSMetadata([]byte("this is not ebXML <")))
}

func TestReadArchive(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?><ClinicalDocument xmlns="urn:hl7-org:v3"/>`)
	archivePath := writeZip(t, map[string][]byte{
		"IHE_XDM/SUBSET01/DOC0001.XML": doc,
		"IHE_XDM/SUBSET01/README.TXT":  []byte("ignore me"),
		"METADATA.XML":                 []byte(sampleDescriptor),
	})

	documents, err := ReadArchive(archivePath)
	require.NoError(t, err)
	require.Len(t, documents, 1, "only XML documents count, the descriptor excluded")

	got := documents[0]
	assert.Equal(t, "DOC0001.XML", got.Name)
	assert.Equal(t, doc, got.Content)
	require.NotNil(t, got.Meta.RepositoryUniqueID)
	assert.Equal(t, "1.2.840.999", *got.Meta.RepositoryUniqueID)
}

func TestReadArchiveWithoutDescriptor(t *testing.T) {
	archivePath := writeZip(t, map[string][]byte{
		"DOC0001.XML": []byte(`<?xml version="1.0"?><ClinicalDocument xmlns="urn:hl7-org:v3"/>`),
	})

	documents, err := ReadArchive(archivePath)
	require.NoError(t, err)
	require.Len(t, documents, 1)
	assert.Nil(t, documents[0].Meta.DocumentCreated)
	assert.Nil(t, documents[0].Meta.AuthorInstitution)
}

func TestReadArchiveMissingFile(t *testing.T) {
	_, err := ReadArchive(filepath.Join(t.TempDir(), "absent.zip"))
	assert.Error(t, err)
}

func TestReadArchiveBadDescriptorDegrades(t *testing.T) {
	archivePath := writeZip(t, map[string][]byte{
		"DOC0001.XML":  []byte(`<?xml version="1.0"?><ClinicalDocument xmlns="urn:hl7-org:v3"/>`),
		"METADATA.XML": []byte("garbage <"),
	})

	documents, err := ReadArchive(archivePath)
	require.NoError(t, err)
	require.Len(t, documents, 1)
	assert.Nil(t, documents[0].Meta.DocumentHash)
}
