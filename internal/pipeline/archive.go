package pipeline

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/chartvault/chartvault/internal/model"
)

// Document is one clinical document lifted out of a source archive,
// paired with whatever XDS metadata the archive's descriptor carried for
// it. Meta fields stay nil when the descriptor is absent or malformed.
type Document struct {
	Name    string
	Content []byte
	Meta    model.DocumentMeta
}

// ReadArchive enumerates the XML documents inside a zip archive. XDM
// packages ship an ebXML registry descriptor (METADATA.XML) next to the
// documents; when one parses, its per-document slots are matched to
// documents by file name. A bad descriptor degrades to empty metadata
// rather than failing the archive.
func ReadArchive(archivePath string) ([]Document, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer reader.Close()

	var documents []Document
	meta := map[string]model.DocumentMeta{}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		base := path.Base(file.Name)
		upper := strings.ToUpper(base)

		if upper == "METADATA.XML" {
			content, err := readZipFile(file)
			if err != nil {
				continue
			}
			for name, m := range parseXDSMetadata(content) {
				meta[name] = m
			}
			continue
		}
		if !strings.HasSuffix(upper, ".XML") {
			continue
		}
		content, err := readZipFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s from %s: %w", file.Name, archivePath, err)
		}
		documents = append(documents, Document{Name: base, Content: content})
	}

	for i := range documents {
		if m, ok := meta[strings.ToUpper(documents[i].Name)]; ok {
			documents[i].Meta = m
		}
	}
	return documents, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ebXML registry types, local names only so both rim:3.0 and unprefixed
// descriptors decode.
type xdsRegistry struct {
	Entries []xdsDocumentEntry `xml:"RegistryObjectList>ExtrinsicObject"`
}

type xdsDocumentEntry struct {
	ID              string              `xml:"id,attr"`
	Slots           []xdsSlot           `xml:"Slot"`
	Classifications []xdsClassification `xml:"Classification"`
}

type xdsSlot struct {
	Name   string   `xml:"name,attr"`
	Values []string `xml:"ValueList>Value"`
}

type xdsClassification struct {
	Scheme string    `xml:"classificationScheme,attr"`
	Slots  []xdsSlot `xml:"Slot"`
}

// parseXDSMetadata maps document file names (uppercased) to the metadata
// slots the descriptor declares for them. Anything unparseable yields an
// empty map; missing slots stay nil.
func parseXDSMetadata(content []byte) map[string]model.DocumentMeta {
	var registry xdsRegistry
	if err := xml.Unmarshal(content, &registry); err != nil {
		return nil
	}

	out := map[string]model.DocumentMeta{}
	for _, entry := range registry.Entries {
		uri := slotValue(entry.Slots, "URI")
		if uri == "" {
			continue
		}
		meta := model.DocumentMeta{
			DocumentCreated:    optionalSlot(entry.Slots, "creationTime"),
			RepositoryUniqueID: optionalSlot(entry.Slots, "repositoryUniqueId"),
			DocumentHash:       optionalSlot(entry.Slots, "hash"),
		}
		if size := slotValue(entry.Slots, "size"); size != "" {
			if n, err := strconv.ParseInt(size, 10, 64); err == nil {
				meta.DocumentSize = &n
			}
		}
		for _, classification := range entry.Classifications {
			if institution := slotValue(classification.Slots, "authorInstitution"); institution != "" {
				name := xonName(institution)
				if name != "" {
					meta.AuthorInstitution = &name
				}
				break
			}
		}
		out[strings.ToUpper(path.Base(uri))] = meta
	}
	return out
}

func slotValue(slots []xdsSlot, name string) string {
	for _, slot := range slots {
		if slot.Name == name && len(slot.Values) > 0 {
			return strings.TrimSpace(slot.Values[0])
		}
	}
	return ""
}

func optionalSlot(slots []xdsSlot, name string) *string {
	if value := slotValue(slots, name); value != "" {
		return &value
	}
	return nil
}

// xonName extracts the organization name component from an HL7 XON
// value ("General Hospital^^^^^&1.2.3&ISO" -> "General Hospital").
func xonName(value string) string {
	return strings.TrimSpace(strings.SplitN(value, "^", 2)[0])
}
