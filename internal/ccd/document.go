package ccd

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Document wraps a parsed ClinicalDocument together with an index of
// narrative nodes by ID so "#ref" text references resolve in O(1).
type Document struct {
	Root *ClinicalDocument

	narrativeByID map[string]*Narrative
}

// Parse reads CCD XML bytes into a Document.
func Parse(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("ccd: document is empty")
	}
	var root ClinicalDocument
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("ccd: parse document: %w", err)
	}
	doc := &Document{Root: &root, narrativeByID: map[string]*Narrative{}}
	for _, section := range doc.Sections() {
		if section.Text != nil {
			doc.indexNarrative(section.Text)
		}
	}
	return doc, nil
}

func (d *Document) indexNarrative(n *Narrative) {
	if n.ID != "" {
		if _, exists := d.narrativeByID[n.ID]; !exists {
			d.narrativeByID[n.ID] = n
		}
	}
	for _, seg := range n.Segments {
		if seg.Child != nil {
			d.indexNarrative(seg.Child)
		}
	}
}

// Sections returns every section in the structured body, including nested
// component sections, in document order.
func (d *Document) Sections() []*Section {
	var out []*Section
	if d.Root.Component == nil || d.Root.Component.StructuredBody == nil {
		return out
	}
	var walk func(components []BodyComponent)
	walk = func(components []BodyComponent) {
		for i := range components {
			section := components[i].Section
			if section == nil {
				continue
			}
			out = append(out, section)
			walk(section.Components)
		}
	}
	walk(d.Root.Component.StructuredBody.Components)
	return out
}

// SectionsByCode returns sections whose LOINC code is in the given set.
func (d *Document) SectionsByCode(codes ...string) []*Section {
	wanted := map[string]bool{}
	for _, code := range codes {
		wanted[code] = true
	}
	var out []*Section
	for _, section := range d.Sections() {
		if section.Code != nil && wanted[section.Code.Code] {
			out = append(out, section)
		}
	}
	return out
}

// TextByID resolves a narrative reference value ("#id" or "id") to its
// whitespace-collapsed text, or "" when absent.
func (d *Document) TextByID(ref string) string {
	id := strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if id == "" {
		return ""
	}
	if node, ok := d.narrativeByID[id]; ok {
		return node.FlatText()
	}
	return ""
}

// referencedText resolves the <reference value="#..."/> under a narrative
// (typically a statement's <text> or a code's <originalText>).
func (d *Document) referencedText(n *Narrative) string {
	if n == nil {
		return ""
	}
	if ref := n.FindFirst("reference"); ref != nil && ref.RefValue != "" {
		if text := d.TextByID(ref.RefValue); text != "" {
			return text
		}
	}
	return ""
}

// BirthTimeValue returns the patient's raw birthTime value, or "".
func (d *Document) BirthTimeValue() string {
	rt := d.Root.RecordTarget
	if rt == nil || rt.PatientRole == nil || rt.PatientRole.Patient == nil {
		return ""
	}
	if bt := rt.PatientRole.Patient.BirthTime; bt != nil {
		return bt.Value
	}
	return ""
}

// Display renders a name, preferring structured components over flat text.
func (n *PersonName) Display() string {
	var parts []string
	for _, given := range n.Given {
		if g := collapseSpaces(given); g != "" {
			parts = append(parts, g)
		}
	}
	if family := collapseSpaces(n.Family); family != "" {
		parts = append(parts, family)
	}
	if len(parts) > 0 {
		name := strings.Join(parts, " ")
		for _, suffix := range n.Suffixes {
			if s := collapseSpaces(suffix); s != "" {
				name += ", " + s
			}
		}
		return name
	}
	return collapseSpaces(n.Text)
}

func firstName(names []PersonName) string {
	for i := range names {
		if display := names[i].Display(); display != "" {
			return display
		}
	}
	return ""
}

// personAndOrg pulls the assigned person and represented organization
// display names from an assigned entity.
func personAndOrg(entity *AssignedEntity) (person, org string) {
	if entity == nil {
		return "", ""
	}
	if entity.AssignedPerson != nil {
		person = firstName(entity.AssignedPerson.Names)
	}
	if entity.Organization != nil {
		org = firstName(entity.Organization.Names)
	}
	return person, org
}

// authorNames returns the first author's person and organization names.
func authorNames(authors []Author) (person, org string) {
	for i := range authors {
		if authors[i].AssignedAuthor == nil {
			continue
		}
		person, org = personAndOrg(authors[i].AssignedAuthor)
		if person != "" || org != "" {
			return person, org
		}
	}
	return "", ""
}

// authorTime returns the first author's documented time value.
func authorTime(authors []Author) string {
	for i := range authors {
		if authors[i].Time != nil && authors[i].Time.Value != "" {
			return authors[i].Time.Value
		}
	}
	return ""
}

// performerNames returns the first performer's person and organization names.
func performerNames(performers []Performer) (person, org string) {
	for i := range performers {
		if performers[i].AssignedEntity == nil {
			continue
		}
		person, org = personAndOrg(performers[i].AssignedEntity)
		if person != "" || org != "" {
			return person, org
		}
	}
	return "", ""
}

// TemplateRoots returns the statement's templateId roots.
func (s *Statement) TemplateRoots() map[string]bool {
	roots := map[string]bool{}
	for _, template := range s.TemplateIDs {
		if template.Root != "" {
			roots[template.Root] = true
		}
	}
	return roots
}

// SourceID returns the statement's first identifier, extension preferred
// over root.
func (s *Statement) SourceID() string {
	for _, id := range s.IDs {
		if id.Extension != "" {
			return id.Extension
		}
		if id.Root != "" {
			return id.Root
		}
	}
	return ""
}

// FirstValue returns the statement's first <value>, or nil.
func (s *Statement) FirstValue() *Value {
	if len(s.Values) == 0 {
		return nil
	}
	return &s.Values[0]
}

// FindEncounter walks entry relationships for a linked encounter statement.
func (s *Statement) FindEncounter() *Statement {
	for i := range s.EntryRelationships {
		rel := &s.EntryRelationships[i]
		if rel.Encounter != nil {
			return rel.Encounter
		}
		for _, nested := range []*Statement{rel.Observation, rel.Act, rel.Procedure} {
			if nested == nil {
				continue
			}
			if found := nested.FindEncounter(); found != nil {
				return found
			}
		}
	}
	return nil
}

// FindObservation returns the first observation in this statement's entry
// relationship tree.
func (s *Statement) FindObservation() *Statement {
	for i := range s.EntryRelationships {
		rel := &s.EntryRelationships[i]
		if rel.Observation != nil {
			return rel.Observation
		}
		for _, nested := range []*Statement{rel.Act, rel.Procedure, rel.Encounter} {
			if nested == nil {
				continue
			}
			if found := nested.FindObservation(); found != nil {
				return found
			}
		}
	}
	return nil
}

// participantByType returns the first participant with the given typeCode.
func (s *Statement) participantByType(typeCode string) *Participant {
	for i := range s.Participants {
		if s.Participants[i].TypeCode == typeCode {
			return &s.Participants[i]
		}
	}
	return nil
}

func cleanPtr(value string) *string {
	cleaned := collapseSpaces(value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if cleaned := collapseSpaces(value); cleaned != "" {
			return cleaned
		}
	}
	return ""
}
