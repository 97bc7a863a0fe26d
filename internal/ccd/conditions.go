package ccd

import (
	"sort"
	"strings"
)

// Sections whose entries feed the problem list.
var conditionSectionCodes = []string{LOINCProblemList, LOINCPastIllness, LOINCProblemReport}

// ExtractConditions collects problem observations from the problem list
// and past-illness sections. Only entries carrying the problem observation
// template qualify; duplicates by (name, primary code, onset) collapse to
// the first occurrence.
func (d *Document) ExtractConditions() []ConditionEntry {
	var out []ConditionEntry
	type seenKey struct {
		name, code, start string
	}
	seen := map[seenKey]bool{}

	for _, section := range d.SectionsByCode(conditionSectionCodes...) {
		for i := range section.Entries {
			entry := &section.Entries[i]
			observation := entryObservation(entry)
			if observation == nil || !observation.TemplateRoots()[TemplateProblemObservation] {
				continue
			}

			var noteParts []string
			obsText := d.referencedText(observation.Text)
			if obsText != "" {
				noteParts = append(noteParts, obsText)
			}

			var codes []CodeRef
			codes = appendCodeRef(codes, observation.Code)
			value := observation.FirstValue()
			if value != nil {
				codes = appendValueRef(codes, value)
				for j := range value.Translations {
					codes = appendCodeRef(codes, &value.Translations[j])
				}
			}

			status := conditionStatus(observation)

			var start, end string
			if len(observation.EffectiveTimes) > 0 {
				start, end = RawTimeRange(&observation.EffectiveTimes[0])
			}
			// Concern act wrapping the observation supplies missing bounds.
			if entry.Act != nil && len(entry.Act.EffectiveTimes) > 0 {
				concernStart, concernEnd := RawTimeRange(&entry.Act.EffectiveTimes[0])
				if start == "" {
					start = concernStart
				}
				if end == "" {
					end = concernEnd
				}
			}

			person, org := authorNames(observation.Authors)
			provider := firstNonEmpty(person, org)
			authoredAt := authorTime(observation.Authors)

			encSourceID, encStart, encEnd := linkedEncounter(observation, entry)

			name := obsText
			if name == "" && value != nil {
				name = firstNonEmpty(value.DisplayName, value.Code)
			}
			if name == "" && len(codes) > 0 {
				name = firstNonEmpty(codes[0].Display, codes[0].Code)
			}

			for _, text := range d.entryReferenceTexts(entry) {
				if !containsString(noteParts, text) {
					noteParts = append(noteParts, text)
				}
			}

			mainCode := ""
			if len(codes) > 0 {
				mainCode = codes[0].Code
			}
			key := seenKey{name, mainCode, start}
			if seen[key] {
				continue
			}
			seen[key] = true

			out = append(out, ConditionEntry{
				Name:              name,
				Codes:             codes,
				Status:            titleCase(status),
				Start:             start,
				End:               end,
				Notes:             joinSortedUnique(noteParts),
				Provider:          provider,
				AuthorTime:        authoredAt,
				EncounterSourceID: encSourceID,
				EncounterStart:    encStart,
				EncounterEnd:      encEnd,
			})
		}
	}
	return out
}

// conditionStatus prefers the REFR status observation's value over the
// observation's own statusCode.
func conditionStatus(observation *Statement) string {
	for i := range observation.EntryRelationships {
		rel := &observation.EntryRelationships[i]
		if rel.TypeCode != "REFR" || rel.Observation == nil {
			continue
		}
		if value := rel.Observation.FirstValue(); value != nil {
			if label := firstNonEmpty(value.DisplayName, value.Code); label != "" {
				return label
			}
		}
	}
	if observation.StatusCode != nil {
		return collapseSpaces(observation.StatusCode.Code)
	}
	return ""
}

// entryObservation finds the clinical observation an entry carries, either
// directly or wrapped in a concern act.
func entryObservation(entry *Entry) *Statement {
	if entry.Observation != nil {
		return entry.Observation
	}
	for _, stmt := range []*Statement{entry.Act, entry.Encounter, entry.Procedure, entry.Organizer} {
		if stmt == nil {
			continue
		}
		if found := stmt.FindObservation(); found != nil {
			return found
		}
	}
	return nil
}

// linkedEncounter resolves the encounter statement referenced by an entry,
// checking the observation's relationship tree before the wrapping act's.
func linkedEncounter(observation *Statement, entry *Entry) (sourceID, start, end string) {
	encounter := observation.FindEncounter()
	if encounter == nil && entry.Act != nil {
		encounter = entry.Act.FindEncounter()
	}
	if encounter == nil && entry.Encounter != nil {
		encounter = entry.Encounter
	}
	if encounter == nil {
		return "", "", ""
	}
	sourceID = encounter.SourceID()
	if len(encounter.EffectiveTimes) > 0 {
		start, end = RawTimeRange(&encounter.EffectiveTimes[0])
	}
	return sourceID, start, end
}

// entryReferenceTexts resolves every narrative reference under an entry's
// statements.
func (d *Document) entryReferenceTexts(entry *Entry) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(s *Statement)
	walk = func(s *Statement) {
		if s == nil {
			return
		}
		for _, n := range []*Narrative{s.Text} {
			if n == nil {
				continue
			}
			for _, ref := range append(n.FindAll("reference"), refSelf(n)...) {
				if ref.RefValue == "" {
					continue
				}
				if text := d.TextByID(ref.RefValue); text != "" && !seen[text] {
					seen[text] = true
					out = append(out, text)
				}
			}
		}
		if s.Code != nil && s.Code.OriginalText != nil {
			if ref := s.Code.OriginalText.FindFirst("reference"); ref != nil && ref.RefValue != "" {
				if text := d.TextByID(ref.RefValue); text != "" && !seen[text] {
					seen[text] = true
					out = append(out, text)
				}
			}
		}
		for i := range s.EntryRelationships {
			rel := &s.EntryRelationships[i]
			for _, nested := range []*Statement{rel.Observation, rel.Act, rel.Encounter, rel.Procedure} {
				walk(nested)
			}
		}
	}
	for _, stmt := range []*Statement{entry.Observation, entry.Act, entry.Encounter, entry.Procedure, entry.Organizer, entry.SubstanceAdministration} {
		walk(stmt)
	}
	return out
}

func refSelf(n *Narrative) []*Narrative {
	if n.Local == "reference" && n.RefValue != "" {
		return []*Narrative{n}
	}
	return nil
}

func appendCodeRef(codes []CodeRef, code *Code) []CodeRef {
	if code == nil {
		return codes
	}
	ref := CodeRef{
		Code:    strings.TrimSpace(code.Code),
		System:  strings.TrimSpace(code.CodeSystem),
		Display: strings.TrimSpace(code.DisplayName),
	}
	return appendUniqueRef(codes, ref)
}

func appendValueRef(codes []CodeRef, value *Value) []CodeRef {
	ref := CodeRef{
		Code:    strings.TrimSpace(value.Code),
		System:  strings.TrimSpace(value.CodeSystem),
		Display: strings.TrimSpace(value.DisplayName),
	}
	return appendUniqueRef(codes, ref)
}

func appendUniqueRef(codes []CodeRef, ref CodeRef) []CodeRef {
	if ref.Code == "" {
		return codes
	}
	for _, existing := range codes {
		if existing == ref {
			return codes
		}
	}
	return append(codes, ref)
}

// joinSortedUnique joins distinct trimmed parts sorted lexically, matching
// a stable notes rendering independent of document order.
func joinSortedUnique(parts []string) string {
	unique := map[string]bool{}
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			unique[trimmed] = true
		}
	}
	if len(unique) == 0 {
		return ""
	}
	sorted := make([]string, 0, len(unique))
	for part := range unique {
		sorted = append(sorted, part)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, " | ")
}

func containsString(values []string, needle string) bool {
	for _, value := range values {
		if value == needle {
			return true
		}
	}
	return false
}

// titleCase renders a status label in title case ("active" -> "Active").
func titleCase(value string) string {
	if value == "" {
		return ""
	}
	words := strings.Fields(value)
	for i, word := range words {
		lower := strings.ToLower(word)
		words[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(words, " ")
}
