package ccd

import (
	"fmt"
	"strings"
)

// ExtractEncounters collects every encounter statement in the document.
// Appointment entries (moodCode APT) are skipped; the document-level
// encompassing encounter and service event supply timestamps and the
// attending provider when an entry carries none of its own. A patient's
// birth date is never accepted as an encounter timestamp.
func (d *Document) ExtractEncounters() []EncounterEntry {
	reasonForVisit := d.reasonForVisit()
	selector := NewTimeSelector(d.BirthTimeValue())

	var globalPerson, globalOrg string
	var globalStart, globalEnd string
	if co := d.Root.ComponentOf; co != nil && co.EncompassingEncounter != nil {
		enc := co.EncompassingEncounter
		for i := range enc.EncounterParticipants {
			person, org := personAndOrg(enc.EncounterParticipants[i].AssignedEntity)
			if globalPerson == "" {
				globalPerson = person
			}
			if globalOrg == "" {
				globalOrg = org
			}
		}
		globalStart, globalEnd = TimeRange(enc.EffectiveTime)
	}

	var serviceStart, serviceEnd string
	if do := d.Root.DocumentationOf; do != nil && do.ServiceEvent != nil {
		serviceStart, serviceEnd = TimeRange(do.ServiceEvent.EffectiveTime)
	}

	var out []EncounterEntry
	for _, enc := range d.encounterStatements() {
		if enc.MoodCode == "APT" {
			continue
		}

		var code, encType string
		if enc.Code != nil {
			code = enc.Code.Code
			encType = d.codeText(enc.Code)
		}
		if encType == "" {
			encType = code
		}

		description := d.referencedText(enc.Text)

		var status string
		if enc.StatusCode != nil {
			status = enc.StatusCode.Code
		}

		var entryStart, entryEnd string
		if len(enc.EffectiveTimes) > 0 {
			entryStart, entryEnd = TimeRange(&enc.EffectiveTimes[0])
		}
		start, end := selector.Select(
			TimeCandidate{globalStart, globalEnd},
			TimeCandidate{serviceStart, serviceEnd},
			TimeCandidate{entryStart, entryEnd},
		)

		provider, attendingOrg := "", ""
		if attending := enc.participantByType("ATND"); attending != nil {
			provider, attendingOrg = personAndOrg(attending.AssignedEntity)
		}
		performingOrg := ""
		if provider == "" {
			provider, performingOrg = performerNames(enc.Performers)
		}
		if provider == "" {
			provider = globalPerson
		}
		org := firstNonEmpty(attendingOrg, performingOrg, globalOrg)

		location := ""
		if loc := enc.participantByType("LOC"); loc != nil &&
			loc.ParticipantRole != nil && loc.ParticipantRole.PlayingEntity != nil {
			location = firstName(loc.ParticipantRole.PlayingEntity.Names)
		}

		var extraNotes []string
		for i := range enc.EntryRelationships {
			d.collectReferencedTexts(&enc.EntryRelationships[i], &extraNotes)
		}

		sourceID := enc.SourceID()

		notes := joinNonEmpty(" | ",
			description,
			joinNonEmpty(" | ", extraNotes...),
			labeled("Location", location),
			labeled("Status", status),
			labeled("Mood", enc.MoodCode),
			labeled("Encounter ID", sourceID),
		)

		out = append(out, EncounterEntry{
			Code:           code,
			Type:           encType,
			Status:         status,
			Mood:           enc.MoodCode,
			Start:          start,
			End:            end,
			Provider:       provider,
			Organization:   org,
			Location:       location,
			Notes:          notes,
			SourceID:       sourceID,
			ReasonForVisit: reasonForVisit,
		})
	}
	return out
}

// encounterStatements returns every <encounter> statement in the body,
// whether a direct section entry or nested under entry relationships.
func (d *Document) encounterStatements() []*Statement {
	var out []*Statement
	var fromRelationships func(s *Statement)
	fromRelationships = func(s *Statement) {
		for i := range s.EntryRelationships {
			rel := &s.EntryRelationships[i]
			if rel.Encounter != nil {
				out = append(out, rel.Encounter)
				fromRelationships(rel.Encounter)
			}
			for _, nested := range []*Statement{rel.Observation, rel.Act, rel.Procedure} {
				if nested != nil {
					fromRelationships(nested)
				}
			}
		}
	}
	for _, section := range d.Sections() {
		for i := range section.Entries {
			entry := &section.Entries[i]
			if entry.Encounter != nil {
				out = append(out, entry.Encounter)
				fromRelationships(entry.Encounter)
			}
			for _, stmt := range []*Statement{entry.Observation, entry.Act, entry.Procedure, entry.Organizer, entry.SubstanceAdministration} {
				if stmt != nil {
					fromRelationships(stmt)
				}
			}
		}
	}
	return out
}

// collectReferencedTexts resolves text references under an entry
// relationship subtree into the notes list.
func (d *Document) collectReferencedTexts(rel *EntryRelationship, out *[]string) {
	for _, stmt := range []*Statement{rel.Observation, rel.Encounter, rel.Act, rel.Procedure} {
		if stmt == nil {
			continue
		}
		if text := d.referencedText(stmt.Text); text != "" {
			*out = append(*out, text)
		}
		for i := range stmt.EntryRelationships {
			d.collectReferencedTexts(&stmt.EntryRelationships[i], out)
		}
	}
}

// reasonForVisit joins the narrative of every reason-for-visit section. A
// section qualifies by LOINC code or by a "Reason for Visit/Encounter/
// Referral" style title; distinct fragments are deduplicated and joined
// with "; ".
func (d *Document) reasonForVisit() string {
	var reasons []string
	seen := map[string]bool{}
	add := func(value string) {
		cleaned := collapseSpaces(value)
		if cleaned == "" || seen[cleaned] {
			return
		}
		seen[cleaned] = true
		reasons = append(reasons, cleaned)
	}

	for _, section := range d.Sections() {
		code := ""
		if section.Code != nil {
			code = section.Code.Code
		}
		title := strings.ToLower(collapseSpaces(section.Title))
		titled := strings.Contains(title, "reason") &&
			(strings.Contains(title, "visit") || strings.Contains(title, "encounter") || strings.Contains(title, "referral"))
		if !reasonForVisitCodes[code] && !titled {
			continue
		}

		if section.Text != nil {
			fragments := section.Text.Fragments()
			for _, fragment := range fragments {
				add(fragment)
			}
			if len(fragments) == 0 {
				add(section.Text.FlatText())
			}
			for _, ref := range section.Text.FindAll("reference") {
				if ref.RefValue != "" {
					add(d.TextByID(ref.RefValue))
				}
			}
		}
		for i := range section.Entries {
			entry := &section.Entries[i]
			for _, stmt := range []*Statement{entry.Act, entry.Observation} {
				if stmt != nil && stmt.Text != nil {
					add(stmt.Text.FlatText())
					if text := d.referencedText(stmt.Text); text != "" {
						add(text)
					}
				}
			}
		}
	}
	return strings.Join(reasons, "; ")
}

// codeText resolves a coded element's display text: displayName first,
// then the originalText narrative reference, then any translation's
// displayName.
func (d *Document) codeText(code *Code) string {
	if code == nil {
		return ""
	}
	if display := collapseSpaces(code.DisplayName); display != "" {
		return display
	}
	if code.OriginalText != nil {
		if text := d.referencedText(code.OriginalText); text != "" {
			return text
		}
		if text := code.OriginalText.FlatText(); text != "" {
			return text
		}
	}
	for i := range code.Translations {
		if display := collapseSpaces(code.Translations[i].DisplayName); display != "" {
			return display
		}
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	var cleaned []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, sep)
}

func labeled(label, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("%s: %s", label, value)
}
