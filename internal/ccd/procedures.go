package ccd

import "strings"

var procedureSectionCodes = map[string]bool{
	LOINCProcedureHx:    true,
	LOINCInterventions:  true,
	LOINCProcedureNote:  true,
}

var procedureTemplates = map[string]bool{
	TemplateProcedureAct: true,
	TemplateProcedureObs: true,
	TemplateProcedure:    true,
}

// ExtractProcedures collects performed procedures. Sections qualify by
// code or by a "procedure" title; entries outside a coded procedure
// section must carry a procedure activity template.
func (d *Document) ExtractProcedures() []ProcedureEntry {
	var out []ProcedureEntry
	for _, section := range d.Sections() {
		sectionCode := ""
		if section.Code != nil {
			sectionCode = section.Code.Code
		}
		titled := strings.Contains(strings.ToLower(section.Title), "procedure")
		if !procedureSectionCodes[sectionCode] && !titled {
			continue
		}

		for i := range section.Entries {
			entry := &section.Entries[i]
			proc := firstStatement(entry.Procedure, entry.Act, entry.Observation)
			if proc == nil {
				continue
			}

			if !hasAnyTemplate(proc, procedureTemplates) && !procedureSectionCodes[sectionCode] {
				continue
			}

			var codes []CodeRef
			codes = appendCodeRef(codes, proc.Code)
			if proc.Code != nil {
				for j := range proc.Code.Translations {
					codes = appendCodeRef(codes, &proc.Code.Translations[j])
				}
			}

			display := ""
			if proc.Code != nil {
				display = collapseSpaces(proc.Code.DisplayName)
				if display == "" {
					display = d.originalTextRef(proc.Code)
				}
			}

			notes := d.referencedText(proc.Text)

			status := ""
			if proc.StatusCode != nil {
				status = proc.StatusCode.Code
			}

			date := ""
			if len(proc.EffectiveTimes) > 0 {
				eff := &proc.EffectiveTimes[0]
				if eff.Value != "" {
					date = eff.Value
				} else if eff.Low != nil {
					date = eff.Low.Value
				}
			}

			person, org := performerNames(proc.Performers)
			provider := firstNonEmpty(person, org)

			encSourceID := ""
			if encounter := findEntryEncounter(entry); encounter != nil {
				encSourceID = encounter.SourceID()
			}

			name := display
			if name == "" && len(codes) > 0 {
				name = firstNonEmpty(codes[0].Display, codes[0].Code)
			}
			if name == "" {
				name = notes
			}
			if name == "" {
				continue
			}

			out = append(out, ProcedureEntry{
				Name:              name,
				Codes:             codes,
				Status:            titleCase(status),
				Date:              date,
				Notes:             notes,
				Provider:          provider,
				AuthorTime:        authorTime(proc.Authors),
				EncounterSourceID: encSourceID,
			})
		}
	}
	return out
}

func firstStatement(candidates ...*Statement) *Statement {
	for _, candidate := range candidates {
		if candidate != nil {
			return candidate
		}
	}
	return nil
}

func hasAnyTemplate(s *Statement, wanted map[string]bool) bool {
	for root := range s.TemplateRoots() {
		if wanted[root] {
			return true
		}
	}
	return false
}

func findEntryEncounter(entry *Entry) *Statement {
	if entry.Encounter != nil {
		return entry.Encounter
	}
	for _, stmt := range []*Statement{entry.Procedure, entry.Act, entry.Observation, entry.Organizer, entry.SubstanceAdministration} {
		if stmt == nil {
			continue
		}
		if found := stmt.FindEncounter(); found != nil {
			return found
		}
	}
	return nil
}
