package ccd

import "strings"

// ExtractLabs collects laboratory observations from the results section.
// Only LOINC-coded observations qualify; a 56850-1 panel comment inside an
// organizer becomes that organizer's fallback abnormal flag rather than a
// result of its own.
func (d *Document) ExtractLabs() []LabEntry {
	var out []LabEntry
	section := d.firstSectionByCode(LOINCResults)
	if section == nil || section.NullFlavor == "NI" {
		return out
	}

	for i := range section.Entries {
		organizer := section.Entries[i].Organizer
		if organizer == nil {
			continue
		}

		orderingPerson, orderingOrg := authorNames(organizer.Authors)
		orderingProvider := firstNonEmpty(orderingPerson, orderingOrg)
		performingPerson, performingOrg := performerNames(organizer.Performers)
		performing := firstNonEmpty(performingPerson, performingOrg)

		var encSourceID, encStart, encEnd string
		if encounter := organizer.FindEncounter(); encounter != nil {
			encSourceID = encounter.SourceID()
			if len(encounter.EffectiveTimes) > 0 {
				encStart, encEnd = RawTimeRange(&encounter.EffectiveTimes[0])
			}
		}

		// Two passes: panel comments anywhere in the organizer set the
		// fallback flag for every sibling result.
		organizerFlag := ""
		for j := range organizer.Components {
			obs := organizer.Components[j].Observation
			if obs == nil || obs.Code == nil || obs.Code.Code != LOINCPanelComment {
				continue
			}
			if flag := valueText(obs.FirstValue()); flag != "" {
				organizerFlag = flag
			}
		}

		for j := range organizer.Components {
			obs := organizer.Components[j].Observation
			if obs == nil || obs.Code == nil {
				continue
			}
			code := obs.Code
			if !isLOINC(code) || code.Code == "" || code.Code == LOINCPanelComment {
				continue
			}

			testName := collapseSpaces(code.DisplayName)
			if testName == "" && code.OriginalText != nil {
				testName = code.OriginalText.FlatText()
			}
			if testName == "" {
				testName = code.Code
			}

			value, unit := valueAndUnit(obs.FirstValue())
			if value == "" {
				continue
			}

			date := ""
			if len(obs.EffectiveTimes) > 0 {
				eff := &obs.EffectiveTimes[0]
				if eff.Value != "" {
					date = eff.Value
				} else if eff.Low != nil && eff.Low.Value != "" {
					date = eff.Low.Value
				} else if eff.High != nil {
					date = eff.High.Value
				}
			}

			refRange := ""
			for k := range obs.ReferenceRanges {
				if r := obs.ReferenceRanges[k].ObservationRange; r != nil && r.Text != nil {
					if text := r.Text.FlatText(); text != "" {
						refRange = text
						break
					}
				}
			}

			abnormal := ""
			if len(obs.InterpretationCodes) > 0 {
				interp := &obs.InterpretationCodes[0]
				abnormal = firstNonEmpty(interp.Code, interp.DisplayName)
			}
			if abnormal == "" {
				for k := range obs.ReferenceRanges {
					if r := obs.ReferenceRanges[k].ObservationRange; r != nil && r.InterpretationCode != nil {
						abnormal = firstNonEmpty(r.InterpretationCode.Code, r.InterpretationCode.DisplayName)
						if abnormal != "" {
							break
						}
					}
				}
			}
			if abnormal == "" {
				abnormal = organizerFlag
			}

			obsOrderingPerson, obsOrderingOrg := authorNames(obs.Authors)
			obsOrdering := firstNonEmpty(obsOrderingPerson, obsOrderingOrg)
			obsPerformingPerson, obsPerformingOrg := performerNames(obs.Performers)
			obsPerforming := firstNonEmpty(obsPerformingPerson, obsPerformingOrg)

			out = append(out, LabEntry{
				Loinc:             code.Code,
				TestName:          testName,
				Value:             value,
				Unit:              unit,
				ReferenceRange:    refRange,
				AbnormalFlag:      abnormal,
				Date:              date,
				OrderingProvider:  firstNonEmpty(obsOrdering, orderingProvider),
				PerformingOrg:     firstNonEmpty(obsPerforming, performing),
				EncounterSourceID: encSourceID,
				EncounterStart:    encStart,
				EncounterEnd:      encEnd,
			})
		}
	}
	return out
}

func (d *Document) firstSectionByCode(code string) *Section {
	sections := d.SectionsByCode(code)
	if len(sections) == 0 {
		return nil
	}
	return sections[0]
}

func isLOINC(code *Code) bool {
	return code.CodeSystem == OIDLOINC || strings.EqualFold(code.CodeSystemName, "LOINC")
}

// valueAndUnit coerces an observation value: the value attribute first,
// then inline text, then coded display/code; coded types borrow the code
// system name as a pseudo-unit.
func valueAndUnit(value *Value) (string, string) {
	text := valueText(value)
	if value == nil {
		return text, ""
	}
	unit := collapseSpaces(value.Unit)
	switch value.XSIType {
	case "CD", "CE", "CV":
		if unit == "" {
			unit = collapseSpaces(value.CodeSystemName)
		}
	}
	return text, unit
}

func valueText(value *Value) string {
	if value == nil {
		return ""
	}
	return firstNonEmpty(value.Value, value.Text, value.DisplayName, value.Code)
}
