package ccd

// ExtractVitals collects vital sign observations from the vitals section.
// Organizer-level timestamps, identifiers, and authors back-fill whatever
// the individual observations omit.
func (d *Document) ExtractVitals() []VitalEntry {
	var out []VitalEntry
	section := d.firstSectionByCode(LOINCVitalSigns)
	if section == nil || section.NullFlavor == "NI" {
		return out
	}

	for i := range section.Entries {
		organizer := section.Entries[i].Organizer
		if organizer == nil {
			continue
		}
		var orgStart, orgEnd string
		if len(organizer.EffectiveTimes) > 0 {
			orgStart, orgEnd = RawTimeRange(&organizer.EffectiveTimes[0])
			if orgEnd == "" {
				orgEnd = orgStart
			}
		}
		orgSourceID := organizer.SourceID()
		orgPerson, orgOrgName := authorNames(organizer.Authors)
		orgProvider := firstNonEmpty(orgPerson, orgOrgName)

		for j := range organizer.Components {
			obs := organizer.Components[j].Observation
			if obs == nil || obs.Code == nil {
				continue
			}

			vitalType := d.codeText(obs.Code)
			if vitalType == "" {
				vitalType = obs.Code.Code
			}

			value, unit := valueAndUnit(obs.FirstValue())
			if value == "" {
				continue
			}

			status := ""
			if obs.StatusCode != nil {
				status = obs.StatusCode.Code
			}

			var obsStart, obsEnd string
			if len(obs.EffectiveTimes) > 0 {
				obsStart, obsEnd = RawTimeRange(&obs.EffectiveTimes[0])
				if obsEnd == "" {
					obsEnd = obsStart
				}
			}

			obsPerson, obsOrg := authorNames(obs.Authors)
			obsProvider := firstNonEmpty(obsPerson, obsOrg)

			out = append(out, VitalEntry{
				Code:              obs.Code.Code,
				Type:              vitalType,
				Value:             value,
				Unit:              unit,
				Status:            status,
				Date:              firstNonEmpty(obsStart, obsEnd, orgStart, orgEnd),
				Provider:          firstNonEmpty(obsProvider, orgProvider),
				EncounterSourceID: orgSourceID,
				EncounterStart:    firstNonEmpty(obsStart, orgStart),
				EncounterEnd:      firstNonEmpty(obsEnd, orgEnd),
			})
		}
	}
	return out
}
