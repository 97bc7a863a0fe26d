package ccd

var allergySectionCodes = []string{LOINCAllergies, LOINCAllergyIntol, LOINCAllergySummary}

// ExtractAllergies collects allergy and intolerance observations. An
// observation qualifies by carrying the allergy concern or allergy
// observation template; the substance is read from the CSM participant
// with the observation value as fallback.
func (d *Document) ExtractAllergies() []AllergyEntry {
	var out []AllergyEntry
	for _, section := range d.SectionsByCode(allergySectionCodes...) {
		for i := range section.Entries {
			entry := &section.Entries[i]
			for _, obs := range allergyObservations(entry) {
				valueCode, valueSystem, valueDisplay := valueDetails(obs.FirstValue())

				participantName, participantCode, participantSystem, participantDisplay := allergySubstance(obs)

				substance := firstNonEmpty(participantName, valueDisplay, valueCode)
				substanceCode := firstNonEmpty(participantCode, valueCode)
				substanceSystem := firstNonEmpty(participantSystem, valueSystem)
				substanceDisplay := firstNonEmpty(participantDisplay, valueDisplay)

				reaction, reactionCode, reactionSystem := allergyReaction(obs)
				severity := allergySeverity(obs)

				notes := d.referencedText(obs.Text)
				if notes == "" && obs.Text != nil {
					notes = obs.Text.FlatText()
				}

				status := ""
				if obs.StatusCode != nil {
					status = obs.StatusCode.Code
				}

				onset := ""
				if len(obs.EffectiveTimes) > 0 {
					onset, _ = RawTimeRange(&obs.EffectiveTimes[0])
				}

				criticality := ""
				if obs.PriorityCode != nil {
					criticality = firstNonEmpty(obs.PriorityCode.DisplayName, obs.PriorityCode.Code)
				}

				person, org := authorNames(obs.Authors)
				provider := firstNonEmpty(person, org)

				encSourceID, encStart, encEnd := allergyEncounterHint(obs)

				out = append(out, AllergyEntry{
					Substance:            substance,
					SubstanceCode:        substanceCode,
					SubstanceCodeSystem:  substanceSystem,
					SubstanceCodeDisplay: substanceDisplay,
					Reaction:             reaction,
					ReactionCode:         reactionCode,
					ReactionCodeSystem:   reactionSystem,
					Severity:             severity,
					Criticality:          criticality,
					Status:               status,
					Onset:                onset,
					NotedDate:            authorTime(obs.Authors),
					Notes:                notes,
					Provider:             provider,
					SourceAllergyID:      obs.SourceID(),
					EncounterSourceID:    encSourceID,
					EncounterStart:       encStart,
					EncounterEnd:         encEnd,
				})
			}
		}
	}
	return out
}

// allergyObservations walks an entry for observations carrying the allergy
// templates, at any nesting depth.
func allergyObservations(entry *Entry) []*Statement {
	var out []*Statement
	var walk func(s *Statement)
	walk = func(s *Statement) {
		if s == nil {
			return
		}
		roots := s.TemplateRoots()
		if roots[TemplateAllergyConcern] || roots[TemplateAllergyObservation] {
			out = append(out, s)
		}
		for i := range s.EntryRelationships {
			rel := &s.EntryRelationships[i]
			walk(rel.Observation)
			for _, nested := range []*Statement{rel.Act, rel.Encounter, rel.Procedure} {
				walk(nested)
			}
		}
	}
	if entry.Observation != nil {
		walk(entry.Observation)
	}
	if entry.Act != nil {
		// The concern act itself is a wrapper; only its nested
		// observations qualify.
		for i := range entry.Act.EntryRelationships {
			walk(entry.Act.EntryRelationships[i].Observation)
		}
	}
	return out
}

func allergySubstance(obs *Statement) (name, code, system, display string) {
	participant := obs.participantByType("CSM")
	if participant == nil || participant.ParticipantRole == nil || participant.ParticipantRole.PlayingEntity == nil {
		return "", "", "", ""
	}
	playing := participant.ParticipantRole.PlayingEntity
	if playing.Code != nil {
		name = collapseSpaces(playing.Code.DisplayName)
		code = playing.Code.Code
		system = playing.Code.CodeSystem
		display = collapseSpaces(playing.Code.DisplayName)
	}
	if name == "" {
		name = firstName(playing.Names)
	}
	return name, code, system, display
}

// allergyReaction reads the first manifestation (MFST/SUBJ) reaction
// observation under the allergy.
func allergyReaction(obs *Statement) (reaction, code, system string) {
	for i := range obs.EntryRelationships {
		rel := &obs.EntryRelationships[i]
		if rel.TypeCode != "MFST" && rel.TypeCode != "SUBJ" {
			continue
		}
		reactionObs := rel.Observation
		if reactionObs == nil || !reactionObs.TemplateRoots()[TemplateReactionObs] {
			continue
		}
		valueCode, valueSystem, valueDisplay := valueDetails(reactionObs.FirstValue())
		reaction = firstNonEmpty(valueDisplay, valueCode)
		if reaction == "" && reactionObs.Text != nil {
			reaction = reactionObs.Text.FlatText()
		}
		return reaction, valueCode, valueSystem
	}
	return "", "", ""
}

// allergySeverity reads the SEV-coded or severity-templated observation.
func allergySeverity(obs *Statement) string {
	for i := range obs.EntryRelationships {
		rel := &obs.EntryRelationships[i]
		severityObs := rel.Observation
		if severityObs == nil {
			continue
		}
		templates := severityObs.TemplateRoots()
		if rel.TypeCode != "SUBJ" && rel.TypeCode != "REFR" && len(templates) == 0 {
			continue
		}
		sevCoded := severityObs.Code != nil && severityObs.Code.Code == "SEV"
		if sevCoded || templates[TemplateSeverityObs] {
			if _, _, display := valueDetails(severityObs.FirstValue()); display != "" {
				return display
			}
		}
	}
	return ""
}

func allergyEncounterHint(obs *Statement) (sourceID, start, end string) {
	for i := range obs.EntryRelationships {
		encounter := obs.EntryRelationships[i].Encounter
		if encounter == nil {
			continue
		}
		sourceID = encounter.SourceID()
		if len(encounter.EffectiveTimes) > 0 {
			start, end = RawTimeRange(&encounter.EffectiveTimes[0])
		}
		return sourceID, start, end
	}
	return "", "", ""
}

func valueDetails(value *Value) (code, system, display string) {
	if value == nil {
		return "", "", ""
	}
	return collapseSpaces(value.Code), collapseSpaces(value.CodeSystem),
		firstNonEmpty(value.DisplayName, value.Text)
}
