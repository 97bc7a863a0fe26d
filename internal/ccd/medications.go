package ccd

import "strings"

// ExtractMedications collects medication activity entries. The drug name
// resolves through the manufactured material's displayName, its narrative
// reference, the sig text, and finally the bare RxNorm code; entries with
// no resolvable name are dropped.
func (d *Document) ExtractMedications() []MedicationEntry {
	var out []MedicationEntry
	for _, med := range d.medicationStatements() {
		var name, rxnorm string
		if material := medicationMaterial(med); material != nil && material.Code != nil {
			name = collapseSpaces(material.Code.DisplayName)
			rxnorm = strings.TrimSpace(material.Code.Code)
			if name == "" && material.Code.OriginalText != nil {
				name = d.referencedText(material.Code.OriginalText)
			}
		}

		sigText := d.referencedText(med.Text)

		var start, end string
		var frequency string
		for i := range med.EffectiveTimes {
			eff := &med.EffectiveTimes[i]
			if strings.EqualFold(eff.XSIType, "PIVL_TS") {
				if frequency == "" {
					frequency = pivlFrequency(eff)
				}
				continue
			}
			if start == "" && end == "" {
				if eff.Low != nil {
					start = eff.Low.Value
				}
				if eff.High != nil {
					end = eff.High.Value
				}
			}
		}

		var route string
		if med.RouteCode != nil {
			route = firstNonEmpty(med.RouteCode.DisplayName, med.RouteCode.Code)
			if route == "" && med.RouteCode.OriginalText != nil {
				route = med.RouteCode.OriginalText.FlatText()
			}
		}

		var dose string
		if med.DoseQuantity != nil {
			dose = joinNonEmpty(" ", med.DoseQuantity.Value, med.DoseQuantity.Unit)
		}

		status := medicationStatus(med)

		person, org := authorNames(med.Authors)
		provider := firstNonEmpty(person, org)

		if name == "" {
			name = firstNonEmpty(sigText, rxnorm)
		}
		if name == "" {
			continue
		}

		out = append(out, MedicationEntry{
			Name:       name,
			RxNorm:     rxnorm,
			Dose:       dose,
			Route:      route,
			Frequency:  frequency,
			Start:      start,
			End:        end,
			Status:     titleCase(status),
			Notes:      sigText,
			Provider:   provider,
			AuthorTime: authorTime(med.Authors),
			SourceID:   med.SourceID(),
		})
	}
	return out
}

// medicationStatements returns every substanceAdministration carrying the
// medication activity template, wherever it appears in the body.
func (d *Document) medicationStatements() []*Statement {
	var out []*Statement
	for _, section := range d.Sections() {
		for i := range section.Entries {
			entry := &section.Entries[i]
			if med := entry.SubstanceAdministration; med != nil && med.TemplateRoots()[TemplateMedicationActivity] {
				out = append(out, med)
			}
		}
	}
	return out
}

func medicationMaterial(med *Statement) *ManufacturedMaterial {
	if med.Consumable == nil || med.Consumable.ManufacturedProduct == nil {
		return nil
	}
	return med.Consumable.ManufacturedProduct.ManufacturedMaterial
}

// medicationStatus prefers the 33999-4 status observation over the
// activity's own statusCode.
func medicationStatus(med *Statement) string {
	for i := range med.EntryRelationships {
		obs := med.EntryRelationships[i].Observation
		if obs == nil || obs.Code == nil || obs.Code.Code != "33999-4" {
			continue
		}
		if value := obs.FirstValue(); value != nil {
			if label := firstNonEmpty(value.DisplayName, value.Code); label != "" {
				return label
			}
		}
	}
	if med.StatusCode != nil {
		return collapseSpaces(med.StatusCode.Code)
	}
	return ""
}

// pivlFrequency renders a PIVL_TS period as "Every N unit".
func pivlFrequency(eff *EffectiveTime) string {
	if eff.Period != nil {
		value := strings.TrimSpace(eff.Period.Value)
		unit := strings.TrimSpace(eff.Period.Unit)
		if value != "" || unit != "" {
			return "Every " + joinNonEmpty(" ", value, unit)
		}
	}
	if eff.OriginalText != nil {
		return eff.OriginalText.FlatText()
	}
	return ""
}
