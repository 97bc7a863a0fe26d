package ccd

// CVX code systems accepted on immunization codes, including the legacy
// SNOMED mapping some producers still emit.
var cvxCodeSystems = map[string]bool{
	OIDCVX:       true,
	OIDLegacyCVX: true,
}

// ExtractImmunizations collects vaccine administrations from the
// immunizations section. The vaccine name resolves through an ordered
// candidate chain ending at the bare code, and CVX identifiers are
// gathered from both the administration code and the material code,
// translations included.
func (d *Document) ExtractImmunizations() []ImmunizationEntry {
	var out []ImmunizationEntry
	section := d.firstSectionByCode(LOINCImmunizations)
	if section == nil || section.NullFlavor == "NI" {
		return out
	}

	for i := range section.Entries {
		admin := section.Entries[i].SubstanceAdministration
		if admin == nil {
			continue
		}

		status := ""
		if admin.StatusCode != nil {
			status = admin.StatusCode.Code
		}

		date := ""
		if len(admin.EffectiveTimes) > 0 {
			eff := &admin.EffectiveTimes[0]
			if eff.Value != "" {
				date = eff.Value
			} else if eff.Low != nil && eff.Low.Value != "" {
				date = eff.Low.Value
			} else if eff.High != nil {
				date = eff.High.Value
			}
		}

		material := medicationMaterial(admin)
		var materialCode *Code
		productName, lotNumber := "", ""
		if material != nil {
			materialCode = material.Code
			productName = firstName(material.Names)
			lotNumber = collapseSpaces(material.LotNumberText)
		}

		name := firstNonEmpty(
			codeDisplayName(admin.Code),
			d.originalTextRef(admin.Code),
			d.referencedText(admin.Text),
			codeDisplayName(materialCode),
			d.originalTextRef(materialCode),
			productName,
			codeValue(admin.Code),
			codeValue(materialCode),
		)

		var cvx []string
		cvx = collectCVX(cvx, admin.Code)
		cvx = collectCVX(cvx, materialCode)

		out = append(out, ImmunizationEntry{
			VaccineName: name,
			CvxCodes:    uniqueNonEmpty(cvx),
			Date:        date,
			Status:      status,
			ProductName: productName,
			LotNumber:   lotNumber,
		})
	}
	return out
}

func codeDisplayName(code *Code) string {
	if code == nil {
		return ""
	}
	return collapseSpaces(code.DisplayName)
}

func codeValue(code *Code) string {
	if code == nil {
		return ""
	}
	return collapseSpaces(code.Code)
}

func (d *Document) originalTextRef(code *Code) string {
	if code == nil || code.OriginalText == nil {
		return ""
	}
	return d.referencedText(code.OriginalText)
}

func collectCVX(codes []string, code *Code) []string {
	if code == nil {
		return codes
	}
	if code.Code != "" && cvxCodeSystems[code.CodeSystem] {
		codes = append(codes, code.Code)
	}
	for i := range code.Translations {
		codes = collectCVX(codes, &code.Translations[i])
	}
	return codes
}

func uniqueNonEmpty(values []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, value := range values {
		cleaned := collapseSpaces(value)
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	return out
}
