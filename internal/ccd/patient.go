package ccd

// ExtractPatient reads the header demographics block. Callers must check
// Identified before persisting anything keyed to the patient.
func (d *Document) ExtractPatient() PatientInfo {
	info := PatientInfo{}
	rt := d.Root.RecordTarget
	if rt == nil || rt.PatientRole == nil || rt.PatientRole.Patient == nil {
		return info
	}
	patient := rt.PatientRole.Patient
	for i := range patient.Names {
		name := &patient.Names[i]
		if info.Given == "" && len(name.Given) > 0 {
			info.Given = collapseSpaces(name.Given[0])
		}
		if info.Family == "" {
			info.Family = collapseSpaces(name.Family)
		}
		if info.Given != "" && info.Family != "" {
			break
		}
	}
	if patient.BirthTime != nil {
		info.BirthDate = patient.BirthTime.Value
	}
	if patient.GenderCode != nil {
		info.Gender = firstNonEmpty(patient.GenderCode.Code, patient.GenderCode.DisplayName)
	}
	return info
}
