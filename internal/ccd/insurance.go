package ccd

var coverageSectionCodes = []string{LOINCPaymentSources, LOINCCoverageExt, LOINCHealthPlanPay}

// ExtractInsurance collects coverage policies from payment-source
// sections. A coverage activity act supplies container defaults; nested
// policy activity acts each yield a policy, falling back to the container
// itself when no detail acts exist. Policies naming no payer, plan,
// member, subscriber, or group are dropped.
func (d *Document) ExtractInsurance() []InsuranceEntry {
	var out []InsuranceEntry
	for _, section := range d.SectionsByCode(coverageSectionCodes...) {
		for i := range section.Entries {
			container := section.Entries[i].Act
			if container == nil {
				continue
			}
			roots := container.TemplateRoots()
			if !roots[TemplateCoverageActivity] && !roots[TemplatePolicyActivity] && !roots[TemplateInsuranceProvider] {
				continue
			}

			defaults := d.coverageDefaults(container)

			detailActs := coverageDetailActs(container)
			if len(detailActs) == 0 {
				detailActs = []*Statement{container}
			}
			for _, act := range detailActs {
				if policy, ok := d.buildPolicy(act, defaults); ok {
					out = append(out, policy)
				}
			}
		}
	}
	return out
}

func coverageDetailActs(container *Statement) []*Statement {
	var out []*Statement
	for i := range container.EntryRelationships {
		act := container.EntryRelationships[i].Act
		if act != nil && act.TemplateRoots()[TemplatePolicyActivity] {
			out = append(out, act)
		}
	}
	return out
}

// coverageDefaults captures container-act metadata reused when a policy
// act omits a field.
func (d *Document) coverageDefaults(act *Statement) InsuranceEntry {
	start, end := coverageTimeRange(act)
	groupNumber := act.SourceID()
	return InsuranceEntry{
		PayerName:      d.payerName(act),
		PayerID:        payerIdentifier(act),
		PlanName:       d.planName(act),
		CoverageType:   coverageType(act),
		PolicyType:     act.ClassCode,
		GroupNumber:    groupNumber,
		SourcePolicyID: groupNumber,
		CoverageStart:  start,
		CoverageEnd:    end,
		Status:         statementStatus(act),
		Notes:          d.policyNotes(act),
	}
}

func (d *Document) buildPolicy(act *Statement, defaults InsuranceEntry) (InsuranceEntry, bool) {
	actGroup := act.SourceID()
	actStart, actEnd := coverageTimeRange(act)

	covID, covRelationship, covName, covStart, covEnd := d.coverageParticipant(act)
	subID, subRelationship, subName := d.participantRoleDetails(act, "SUB")
	hldID, hldRelationship, hldName := d.participantRoleDetails(act, "HLD")

	start := firstNonEmpty(covStart, actStart, defaults.CoverageStart)
	end := firstNonEmpty(covEnd, actEnd, defaults.CoverageEnd)
	if end != "" && end == start {
		end = ""
	}

	policy := InsuranceEntry{
		PayerName:      firstNonEmpty(d.payerName(act), defaults.PayerName),
		PayerID:        firstNonEmpty(payerIdentifier(act), defaults.PayerID),
		PlanName:       firstNonEmpty(d.planName(act), defaults.PlanName),
		CoverageType:   firstNonEmpty(coverageType(act), defaults.CoverageType),
		PolicyType:     firstNonEmpty(act.ClassCode, defaults.PolicyType),
		MemberID:       firstNonEmpty(covID, hldID, defaults.MemberID),
		GroupNumber:    firstNonEmpty(actGroup, defaults.GroupNumber),
		SubscriberID:   firstNonEmpty(subID, covID, defaults.SubscriberID),
		SubscriberName: firstNonEmpty(subName, covName, hldName, defaults.SubscriberName),
		Relationship:   firstNonEmpty(covRelationship, subRelationship, hldRelationship, defaults.Relationship),
		CoverageStart:  start,
		CoverageEnd:    end,
		Status:         firstNonEmpty(statementStatus(act), defaults.Status),
		SourcePolicyID: firstNonEmpty(actGroup, defaults.SourcePolicyID),
		Notes:          firstNonEmpty(d.policyNotes(act), defaults.Notes),
	}

	if policy.PayerName == "" && policy.PlanName == "" && policy.MemberID == "" &&
		policy.SubscriberID == "" && policy.GroupNumber == "" {
		return InsuranceEntry{}, false
	}
	return policy, true
}

// payerName prefers the performer's organization over an assigned person.
func (d *Document) payerName(act *Statement) string {
	for i := range act.Performers {
		entity := act.Performers[i].AssignedEntity
		if entity == nil {
			continue
		}
		if entity.Organization != nil {
			if name := firstName(entity.Organization.Names); name != "" {
				return name
			}
		}
		if entity.AssignedPerson != nil {
			if name := firstName(entity.AssignedPerson.Names); name != "" {
				return name
			}
		}
	}
	return ""
}

func payerIdentifier(act *Statement) string {
	for i := range act.Performers {
		entity := act.Performers[i].AssignedEntity
		if entity == nil {
			continue
		}
		for _, id := range entity.IDs {
			if candidate := firstNonEmpty(id.Extension, id.Root); candidate != "" {
				return candidate
			}
		}
	}
	return ""
}

func coverageType(act *Statement) string {
	if act.Code == nil {
		return ""
	}
	return firstNonEmpty(act.Code.DisplayName, act.Code.Code)
}

func statementStatus(act *Statement) string {
	if act.StatusCode == nil {
		return ""
	}
	return collapseSpaces(act.StatusCode.Code)
}

// coverageTimeRange reads an act's effectiveTime, dropping an end equal to
// the start so point values persist as open-ended coverage.
func coverageTimeRange(act *Statement) (start, end string) {
	if len(act.EffectiveTimes) == 0 {
		return "", ""
	}
	eff := &act.EffectiveTimes[0]
	if eff.Value != "" {
		return eff.Value, ""
	}
	if eff.Low != nil {
		start = eff.Low.Value
	}
	if eff.High != nil {
		end = eff.High.Value
	}
	if end == start {
		end = ""
	}
	return start, end
}

func (d *Document) policyNotes(act *Statement) string {
	if text := d.referencedText(act.Text); text != "" {
		return text
	}
	if act.Text != nil {
		return act.Text.FlatText()
	}
	return ""
}

// planName resolves the plan label from the act's narrative, a nested
// act's narrative, or the act title.
func (d *Document) planName(act *Statement) string {
	if name := d.policyNotes(act); name != "" {
		return name
	}
	for i := range act.EntryRelationships {
		if nested := act.EntryRelationships[i].Act; nested != nil {
			if name := d.policyNotes(nested); name != "" {
				return name
			}
		}
	}
	return collapseSpaces(act.Title)
}

// coverageParticipant reads the covered-party (COV) role: identifier,
// relationship to the subscriber, display name, and coverage window.
func (d *Document) coverageParticipant(act *Statement) (id, relationship, name, start, end string) {
	participant := act.participantByType("COV")
	if participant == nil || participant.ParticipantRole == nil {
		return "", "", "", "", ""
	}
	role := participant.ParticipantRole
	for _, identifier := range role.IDs {
		if id = firstNonEmpty(identifier.Extension, identifier.Root); id != "" {
			break
		}
	}
	relationship = d.roleRelationship(role)
	if role.PlayingEntity != nil {
		name = firstName(role.PlayingEntity.Names)
	}
	if role.Time != nil {
		start, end = RawTimeRange(role.Time)
	}
	return id, relationship, name, start, end
}

func (d *Document) participantRoleDetails(act *Statement, typeCode string) (id, relationship, name string) {
	participant := act.participantByType(typeCode)
	if participant == nil || participant.ParticipantRole == nil {
		return "", "", ""
	}
	role := participant.ParticipantRole
	for _, identifier := range role.IDs {
		if id = firstNonEmpty(identifier.Extension, identifier.Root); id != "" {
			break
		}
	}
	relationship = d.roleRelationship(role)
	if role.PlayingEntity != nil {
		name = firstName(role.PlayingEntity.Names)
	}
	return id, relationship, name
}

func (d *Document) roleRelationship(role *ParticipantRole) string {
	if role.Code == nil {
		return ""
	}
	if role.Code.OriginalText != nil {
		if text := role.Code.OriginalText.FlatText(); text != "" {
			return text
		}
		if text := d.referencedText(role.Code.OriginalText); text != "" {
			return text
		}
	}
	return firstNonEmpty(role.Code.DisplayName, role.Code.Code)
}
