package ccd

import "strings"

// NormalizeTime canonicalizes an HL7 timestamp. Values with a time
// component (>= 14 chars) are kept as-is, timezone offset included;
// date-only values are padded to midnight; anything shorter is rejected.
func NormalizeTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) >= 14 {
		return value
	}
	if len(value) >= 8 {
		return value[:8] + "000000"
	}
	return ""
}

// DateOnly extracts the leading 8 digit date from a timestamp, or "".
func DateOnly(value string) string {
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() >= 8 {
		return digits.String()[:8]
	}
	return ""
}

// TimeRange extracts normalized (start, end) from an effectiveTime: a
// single value covers both ends, otherwise low/high are read separately
// and a missing end falls back to the start for point-in-time events.
func TimeRange(node *EffectiveTime) (start, end string) {
	if node == nil {
		return "", ""
	}
	if value := NormalizeTime(node.Value); value != "" {
		return value, value
	}
	if node.Low != nil {
		start = NormalizeTime(node.Low.Value)
	}
	if node.High != nil {
		end = NormalizeTime(node.High.Value)
	}
	if end == "" && start != "" {
		end = start
	}
	return start, end
}

// RawTimeRange extracts (start, end) without normalization, for fields
// where the source precision must be preserved (onsets, author times).
func RawTimeRange(node *EffectiveTime) (start, end string) {
	if node == nil {
		return "", ""
	}
	if node.Value != "" {
		return node.Value, node.Value
	}
	if node.Low != nil {
		start = node.Low.Value
	}
	if node.High != nil {
		end = node.High.Value
	}
	return start, end
}

// TimeCandidate is one (start, end) pair in an ordered fallback chain.
type TimeCandidate struct {
	Start string
	End   string
}

// TimeSelector picks timestamps from an ordered candidate list while
// rejecting known-bad anchors (a patient's birth date is never a visit
// date). Candidates are tried most-specific first; each side resolves
// independently so a start from one candidate can pair with an end from
// the next.
type TimeSelector struct {
	invalid []string
}

// NewTimeSelector builds a selector that rejects the given raw timestamp
// values and their date-only prefixes.
func NewTimeSelector(invalidValues ...string) *TimeSelector {
	selector := &TimeSelector{}
	for _, value := range invalidValues {
		if value == "" {
			continue
		}
		selector.invalid = append(selector.invalid, value)
		if day := DateOnly(value); day != "" && day != value {
			selector.invalid = append(selector.invalid, day)
		}
	}
	return selector
}

func (s *TimeSelector) valid(value string) bool {
	if value == "" {
		return false
	}
	for _, invalid := range s.invalid {
		if invalid != "" && strings.HasPrefix(value, invalid) {
			return false
		}
	}
	return true
}

// Select returns the first valid start and end across the ordered
// candidates.
func (s *TimeSelector) Select(candidates ...TimeCandidate) (start, end string) {
	for _, candidate := range candidates {
		if start == "" && s.valid(candidate.Start) {
			start = candidate.Start
		}
		if end == "" && s.valid(candidate.End) {
			end = candidate.End
		}
		if start != "" && end != "" {
			break
		}
	}
	return start, end
}
