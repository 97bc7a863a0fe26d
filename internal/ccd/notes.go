package ccd

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Timezone abbreviations seen in note captions mapped to UTC offsets.
var captionTZOffsets = map[string]string{
	"UTC":  "+0000",
	"UT":   "+0000",
	"GMT":  "+0000",
	"EST":  "-0500",
	"EDT":  "-0400",
	"CST":  "-0600",
	"CDT":  "-0500",
	"MST":  "-0700",
	"MDT":  "-0600",
	"PST":  "-0800",
	"PDT":  "-0700",
	"AKST": "-0900",
	"AKDT": "-0800",
	"HST":  "-1000",
}

var (
	captionDatePattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	captionTimePattern = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*([AP]M)`)
	captionTZPattern   = regexp.MustCompile(`\b([A-Z]{2,4})$`)
)

// ExtractProgressNotes collects narrative progress notes from sections
// titled "Progress Notes". Each list item yields one note; the caption
// carries the provider and a local timestamp ("Dr. Smith - 3/14/2024
// 2:30 PM EDT") that doubles as an encounter date hint.
func (d *Document) ExtractProgressNotes() []NoteEntry {
	var out []NoteEntry
	for _, section := range d.Sections() {
		if !strings.Contains(strings.ToLower(collapseSpaces(section.Title)), "progress note") {
			continue
		}
		if section.Text == nil {
			continue
		}
		for _, list := range section.Text.FindAll("list") {
			for _, item := range directChildren(list, "item") {
				caption := ""
				if node := directChild(item, "caption"); node != nil {
					caption = node.FlatText()
				}
				provider, noteDatetime, encounterDate := parseNoteCaption(caption)

				content := directChildWithID(item, "content")
				if content == nil {
					content = directChild(item, "content")
				}
				if content == nil {
					continue
				}
				text := content.TextWithBreaks()
				if text == "" {
					continue
				}

				out = append(out, NoteEntry{
					Title:         caption,
					Provider:      provider,
					NoteDatetime:  noteDatetime,
					EncounterDate: encounterDate,
					Text:          text,
					SourceID:      content.ID,
				})
			}
		}
	}
	return out
}

func directChildren(n *Narrative, local string) []*Narrative {
	var out []*Narrative
	for _, seg := range n.Segments {
		if seg.Child != nil && seg.Child.Local == local {
			out = append(out, seg.Child)
		}
	}
	return out
}

func directChild(n *Narrative, local string) *Narrative {
	children := directChildren(n, local)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

func directChildWithID(n *Narrative, local string) *Narrative {
	for _, child := range directChildren(n, local) {
		if child.ID != "" {
			return child
		}
	}
	return nil
}

// parseNoteCaption splits "Provider Name - M/D/YYYY H:MM AM TZ" into the
// provider, an ISO note datetime, and a compact HL7 encounter date hint.
// Missing pieces degrade gracefully: no metadata yields only the provider,
// a date without a time yields date-level values.
func parseNoteCaption(caption string) (provider, noteDatetime, encounterDate string) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return "", "", ""
	}

	providerPart, meta := caption, ""
	if idx := strings.LastIndex(caption, " - "); idx >= 0 {
		providerPart, meta = caption[:idx], caption[idx+3:]
	}
	provider = strings.TrimSpace(providerPart)
	meta = strings.TrimSpace(meta)
	if meta == "" {
		return provider, "", ""
	}

	tzOffset := ""
	if match := captionTZPattern.FindStringSubmatchIndex(meta); match != nil {
		candidate := strings.ToUpper(meta[match[2]:match[3]])
		if offset, ok := captionTZOffsets[candidate]; ok {
			tzOffset = offset
			meta = strings.TrimSpace(meta[:match[0]])
		}
	}

	dateMatch := captionDatePattern.FindStringSubmatch(meta)
	if dateMatch == nil {
		return provider, "", ""
	}
	month, _ := strconv.Atoi(dateMatch[1])
	day, _ := strconv.Atoi(dateMatch[2])
	year, _ := strconv.Atoi(dateMatch[3])
	compactDate := fmt.Sprintf("%04d%02d%02d", year, month, day)
	isoDate := fmt.Sprintf("%04d-%02d-%02d", year, month, day)

	timeMatch := captionTimePattern.FindStringSubmatch(meta)
	if timeMatch == nil {
		return provider, isoDate, compactDate
	}
	hour, _ := strconv.Atoi(timeMatch[1])
	minute, _ := strconv.Atoi(timeMatch[2])
	meridiem := strings.ToUpper(timeMatch[3])
	if meridiem == "PM" && hour != 12 {
		hour += 12
	}
	if meridiem == "AM" && hour == 12 {
		hour = 0
	}

	encounterDate = fmt.Sprintf("%s%02d%02d00", compactDate, hour, minute)
	noteDatetime = fmt.Sprintf("%sT%02d:%02d:00", isoDate, hour, minute)
	if tzOffset != "" {
		encounterDate += tzOffset
		noteDatetime += tzOffset[:3] + ":" + tzOffset[3:]
	}
	return provider, noteDatetime, encounterDate
}
