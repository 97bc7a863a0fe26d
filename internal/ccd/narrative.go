package ccd

import (
	"encoding/xml"
	"strings"
)

// Narrative is a generic node for CDA narrative blocks (<text>, <list>,
// <content>, ...). encoding/xml's chardata handling collapses the order of
// text around child elements, which breaks <br/> line splitting and the
// "#ID" reference resolution the narrative model depends on, so Narrative
// keeps an ordered segment list via a custom unmarshaler.
type Narrative struct {
	Local    string
	ID       string
	RefValue string
	Segments []Segment
}

// Segment is either a text chunk or a child node; exactly one field is set.
type Segment struct {
	Text  string
	Child *Narrative
}

func (n *Narrative) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.Local = start.Name.Local
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "ID":
			n.ID = attr.Value
		case "value":
			n.RefValue = attr.Value
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			n.Segments = append(n.Segments, Segment{Text: string(t)})
		case xml.StartElement:
			child := &Narrative{}
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			n.Segments = append(n.Segments, Segment{Child: child})
		case xml.EndElement:
			return nil
		}
	}
}

// FlatText returns the node's whitespace-collapsed string value, the
// equivalent of XPath string() on the element.
func (n *Narrative) FlatText() string {
	var b strings.Builder
	n.writeText(&b, false)
	return collapseSpaces(b.String())
}

// TextWithBreaks renders the node preserving <br/> elements as newlines
// and trimming blank leading/trailing lines. Used for progress note
// bodies where interior spacing is meaningful.
func (n *Narrative) TextWithBreaks() string {
	var b strings.Builder
	n.writeText(&b, true)
	raw := strings.ReplaceAll(b.String(), "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	lines := strings.Split(raw, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (n *Narrative) writeText(b *strings.Builder, breaks bool) {
	for _, seg := range n.Segments {
		if seg.Child == nil {
			b.WriteString(seg.Text)
			continue
		}
		if breaks && seg.Child.Local == "br" {
			b.WriteString("\n")
			continue
		}
		seg.Child.writeText(b, breaks)
	}
}

// Fragments returns each discrete non-empty text chunk in document order,
// whitespace-collapsed. Mirrors iterating .//text() nodes.
func (n *Narrative) Fragments() []string {
	var out []string
	n.collectFragments(&out)
	return out
}

func (n *Narrative) collectFragments(out *[]string) {
	for _, seg := range n.Segments {
		if seg.Child != nil {
			seg.Child.collectFragments(out)
			continue
		}
		if text := collapseSpaces(seg.Text); text != "" {
			*out = append(*out, text)
		}
	}
}

// FindByID locates a descendant (or this node) carrying the given ID
// attribute.
func (n *Narrative) FindByID(id string) *Narrative {
	if n.ID == id {
		return n
	}
	for _, seg := range n.Segments {
		if seg.Child == nil {
			continue
		}
		if found := seg.Child.FindByID(id); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant node with the given local element name.
func (n *Narrative) FindAll(local string) []*Narrative {
	var out []*Narrative
	n.findAll(local, &out)
	return out
}

func (n *Narrative) findAll(local string, out *[]*Narrative) {
	for _, seg := range n.Segments {
		if seg.Child == nil {
			continue
		}
		if seg.Child.Local == local {
			*out = append(*out, seg.Child)
		}
		seg.Child.findAll(local, out)
	}
}

// FindFirst returns the first descendant with the given local name.
func (n *Narrative) FindFirst(local string) *Narrative {
	for _, seg := range n.Segments {
		if seg.Child == nil {
			continue
		}
		if seg.Child.Local == local {
			return seg.Child
		}
		if found := seg.Child.FindFirst(local); found != nil {
			return found
		}
	}
	return nil
}

func collapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
