package ccd

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseNarrative(t *testing.T, raw string) *Narrative {
	t.Helper()
	var n Narrative
	require.NoError(t, xml.Unmarshal([]byte(raw), &n))
	return &n
}

func TestNarrativeFlatText(t *testing.T) {
	n := parseNarrative(t, `<text>  Chest   pain <content>on exertion</content> </text>`)
	assert.Equal(t, "Chest pain on exertion", n.FlatText())
}

func TestNarrativeTextWithBreaks(t *testing.T) {
	n := parseNarrative(t, `<content><br/>Patient doing well.<br/>Continue current plan.<br/></content>`)
	assert.Equal(t, "Patient doing well.\nContinue current plan.", n.TextWithBreaks())
}

func TestNarrativeFragments(t *testing.T) {
	n := parseNarrative(t, `<text><paragraph>Chest pain</paragraph><paragraph>Follow up</paragraph></text>`)
	assert.Equal(t, []string{"Chest pain", "Follow up"}, n.Fragments())
}

func TestNarrativeFindByID(t *testing.T) {
	n := parseNarrative(t, `<text><list><item><content ID="note1">body</content></item></list></text>`)
	found := n.FindByID("note1")
	require.NotNil(t, found)
	assert.Equal(t, "body", found.FlatText())
	assert.Nil(t, n.FindByID("missing"))
}

func TestNarrativeFindAll(t *testing.T) {
	n := parseNarrative(t, `<text><list><item>a</item><item>b</item></list></text>`)
	assert.Len(t, n.FindAll("item"), 2)
}
