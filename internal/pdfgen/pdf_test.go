package pdfgen

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Title:       "Patient Health Summary - General",
		PatientName: "Alice Smith",
		Specialist:  "general",
		GeneratedAt: "2026-01-15",
		Sections: []Section{
			{Heading: "Active Medications", Bullets: []string{"lisinopril 10mg daily [Source: visit.pdf]"}},
			{Heading: "Allergies", Bullets: []string{"penicillin", "latex"}},
		},
		Note: "unverified sections: Allergies",
	}
}

func TestRenderMagicHeader(t *testing.T) {
	data, err := Render(sampleDocument())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderDeterministic(t *testing.T) {
	first, err := Render(sampleDocument())
	require.NoError(t, err)
	second, err := Render(sampleDocument())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRenderEmptySections(t *testing.T) {
	data, err := Render(Document{Title: "Patient Health Summary", PatientName: "Bob"})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "abc ?", sanitize("abc →"))
	require.Equal(t, "a b", sanitize("a\tb"))
	require.Equal(t, "ab", sanitize("a\x01b"))
}
