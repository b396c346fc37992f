package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"patientsummary/internal/ai"
	"patientsummary/internal/index"
	"patientsummary/internal/model"
	appErr "patientsummary/internal/pkg/errors"
)

type stubGenerator struct {
	reply string
	err   error
	calls int
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func seedIndex(patientID int64, texts ...string) *index.Index {
	ix := index.New()
	chunks := make([]model.TextChunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, model.TextChunk{
			FileID:   100,
			Filename: "records.pdf",
			S3URL:    "http://store/records.pdf",
			Index:    i,
			Text:     text,
		})
	}
	ix.Add(patientID, chunks)
	return ix
}

func TestGenerateNoDocuments(t *testing.T) {
	svc := NewSummaryService(&stubGenerator{reply: "x"}, index.New(), false)
	_, err := svc.Generate(context.Background(), 1, "Alice", model.SpecialistGeneral, "")
	require.ErrorIs(t, err, appErr.ErrNoDocuments)
}

func TestGenerateFallbackWithoutModel(t *testing.T) {
	ix := seedIndex(1, "patient takes active medications daily, no known allergies")
	svc := NewSummaryService(nil, ix, false)

	result, err := svc.Generate(context.Background(), 1, "Alice", model.SpecialistGeneral, "")
	require.NoError(t, err)
	require.NotEmpty(t, result.Summary)
	require.Contains(t, result.Summary, "medications")
	require.NotEmpty(t, result.Sources)
	require.NotEmpty(t, result.Note)
	require.Len(t, result.Sections, 1)
}

func TestGenerateFallbackOnUnavailable(t *testing.T) {
	ix := seedIndex(2, "documented allergies include penicillin, on several medications")
	svc := NewSummaryService(&stubGenerator{err: ai.ErrUnavailable}, ix, false)

	result, err := svc.Generate(context.Background(), 2, "", model.SpecialistGeneral, "")
	require.NoError(t, err)
	require.Contains(t, result.Summary, "penicillin")
	require.NotEmpty(t, result.Sources)
}

func TestGenerateParsesSections(t *testing.T) {
	reply := "intro line\n\n## Active Medications\n- lisinopril 10mg [Source: records.pdf]\n\n## Allergies\n- penicillin [Source: records.pdf]\n"
	ix := seedIndex(3, "patient medications include lisinopril 10mg, allergies penicillin")
	svc := NewSummaryService(&stubGenerator{reply: reply}, ix, false)

	result, err := svc.Generate(context.Background(), 3, "Alice", model.SpecialistGeneral, "")
	require.NoError(t, err)
	require.Len(t, result.Sections, 3)
	require.Equal(t, "Introduction", result.Sections[0].Heading)
	require.Equal(t, "Active Medications", result.Sections[1].Heading)
	require.Contains(t, result.Sections[1].Body, "lisinopril")
	require.Equal(t, "Allergies", result.Sections[2].Heading)
	require.Empty(t, result.Note)
}

func TestGenerateQualityCheckFlagsUnverifiable(t *testing.T) {
	reply := "## Active Medications\n- lisinopril documented medication [Source: records.pdf]\n\n## Recent Diagnoses\n- glioblastoma resection scheduled immediately\n"
	ix := seedIndex(4, "patient medications lisinopril documented")
	svc := NewSummaryService(&stubGenerator{reply: reply}, ix, true)

	result, err := svc.Generate(context.Background(), 4, "", model.SpecialistGeneral, "")
	require.NoError(t, err)
	require.Contains(t, result.Note, "Recent Diagnoses")
	require.NotContains(t, result.Note, "Active Medications")
}

func TestGenerateCachesResult(t *testing.T) {
	gen := &stubGenerator{reply: "## Allergies\n- none documented for allergies\n"}
	ix := seedIndex(5, "no documented allergies")
	svc := NewSummaryService(gen, ix, false)

	_, err := svc.Generate(context.Background(), 5, "", model.SpecialistGeneral, "")
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), 5, "", model.SpecialistGeneral, "")
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
}

func TestGenerateDedupsSources(t *testing.T) {
	ix := index.New()
	ix.Add(6, []model.TextChunk{
		{FileID: 10, Filename: "a.pdf", Index: 0, Text: "medications listed here"},
		{FileID: 10, Filename: "a.pdf", Index: 0, Text: "medications listed here"},
		{FileID: 10, Filename: "a.pdf", Index: 1, Text: "allergies listed here"},
	})
	svc := NewSummaryService(nil, ix, false)

	result, err := svc.Generate(context.Background(), 6, "", model.SpecialistGeneral, "")
	require.NoError(t, err)
	require.Len(t, result.Sources, 2)
}

func TestRetrieveCustomTopK(t *testing.T) {
	ix := seedIndex(7, "aspirin one", "aspirin two", "aspirin three")
	svc := NewSummaryService(nil, ix, false)

	chunks, sources := svc.Retrieve(context.Background(), 7, "aspirin", 2)
	require.Len(t, chunks, 2)
	require.Len(t, sources, 2)
}
