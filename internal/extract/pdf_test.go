package extract

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/require"
)

func buildPDF(t *testing.T, lines []string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		doc.CellFormat(0, 8, line, "", 1, "L", false, 0, "")
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestPDFParserExtractsText(t *testing.T) {
	data := buildPDF(t, []string{
		"patient has hypertension",
		"takes lisinopril 10mg daily",
	})
	parser := &pdfParser{chunkSize: defaultChunkSize, chunkOverlap: defaultChunkOverlap}
	parts, err := parser.Parse(context.Background(), data)
	require.NoError(t, err)
	require.NotEmpty(t, parts)
	joined := strings.Join(parts, " ")
	require.Contains(t, joined, "hypertension")
	require.Contains(t, joined, "lisinopril")
}

func TestPDFParserRejectsGarbage(t *testing.T) {
	parser := &pdfParser{chunkSize: defaultChunkSize, chunkOverlap: defaultChunkOverlap}
	_, err := parser.Parse(context.Background(), []byte("not a pdf at all"))
	require.Error(t, err)
}
