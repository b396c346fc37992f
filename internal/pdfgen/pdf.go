// Package pdfgen renders a specialist summary into a printable PDF.
package pdfgen

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

type Section struct {
	Heading string
	Bullets []string
}

type Document struct {
	Title       string
	PatientName string
	Specialist  string
	GeneratedAt string
	Sections    []Section
	Note        string
}

// Render lays the document out on A4 pages and returns the PDF bytes.
// Output depends only on the document contents, nothing ambient.
func Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetMargins(18, 20, 18)
	pdf.SetAutoPageBreak(true, 22)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, sanitize(doc.Title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, sanitize(fmt.Sprintf("Patient: %s", doc.PatientName)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, sanitize(fmt.Sprintf("Specialist: %s", doc.Specialist)), "", 1, "L", false, 0, "")
	if doc.GeneratedAt != "" {
		pdf.CellFormat(0, 6, sanitize(fmt.Sprintf("Generated: %s", doc.GeneratedAt)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(18, pdf.GetY(), 192, pdf.GetY())
	pdf.Ln(5)

	for _, section := range doc.Sections {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 7, sanitize(section.Heading), "", "L", false)
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "", 11)
		for _, bullet := range section.Bullets {
			pdf.SetX(22)
			pdf.MultiCell(0, 6, sanitize("- "+bullet), "", "L", false)
		}
		pdf.Ln(3)
	}

	if doc.Note != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, sanitize(doc.Note), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitize maps text onto the cp1252 range the core fonts support.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\t':
			b.WriteByte(' ')
		case r < 32:
			continue
		case r < 256:
			b.WriteRune(r)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
