package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"patientsummary/internal/model"
)

type pdfParser struct {
	chunkSize    int
	chunkOverlap int
}

func init() {
	Register(model.FileTypePDF, &pdfParser{
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
	})
}

func (p *pdfParser) Parse(ctx context.Context, data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	totalPages := reader.NumPage()
	var parts []string
	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages instead of failing the whole file.
			continue
		}
		text = normalizeText(text)
		parts = append(parts, chunkText(text, p.chunkSize, p.chunkOverlap)...)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no text extracted from pdf")
	}
	return parts, nil
}
