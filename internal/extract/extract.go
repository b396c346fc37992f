package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"patientsummary/internal/model"
)

// ErrUnsupported is returned when no parser is registered for a file type.
// The pipeline records it as an extraction failure and excludes the file
// from retrieval.
var ErrUnsupported = errors.New("no parser for file type")

// Parser turns raw file bytes into ordered text chunks.
type Parser interface {
	Parse(ctx context.Context, data []byte) ([]string, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[model.FileType]Parser{}
)

func Register(fileType model.FileType, parser Parser) {
	if parser == nil {
		return
	}
	registryMu.Lock()
	registry[fileType] = parser
	registryMu.Unlock()
}

// Extract parses the payload and attaches chunk metadata from the record.
func Extract(ctx context.Context, rec *model.FileRecord, data []byte) ([]model.TextChunk, error) {
	registryMu.RLock()
	parser := registry[rec.FileType]
	registryMu.RUnlock()
	if parser == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, rec.FileType)
	}
	parts, err := parser.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	chunks := make([]model.TextChunk, 0, len(parts))
	for idx, text := range parts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, model.TextChunk{
			FileID:    rec.ID,
			PatientID: rec.PatientID,
			Filename:  rec.Filename,
			S3URL:     rec.S3URL,
			Index:     idx,
			Text:      text,
		})
	}
	return chunks, nil
}
