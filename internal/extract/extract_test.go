package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"patientsummary/internal/model"
)

type fakeParser struct {
	parts []string
	err   error
}

func (p *fakeParser) Parse(ctx context.Context, data []byte) ([]string, error) {
	return p.parts, p.err
}

func TestExtractUnsupportedType(t *testing.T) {
	rec := &model.FileRecord{ID: 1, PatientID: 2, FileType: model.FileTypeJPEG}
	_, err := Extract(context.Background(), rec, []byte{0xff, 0xd8})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestExtractAttachesMetadata(t *testing.T) {
	Register(model.FileTypePNG, &fakeParser{parts: []string{"first chunk", "  ", "second chunk"}})
	rec := &model.FileRecord{
		ID:        7,
		PatientID: 3,
		Filename:  "scan.png",
		FileType:  model.FileTypePNG,
		S3URL:     "http://store/scan.png",
	}
	chunks, err := Extract(context.Background(), rec, []byte("payload"))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, int64(7), chunks[0].FileID)
	require.Equal(t, int64(3), chunks[0].PatientID)
	require.Equal(t, "scan.png", chunks[0].Filename)
	require.Equal(t, "http://store/scan.png", chunks[0].S3URL)
	require.Equal(t, 0, chunks[0].Index)
	require.Equal(t, "first chunk", chunks[0].Text)
	require.Equal(t, 2, chunks[1].Index)
}
