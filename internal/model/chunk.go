package model

// TextChunk is the unit of retrieval: a contiguous span of extracted text
// with enough metadata to cite it. Chunks live only in the in-memory index
// and are never persisted.
type TextChunk struct {
	FileID    int64
	PatientID int64
	Filename  string
	S3URL     string
	Index     int
	Text      string
}

// Source identifies where a generated statement came from.
type Source struct {
	Filename   string `json:"filename"`
	FileID     int64  `json:"file_id"`
	S3URL      string `json:"s3_url,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
}

func (c TextChunk) Source() Source {
	return Source{
		Filename:   c.Filename,
		FileID:     c.FileID,
		S3URL:      c.S3URL,
		ChunkIndex: c.Index,
	}
}
