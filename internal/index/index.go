// Package index holds the process-wide retrieval store: extracted text
// chunks keyed by patient, searchable by lexical overlap. Contents are
// memory-resident only and lost on restart; that is a documented limitation
// of the current scope, not an accident.
package index

import (
	"sort"
	"strings"
	"sync"

	"patientsummary/internal/model"
)

type Index struct {
	mu     sync.Mutex
	chunks []model.TextChunk
}

func New() *Index {
	return &Index{}
}

// Add appends chunks for a patient. No dedup: re-uploading the same file
// accumulates duplicate chunks (known limitation pending product decision).
func (ix *Index) Add(patientID int64, chunks []model.TextChunk) {
	if len(chunks) == 0 {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, c := range chunks {
		c.PatientID = patientID
		ix.chunks = append(ix.chunks, c)
	}
}

// Query returns up to topK chunks belonging to the patient, ranked by the
// number of distinct query terms the chunk contains. Ties keep insertion
// order. Chunks of other patients are never returned.
func (ix *Index) Query(patientID int64, query string, topK int) []model.TextChunk {
	if topK <= 0 {
		return nil
	}
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil
	}

	type scored struct {
		chunk model.TextChunk
		score int
		pos   int
	}

	ix.mu.Lock()
	var matches []scored
	for pos, c := range ix.chunks {
		if c.PatientID != patientID {
			continue
		}
		text := strings.ToLower(c.Text)
		score := 0
		for term := range terms {
			if strings.Contains(text, term) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{chunk: c, score: score, pos: pos})
		}
	}
	ix.mu.Unlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].pos < matches[j].pos
	})
	if topK > len(matches) {
		topK = len(matches)
	}
	result := make([]model.TextChunk, 0, topK)
	for i := 0; i < topK; i++ {
		result = append(result, matches[i].chunk)
	}
	return result
}

// CountByPatient reports how many chunks the patient has indexed.
func (ix *Index) CountByPatient(patientID int64) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	count := 0
	for _, c := range ix.chunks {
		if c.PatientID == patientID {
			count++
		}
	}
	return count
}

// FileSummary is a per-file view over a patient's indexed chunks.
type FileSummary struct {
	FileID     int64  `json:"file_id"`
	Filename   string `json:"filename"`
	S3URL      string `json:"s3_url,omitempty"`
	NumChunks  int    `json:"num_chunks"`
	TextLength int    `json:"total_text_length"`
}

func (ix *Index) Files(patientID int64) []FileSummary {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	byFile := map[int64]*FileSummary{}
	var order []int64
	for _, c := range ix.chunks {
		if c.PatientID != patientID {
			continue
		}
		summary, ok := byFile[c.FileID]
		if !ok {
			summary = &FileSummary{FileID: c.FileID, Filename: c.Filename, S3URL: c.S3URL}
			byFile[c.FileID] = summary
			order = append(order, c.FileID)
		}
		summary.NumChunks++
		summary.TextLength += len(c.Text)
	}
	result := make([]FileSummary, 0, len(order))
	for _, id := range order {
		result = append(result, *byFile[id])
	}
	return result
}

func queryTerms(query string) map[string]struct{} {
	terms := map[string]struct{}{}
	for _, field := range strings.Fields(strings.ToLower(query)) {
		term := strings.Trim(field, ".,;:!?()[]\"'")
		if term == "" {
			continue
		}
		terms[term] = struct{}{}
	}
	return terms
}
