package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"patientsummary/internal/ai"
	"patientsummary/internal/index"
	"patientsummary/internal/model"
	appErr "patientsummary/internal/pkg/errors"
)

const retrievalTopK = 20

var ErrAIUnavailable = ai.ErrUnavailable

// specialistQueries bias retrieval toward the focus of the visit.
var specialistQueries = map[model.Specialist]string{
	model.SpecialistDermatologist:   "skin conditions rashes lesions dermatological diagnoses skin medications allergies recent skin procedures treatments",
	model.SpecialistOphthalmologist: "eye conditions vision problems eye diagnoses eye medications recent eye exams procedures vision symptoms",
	model.SpecialistImmunologist:    "allergies allergic reactions immune system conditions immunosuppressant medications recent infections autoimmune conditions",
	model.SpecialistNeurologist:     "neurological symptoms diagnoses medications headaches seizures cognitive issues recent neurological exams",
	model.SpecialistCardiologist:    "heart conditions cardiovascular medications blood pressure readings cardiac test results heart symptoms",
	model.SpecialistGeneral:         "active medications allergies recent diagnoses lab results current symptoms",
}

var summarySectionOrder = []string{
	"Patient Overview",
	"Active Medications",
	"Allergies",
	"Recent Diagnoses",
	"Lab Results",
	"Imaging Findings",
	"Current Symptoms",
	"Relevant Medical History",
}

type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

type SummaryResult struct {
	Summary    string           `json:"summary"`
	Sections   []Section        `json:"sections"`
	Sources    []model.Source   `json:"sources"`
	Specialist model.Specialist `json:"specialist_type"`
	Note       string           `json:"note,omitempty"`
}

type SummaryService struct {
	gen          ai.IGenerator
	idx          *index.Index
	qualityCheck bool
	cache        *expirable.LRU[string, *SummaryResult]
}

func NewSummaryService(gen ai.IGenerator, idx *index.Index, qualityCheck bool) *SummaryService {
	cache := expirable.NewLRU[string, *SummaryResult](1024, nil, 30*time.Minute)
	return &SummaryService{
		gen:          gen,
		idx:          idx,
		qualityCheck: qualityCheck,
		cache:        cache,
	}
}

// Generate retrieves the patient's top chunks for the focus, asks the model
// for a sectioned clinical summary and parses the response. Without a usable
// model it degrades to the raw retrieved text, sources intact.
func (s *SummaryService) Generate(ctx context.Context, patientID int64, patientName string, specialist model.Specialist, customQuery string) (*SummaryResult, error) {
	logger := logutil.GetLogger(ctx).With(
		zap.Int64("patient_id", patientID),
		zap.String("specialist", string(specialist)),
	)
	query := s.retrievalQuery(specialist, customQuery)
	chunks := s.idx.Query(patientID, query, retrievalTopK)
	if len(chunks) == 0 {
		return nil, appErr.ErrNoDocuments
	}

	cacheKey := s.cacheKey(patientID, specialist, query)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached, nil
	}

	sources := dedupSources(chunks)
	retrievedText := joinChunks(chunks)

	raw, err := s.generate(ctx, buildSummaryPrompt(specialist, patientName, customQuery, retrievedText))
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			logger.Warn("language model unavailable, returning raw retrieved text")
			return &SummaryResult{
				Summary:    retrievedText,
				Sections:   []Section{{Heading: "Retrieved Records", Body: retrievedText}},
				Sources:    sources,
				Specialist: specialist,
				Note:       "language model not available, showing raw retrieved text",
			}, nil
		}
		logger.Error("summary generation failed", zap.Error(err))
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	result := &SummaryResult{
		Summary:    raw,
		Sections:   parseSections(raw),
		Sources:    sources,
		Specialist: specialist,
	}
	if s.qualityCheck {
		if flagged := verifySections(result.Sections, chunks); len(flagged) > 0 {
			result.Note = "unverified sections: " + strings.Join(flagged, ", ")
			logger.Warn("quality check flagged sections", zap.Strings("sections", flagged))
		}
	}
	s.cache.Add(cacheKey, result)
	return result, nil
}

// Documents reports the per-file view of what retrieval currently holds
// for the patient.
func (s *SummaryService) Documents(patientID int64) []index.FileSummary {
	return s.idx.Files(patientID)
}

// Retrieve serves ad hoc queries without summarization.
func (s *SummaryService) Retrieve(ctx context.Context, patientID int64, query string, topK int) ([]model.TextChunk, []model.Source) {
	if topK <= 0 || topK > 100 {
		topK = retrievalTopK
	}
	chunks := s.idx.Query(patientID, query, topK)
	return chunks, dedupSources(chunks)
}

func (s *SummaryService) generate(ctx context.Context, prompt string) (string, error) {
	if s.gen == nil {
		return "", ai.ErrUnavailable
	}
	return s.gen.Generate(ctx, prompt)
}

func (s *SummaryService) retrievalQuery(specialist model.Specialist, customQuery string) string {
	if q := strings.TrimSpace(customQuery); q != "" {
		return q
	}
	query, ok := specialistQueries[specialist]
	if !ok {
		query = specialistQueries[model.SpecialistGeneral]
	}
	return query
}

func (s *SummaryService) cacheKey(patientID int64, specialist model.Specialist, query string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s", patientID, specialist, query)))
	return hex.EncodeToString(hash[:])
}

func joinChunks(chunks []model.TextChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("[Source: %s]\n%s", c.Filename, c.Text))
	}
	return strings.Join(parts, "\n\n")
}

func dedupSources(chunks []model.TextChunk) []model.Source {
	seen := map[string]struct{}{}
	sources := make([]model.Source, 0, len(chunks))
	for _, c := range chunks {
		key := fmt.Sprintf("%d:%d", c.FileID, c.Index)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sources = append(sources, c.Source())
	}
	return sources
}

func buildSummaryPrompt(specialist model.Specialist, patientName, customQuery, retrievedText string) string {
	focus := string(specialist) + " visit"
	if q := strings.TrimSpace(customQuery); q != "" {
		focus = q
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are a medical assistant creating a concise patient health summary for a %s.\n\n", focus)
	b.WriteString("CRITICAL RULES:\n")
	b.WriteString("1. Do NOT make diagnoses, only report what is in the source documents\n")
	b.WriteString("2. Do NOT provide medical recommendations or treatment advice\n")
	b.WriteString("3. Only include information explicitly stated in the source documents\n")
	b.WriteString("4. Cite sources using format [Source: filename] at the end of each fact\n")
	b.WriteString("5. Keep the summary concise and well organized, 1-2 pages maximum\n")
	fmt.Fprintf(&b, "6. Focus ONLY on information relevant to a %s\n", focus)
	b.WriteString("7. Use section headers starting with ## and bullet points starting with -\n")
	b.WriteString("8. If information is not available, state \"Not documented\" rather than guessing\n\n")
	if patientName != "" {
		fmt.Fprintf(&b, "Patient name: %s\n\n", patientName)
	}
	b.WriteString("Patient Medical Records:\n")
	b.WriteString(clip(retrievedText, 8000))
	b.WriteString("\n\nCreate the summary using exactly these sections:\n")
	for _, heading := range summarySectionOrder {
		fmt.Fprintf(&b, "## %s\n", heading)
	}
	return b.String()
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// parseSections splits the model response into ordered sections keyed by its
// markdown headings. Text before the first heading lands in "Introduction".
func parseSections(summary string) []Section {
	md := goldmark.New()
	source := []byte(summary)
	doc := md.Parser().Parse(text.NewReader(source))

	var sections []Section
	current := Section{Heading: "Introduction"}
	var body []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if content != "" {
			current.Body = content
			sections = append(sections, current)
		}
		body = nil
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok {
			flush()
			current = Section{Heading: strings.TrimSpace(string(heading.Text(source)))}
			continue
		}
		if txt := nodeText(node, source); txt != "" {
			body = append(body, txt)
		}
	}
	flush()
	return sections
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// verifySections does a lexical pass over each section body: a statement
// counts as supported when most of its longer words occur somewhere in the
// retrieved chunk text. Advisory only, never blocks completion.
func verifySections(sections []Section, chunks []model.TextChunk) []string {
	var corpus strings.Builder
	for _, c := range chunks {
		corpus.WriteString(strings.ToLower(c.Text))
		corpus.WriteByte('\n')
	}
	haystack := corpus.String()

	var flagged []string
	for _, section := range sections {
		if !sectionSupported(section.Body, haystack) {
			flagged = append(flagged, section.Heading)
		}
	}
	return flagged
}

func sectionSupported(body, haystack string) bool {
	total, found := 0, 0
	for _, word := range strings.Fields(strings.ToLower(body)) {
		if strings.HasPrefix(word, "[source") {
			continue
		}
		word = strings.Trim(word, ".,;:!?()[]\"'-")
		if len(word) < 5 {
			continue
		}
		total++
		if strings.Contains(haystack, word) {
			found++
		}
	}
	if total == 0 {
		return true
	}
	return found*2 >= total
}
