package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"patientsummary/internal/model"
	"patientsummary/internal/pkg/errcode"
	"patientsummary/internal/pkg/response"
	"patientsummary/internal/repo"
	"patientsummary/internal/service"
)

type SummaryHandler struct {
	summaries *service.SummaryService
	records   *repo.SummaryRepo
	auth      *service.AuthService
}

func NewSummaryHandler(summaries *service.SummaryService, records *repo.SummaryRepo, auth *service.AuthService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, records: records, auth: auth}
}

type summaryRequest struct {
	SpecialistType string `json:"specialist_type" binding:"required"`
	CustomQuery    string `json:"custom_query"`
}

// Generate runs retrieval and generation inline and returns the sections
// without producing a PDF.
func (h *SummaryHandler) Generate(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "specialist_type is required")
		return
	}
	specialist, ok := model.ParseSpecialist(req.SpecialistType)
	if !ok {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "unknown specialist type")
		return
	}
	patientName := ""
	if user, err := h.auth.GetByUsername(c.Request.Context(), c.Param("username")); err == nil {
		patientName = user.FullName
	}
	result, err := h.summaries.Generate(c.Request.Context(), getUserID(c), patientName, specialist, req.CustomQuery)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// PDFStatus reports the latest summary record for the focus; once completed
// it carries the storage URL for direct download.
func (h *SummaryHandler) PDFStatus(c *gin.Context) {
	specialist, ok := model.ParseSpecialist(c.Query("specialist_type"))
	if !ok {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "unknown specialist type")
		return
	}
	rec, err := h.records.LatestByPatientAndSpecialist(c.Request.Context(), getUserID(c), specialist)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, rec)
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

type queryResult struct {
	FileID     int64  `json:"file_id"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// Query serves ad hoc retrieval without summarization.
func (h *SummaryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "query is required")
		return
	}
	chunks, sources := h.summaries.Retrieve(c.Request.Context(), getUserID(c), req.Query, req.TopK)
	results := make([]queryResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, queryResult{
			FileID:     chunk.FileID,
			Filename:   chunk.Filename,
			ChunkIndex: chunk.Index,
			Text:       chunk.Text,
		})
	}
	response.Success(c, gin.H{"results": results, "sources": sources})
}

// Documents lists what the retrieval index holds per source file.
func (h *SummaryHandler) Documents(c *gin.Context) {
	response.Success(c, gin.H{"documents": h.summaries.Documents(getUserID(c))})
}

func (h *SummaryHandler) Specialists(c *gin.Context) {
	response.Success(c, gin.H{"specialists": model.Specialists()})
}

func (h *SummaryHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
