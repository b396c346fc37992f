package handler

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"patientsummary/internal/filestore"
	"patientsummary/internal/model"
	"patientsummary/internal/pipeline"
	"patientsummary/internal/pkg/errcode"
	"patientsummary/internal/pkg/response"
	"patientsummary/internal/repo"
	"patientsummary/internal/service"
)

type FileHandler struct {
	files        *service.FileService
	summaries    *repo.SummaryRepo
	auth         *service.AuthService
	orchestrator *pipeline.Orchestrator
	store        filestore.Store
}

func NewFileHandler(files *service.FileService, summaries *repo.SummaryRepo, auth *service.AuthService, orchestrator *pipeline.Orchestrator, store filestore.Store) *FileHandler {
	return &FileHandler{
		files:        files,
		summaries:    summaries,
		auth:         auth,
		orchestrator: orchestrator,
		store:        store,
	}
}

type uploadResponse struct {
	Message   string              `json:"message"`
	Files     []*model.FileRecord `json:"files"`
	SummaryID int64               `json:"summary_id,omitempty"`
}

// Upload accepts a multipart batch, creates pending records and starts the
// background pipeline. The whole batch is validated before any record is
// written, so a rejected request leaves no partial state.
func (h *FileHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "multipart form is required")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "at least one file is required")
		return
	}

	var specialist model.Specialist
	if raw := strings.TrimSpace(c.PostForm("specialist_type")); raw != "" {
		parsed, ok := model.ParseSpecialist(raw)
		if !ok {
			response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "unknown specialist type")
			return
		}
		specialist = parsed
	}

	for _, header := range headers {
		if err := h.files.ValidateUpload(header.Filename, headerContentType(header), header.Size); err != nil {
			handleError(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	patientID := getUserID(c)
	records := make([]*model.FileRecord, 0, len(headers))
	payloads := make([][]byte, 0, len(headers))
	for _, header := range headers {
		data, err := readUpload(header)
		if err != nil {
			response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "failed to read file")
			return
		}
		rec, err := h.files.CreateUpload(ctx, patientID, header.Filename, headerContentType(header), header.Size)
		if err != nil {
			handleError(c, err)
			return
		}
		records = append(records, rec)
		payloads = append(payloads, data)
	}

	resp := uploadResponse{Message: "upload accepted", Files: records}
	var summary *model.SummaryRecord
	if specialist != "" {
		fileIDs := make([]int64, 0, len(records))
		for _, rec := range records {
			fileIDs = append(fileIDs, rec.ID)
		}
		summary = &model.SummaryRecord{
			PatientID:  patientID,
			Specialist: specialist,
			FileIDs:    fileIDs,
		}
		if err := h.summaries.Create(ctx, summary); err != nil {
			handleError(c, err)
			return
		}
		resp.SummaryID = summary.ID
	}
	for i, rec := range records {
		h.orchestrator.SubmitFile(ctx, rec, payloads[i])
	}
	if summary != nil {
		h.orchestrator.StartSummary(ctx, summary, h.patientName(c))
	}
	response.Accepted(c, resp)
}

func (h *FileHandler) List(c *gin.Context) {
	records, err := h.files.ListByPatient(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"files": records})
}

// Get serves stored objects when the local backend is active, mostly for
// tests and single-node deployments. S3 serves its own URLs.
func (h *FileHandler) Get(c *gin.Context) {
	if h.store.Type() != "local" {
		c.Status(http.StatusNotFound)
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		c.Status(http.StatusBadRequest)
		return
	}
	file, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	_, _ = io.Copy(c.Writer, file)
}

func (h *FileHandler) patientName(c *gin.Context) string {
	user, err := h.auth.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		return ""
	}
	return user.FullName
}

func headerContentType(header *multipart.FileHeader) string {
	contentType := header.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType)
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
