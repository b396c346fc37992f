package handler_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"patientsummary/internal/config"
	"patientsummary/internal/filestore"
	"patientsummary/internal/handler"
	"patientsummary/internal/index"
	"patientsummary/internal/middleware"
	"patientsummary/internal/pipeline"
	"patientsummary/internal/repo"
	"patientsummary/internal/service"
	"patientsummary/test/testutil"
)

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "## Patient Overview\n- records on file [Source: report.pdf]\n\n## Active Medications\n- documented in source records [Source: report.pdf]\n", nil
}

func newTestName(prefix string) string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return prefix + hex.EncodeToString(buf)
}

func setupRouter(t *testing.T) (http.Handler, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, cleanup := testutil.OpenTestDB(t)
	userRepo := repo.NewUserRepo(conn)
	fileRepo := repo.NewFileRepo(conn)
	summaryRepo := repo.NewSummaryRepo(conn)

	tmpDir, err := os.MkdirTemp("", "patientsummary-store-*")
	require.NoError(t, err)
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": tmpDir},
	})
	require.NoError(t, err)

	jwtSecret := []byte("test-secret")
	idx := index.New()
	authService := service.NewAuthService(userRepo, jwtSecret, time.Hour)
	fileService := service.NewFileService(fileRepo, 1024*1024)
	summaryService := service.NewSummaryService(echoGenerator{}, idx, false)
	orchestrator := pipeline.NewOrchestrator(fileRepo, summaryRepo, store, idx, summaryService, pipeline.Options{
		WaitCeiling:  20 * time.Second,
		PollInterval: 50 * time.Millisecond,
	})

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Files:     handler.NewFileHandler(fileService, summaryRepo, authService, orchestrator, store),
		Summaries: handler.NewSummaryHandler(summaryService, summaryRepo, authService),
		JWTSecret: jwtSecret,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)

	return engine, func() {
		cleanup()
		_ = os.RemoveAll(tmpDir)
	}
}

func postJSON(t *testing.T, router http.Handler, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func getWithToken(t *testing.T, router http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func signup(t *testing.T, router http.Handler, username string) string {
	t.Helper()
	resp := postJSON(t, router, "/api/v1/auth/signup", "", map[string]string{
		"username":  username,
		"password":  "secret123",
		"full_name": "Test Patient",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func samplePDF(t *testing.T, lines ...string) []byte {
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

type uploadPart struct {
	filename    string
	contentType string
	data        []byte
}

func uploadFiles(t *testing.T, router http.Handler, username, token, specialist string, parts []uploadPart) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, part := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="files"; filename="`+part.filename+`"`)
		header.Set("Content-Type", part.contentType)
		fw, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader(part.data))
		require.NoError(t, err)
	}
	if specialist != "" {
		require.NoError(t, writer.WriteField("specialist_type", specialist))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+username+"/files/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}
