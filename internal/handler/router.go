package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"patientsummary/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Files     *FileHandler
	Summaries *SummaryHandler
	JWTSecret []byte
	// AuthRateWindow throttles the auth endpoints per client; zero disables.
	AuthRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Summaries.Health)
	api.GET("/specialists", deps.Summaries.Specialists)
	api.GET("/files/*key", deps.Files.Get)

	authLimit := middleware.RateLimit(deps.AuthRateWindow)
	api.POST("/auth/signup", authLimit, deps.Auth.Signup)
	api.POST("/auth/signin", authLimit, deps.Auth.Signin)

	users := api.Group("/users/:username")
	users.Use(middleware.JWTAuth(deps.JWTSecret), middleware.RequireSelf())
	users.POST("/files/upload", deps.Files.Upload)
	users.GET("/files", deps.Files.List)
	users.POST("/summary", deps.Summaries.Generate)
	users.GET("/summary-pdf", deps.Summaries.PDFStatus)
	users.POST("/query", deps.Summaries.Query)
	users.GET("/documents", deps.Summaries.Documents)
}
