package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"tfgRecruit/internal/api/middleware"
	"tfgRecruit/internal/auth"
	"tfgRecruit/internal/config"
	"tfgRecruit/internal/events"
	"tfgRecruit/internal/intake"
	"tfgRecruit/internal/report"
	"tfgRecruit/internal/storage"
	"tfgRecruit/internal/store"
)

// Deps are the explicitly constructed clients the HTTP layer is wired from.
type Deps struct {
	Config      *config.Config
	Store       *store.Store
	Blob        storage.Blob
	Scanner     Scanner
	Queue       TaskEnqueuer
	Redis       redis.UniversalClient
	Publisher   events.Publisher
	AuthService *auth.AuthService
	Logger      *slog.Logger
}

// RegisterRoutes mounts every route under /api. Routes outside the reviewer group are public.
func RegisterRoutes(router *gin.Engine, deps Deps) {
	registerValidations()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBytes := deps.Config.API.MaxUploadBytes

	reports := report.NewService(deps.Store)
	uploader := NewFileUploader(deps.Blob, deps.Scanner, maxBytes)
	submitter := intake.NewSubmitter(deps.Store, uploader, deps.Store, logger)

	formHandler := NewFormHandler(deps.Store)
	campaignHandler := NewCampaignHandler(deps.Store, reports)
	candidateHandler := NewCandidateHandler(deps.Store, submitter, reports, deps.Publisher, maxBytes)
	uploadHandler := NewUploadHandler(uploader, maxBytes)
	emailHandler := NewEmailHandler(deps.Store, deps.Queue)
	dashboardHandler := NewDashboardHandler(reports)
	authHandler := NewAuthHandler(deps.Store, deps.AuthService, deps.Redis, deps.Config.Auth)
	wsHandler := NewWsHandler(deps.Redis, deps.AuthService, logger, deps.Config.API.Origins())

	authMiddleware := middleware.AuthMiddleware(deps.AuthService)
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()

	apiGroup := router.Group("/api")

	// Public.
	apiGroup.POST("/auth/login", authHandler.Login)
	apiGroup.GET("/forms/:id/fields", formHandler.PublicFields)
	apiGroup.GET("/forms/:id/render", formHandler.Render)
	apiGroup.POST("/forms/:id/apply", candidateHandler.Apply)
	apiGroup.GET("/campaigns/by-form/:formId", campaignHandler.ByForm)
	apiGroup.POST("/candidates", candidateHandler.Create)
	apiGroup.POST("/upload", uploadHandler.Upload)
	apiGroup.GET("/ws", wsHandler.HandleConnection)

	apiGroup.POST("/auth/change-password", authMiddleware, authHandler.ChangePassword)

	reviewer := apiGroup.Group("")
	reviewer.Use(authMiddleware, passwordGate)
	{
		reviewer.GET("/forms", formHandler.List)
		reviewer.POST("/forms", formHandler.Create)
		reviewer.GET("/forms/:id", formHandler.Get)
		reviewer.PUT("/forms/:id", formHandler.Update)
		reviewer.DELETE("/forms/:id", formHandler.Delete)
		reviewer.PATCH("/forms/:id/publish", formHandler.Publish)
		reviewer.POST("/forms/:id/duplicate", formHandler.Duplicate)

		reviewer.GET("/campaigns", campaignHandler.List)
		reviewer.POST("/campaigns", campaignHandler.Create)
		reviewer.GET("/campaigns/:id", campaignHandler.Get)
		reviewer.PUT("/campaigns/:id", campaignHandler.Update)
		reviewer.DELETE("/campaigns/:id", campaignHandler.Delete)
		reviewer.GET("/campaigns/:id/stats", campaignHandler.Stats)

		reviewer.GET("/candidates", candidateHandler.List)
		reviewer.GET("/candidates/stats/overview", candidateHandler.Overview)
		reviewer.GET("/candidates/campaign/:campaignId", candidateHandler.ListByCampaign)
		reviewer.GET("/candidates/:id", candidateHandler.Get)
		reviewer.PUT("/candidates/:id/status", candidateHandler.UpdateStatus)
		reviewer.PUT("/candidates/:id", candidateHandler.UpdateDetails)
		reviewer.DELETE("/candidates/:id", candidateHandler.Delete)

		reviewer.GET("/dashboard/stats", dashboardHandler.Stats)

		reviewer.POST("/email/notify-candidate", emailHandler.NotifyCandidate)
		reviewer.POST("/email/test", emailHandler.SendTest)
		reviewer.GET("/email/templates", emailHandler.ListTemplates)
		reviewer.PUT("/email/templates/:id", emailHandler.UpdateTemplate)
	}
}
