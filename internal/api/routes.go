package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/api/middleware"
	"resumebuilder/internal/auth"
	"resumebuilder/internal/export"
	"resumebuilder/internal/notify"
	"resumebuilder/internal/session"
	"resumebuilder/internal/storage"
)

// Dependencies 汇总路由需要的服务。
type Dependencies struct {
	Sessions       *session.Manager
	Tokens         *auth.TokenService
	Dispatcher     export.Dispatcher
	Sink           storage.Sink
	Notifications  notify.Subscriber
	Logger         *slog.Logger
	AllowedOrigins []string
	LinkTTL        time.Duration
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := NewAuthHandler(deps.Sessions, deps.Tokens, deps.Logger)
	resumeHandler := NewResumeHandler(deps.Sessions)
	editorHandler := NewEditorHandler(deps.Sessions, deps.Dispatcher)
	exportHandler := NewExportHandler(deps.Sink, deps.LinkTTL)
	wsHandler := NewWsHandler(deps.Notifications, deps.Tokens, deps.Sessions, deps.Logger, deps.AllowedOrigins)
	authMiddleware := middleware.AuthMiddleware(deps.Tokens, deps.Sessions)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.Signup)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.GET("/me", authMiddleware, authHandler.Me)
		}

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.GET("", resumeHandler.List)
			resumeGroup.POST("", resumeHandler.Create)
			resumeGroup.POST("/import", resumeHandler.Import)
			resumeGroup.POST("/:id/open", resumeHandler.Open)
			resumeGroup.POST("/:id/duplicate", resumeHandler.Duplicate)
			resumeGroup.DELETE("/:id", resumeHandler.Delete)
		}

		editorGroup := v1.Group("/editor")
		editorGroup.Use(authMiddleware)
		{
			editorGroup.GET("", editorHandler.Get)
			editorGroup.PATCH("/personal", editorHandler.UpdatePersonal)
			editorGroup.PUT("/summary", editorHandler.UpdateSummary)
			editorGroup.PUT("/name", editorHandler.Rename)
			editorGroup.PUT("/template", editorHandler.SetTemplate)
			editorGroup.POST("/sections/:section", editorHandler.AddEntry)
			editorGroup.PATCH("/sections/:section/:index", editorHandler.UpdateEntry)
			editorGroup.DELETE("/sections/:section/:index", editorHandler.RemoveEntry)
			editorGroup.GET("/preview", editorHandler.Preview)
			editorGroup.GET("/preview.html", editorHandler.PreviewHTML)
			editorGroup.POST("/save", editorHandler.Save)
			editorGroup.POST("/close", editorHandler.Close)
			editorGroup.POST("/export", editorHandler.Export)
		}

		exportGroup := v1.Group("/exports")
		exportGroup.Use(authMiddleware)
		{
			exportGroup.GET("", exportHandler.List)
			exportGroup.GET("/download", exportHandler.Download)
			exportGroup.GET("/link", exportHandler.Link)
			exportGroup.DELETE("", exportHandler.Delete)
		}
	}
}
