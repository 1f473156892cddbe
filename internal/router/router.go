package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/middleware"
	"github.com/sitescan/sitescan/internal/modules/handler"
	"github.com/sitescan/sitescan/internal/modules/serializer"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const APIPrefix = "/api/v1"

type RouterDeps struct {
	Config            *config.Config
	Log               *zap.Logger
	Verifier          *middleware.Verifier
	ArtifactHandler   *handler.ArtifactHandler
	NoteHandler       *handler.NoteHandler
	UploadHandler     *handler.UploadHandler
	EnrichmentHandler *handler.EnrichmentHandler
	CaptureHandler    *handler.CaptureHandler
	AssistantHandler  *handler.AssistantHandler
	ShellHandler      *handler.ShellHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(d.Log), middleware.Logger(d.Log))
	if d.Config.Telemetry.Enabled {
		r.Use(otelgin.Middleware(d.Config.App.Name))
	}
	r.MaxMultipartMemory = d.Config.Server.MaxUploadMB << 20

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, serializer.Response{Msg: "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group(APIPrefix)
	v1.Use(middleware.Auth(d.Verifier))
	{
		v1.GET("/shell", d.ShellHandler.GetShell)
		v1.POST("/auth/logout", d.ShellHandler.Logout)

		artifact := v1.Group("/artifact")
		{
			artifact.GET("", d.ArtifactHandler.ListArtifacts)
			artifact.POST("", d.ArtifactHandler.CreateArtifact)
			artifact.GET("/:artifact_id", d.ArtifactHandler.GetArtifact)
			artifact.PATCH("/:artifact_id", d.ArtifactHandler.UpdateArtifact)
			artifact.DELETE("/:artifact_id", d.ArtifactHandler.DeleteArtifact)
			artifact.POST("/:artifact_id/share", d.ArtifactHandler.ShareArtifact)
			artifact.GET("/:artifact_id/qr", d.ArtifactHandler.GetArtifactQR)
			artifact.GET("/:artifact_id/qr/download", d.ArtifactHandler.DownloadArtifactQR)
		}

		note := v1.Group("/note")
		{
			note.GET("", d.NoteHandler.ListNotes)
			note.POST("", d.NoteHandler.CreateNote)
		}

		v1.POST("/integrations/upload", d.UploadHandler.UploadFile)

		enrichment := v1.Group("/enrichment")
		{
			enrichment.POST("/extract-text", d.EnrichmentHandler.ExtractText)
			enrichment.POST("/describe", d.EnrichmentHandler.Describe)
		}

		capture := v1.Group("/capture")
		{
			capture.POST("", d.CaptureHandler.NewDraft)
			capture.GET("/:draft_id", d.CaptureHandler.GetDraft)
			capture.PATCH("/:draft_id", d.CaptureHandler.UpdateDraft)
			capture.PUT("/:draft_id/photo", d.CaptureHandler.SelectPhoto)
			capture.POST("/:draft_id/location", d.CaptureHandler.Locate)
			capture.POST("/:draft_id/submit", d.CaptureHandler.SubmitDraft)
		}

		assistant := v1.Group("/assistant/conversations")
		{
			assistant.POST("", d.AssistantHandler.OpenConversation)
			assistant.GET("/:conversation_id", d.AssistantHandler.GetConversation)
			assistant.POST("/:conversation_id/messages", d.AssistantHandler.SendMessage)
			assistant.DELETE("/:conversation_id", d.AssistantHandler.CloseConversation)
		}
	}

	return r
}
