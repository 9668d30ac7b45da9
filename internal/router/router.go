package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/dealflowbot/backend/config"
	"github.com/dealflowbot/backend/internal/handler"
)

// Setup builds the HTTP engine: the chat webhook plus the operational
// read API.
func Setup(
	cfg *config.Config,
	webhook *handler.WebhookHandler,
	apps *handler.ApplicationHandler,
	users *handler.UserHandler,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	engine := gin.Default()

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	engine.POST("/webhook", webhook.HandleUpdate)

	api := engine.Group("/api")
	{
		api.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.GET("/outbox/:chat_id", webhook.PollOutbox)

		api.GET("/applications", apps.List)
		api.GET("/applications/:id", apps.Get)
		api.GET("/applications/:id/documents", apps.Documents)
		api.GET("/applications/:id/answers", apps.Answers)
		api.GET("/applications/:id/tasks", apps.Tasks)

		api.GET("/users", users.List)
		api.POST("/users/:id/approve", users.Approve)
		api.POST("/users/:id/deactivate", users.Deactivate)
	}

	return engine
}
