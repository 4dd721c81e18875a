package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"moodmate/internal/config"
)

func NewRouter(cfg *config.Config, chatHandler *ChatHandler, taskHandler *TaskHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     cfg.CORS.AllowedMethods,
			AllowHeaders:     cfg.CORS.AllowedHeaders,
			ExposeHeaders:    cfg.CORS.ExposedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
		}))
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	api := router.Group("/api", BearerAuth(cfg.Server.AuthToken))
	{
		chat := api.Group("/chat")
		{
			chat.GET("/history", chatHandler.History)
			chat.GET("/session/:id", chatHandler.Transcript)
			chat.POST("/send", chatHandler.Send)
		}

		task := api.Group("/task")
		{
			task.GET("/:id", taskHandler.ForSession)
			task.PATCH("/:id/complete", taskHandler.Complete)
		}
	}

	return router
}
