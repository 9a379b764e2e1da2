package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/matchday-ai/internal/common"
	"github.com/suPer8Hu/matchday-ai/internal/config"
	"github.com/suPer8Hu/matchday-ai/internal/httpapi/handlers"
	"github.com/suPer8Hu/matchday-ai/internal/httpapi/middleware"
)

func NewRouter(cfg config.Config, h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-Stream-ID", "X-Vercel-AI-UI-Message-Stream"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/fixtures", h.Fixtures)
	r.GET("/quick-actions", h.QuickActions)
	r.GET("/models", h.ListModels)
	r.GET("/check-config", h.CheckConfig)

	// users
	r.POST("/users", h.CreateUser)
	r.POST("/login", h.Login)
	r.POST("/guest", h.Guest)

	// these check their input before they look at the session
	r.POST("/chat", middleware.Authenticate(cfg.JWTSecret), h.PostChat)
	r.DELETE("/chat", middleware.Authenticate(cfg.JWTSecret), h.DeleteChat)
	r.GET("/document", middleware.Authenticate(cfg.JWTSecret), h.GetDocument)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)
	authGroup.GET("/users/:id", h.GetUserByID)
	// Chat (JWT required)
	authGroup.GET("/chat/:id/stream", h.ResumeChat)
	authGroup.GET("/chat/:id/messages", h.ListChatMessages)
	authGroup.PATCH("/chat/:id/visibility", h.UpdateChatVisibility)
	return r
}
