package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/chat"
	"github.com/suPer8Hu/matchday-ai/internal/config"
	"github.com/suPer8Hu/matchday-ai/internal/httpapi/middleware"
	"github.com/suPer8Hu/matchday-ai/internal/models"
	"github.com/suPer8Hu/matchday-ai/internal/sportmonks"
	"gorm.io/gorm"
)

type Handler struct {
	DB      *gorm.DB
	Cfg     config.Config
	ChatSvc *chat.Service
	Models  *ai.Registry
	Sports  *sportmonks.Client
}

func NewHandler(db *gorm.DB, cfg config.Config, chatSvc *chat.Service, reg *ai.Registry, sports *sportmonks.Client) *Handler {
	return &Handler{DB: db, Cfg: cfg, ChatSvc: chatSvc, Models: reg, Sports: sports}
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

func identityFromContext(c *gin.Context) (chat.Identity, bool) {
	uid, ok := userIDFromContext(c)
	if !ok {
		return chat.Identity{}, false
	}
	ut, _ := c.Get(middleware.UserTypeKey)
	userType, _ := ut.(models.UserType)
	if userType == "" {
		userType = models.UserRegular
	}
	return chat.Identity{UserID: uid, Type: userType}, true
}
