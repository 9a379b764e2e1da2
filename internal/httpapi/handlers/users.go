package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/suPer8Hu/matchday-ai/internal/auth"
	"github.com/suPer8Hu/matchday-ai/internal/common"
	"github.com/suPer8Hu/matchday-ai/internal/models"
	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

type credentialsReq struct {
	Email    string `json:"email" binding:"required,email,max=191"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

func (h *Handler) issueToken(c *gin.Context, user *models.User) {
	token, err := auth.SignJWT(user.ID, user.Type, h.Cfg.JWTSecret, tokenTTL)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("sign token failed")
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}
	common.OK(c, gin.H{
		"id":    user.ID,
		"email": user.Email,
		"type":  user.Type,
		"token": token,
	})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "valid email and password (6-72 chars) required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	user := models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Type:         models.UserRegular,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "failed to create user (maybe email already exists)")
		return
	}

	h.issueToken(c, &user)
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	var user models.User
	err := h.DB.WithContext(c.Request.Context()).
		Where("email = ? AND type = ?", strings.ToLower(strings.TrimSpace(req.Email)), models.UserRegular).
		First(&user).Error
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Msg("login lookup failed")
		}
		common.Fail(c, http.StatusUnauthorized, 40102, "invalid email or password")
		return
	}

	h.issueToken(c, &user)
}

// Guest creates a throwaway guest account with the lower entitlement.
func (h *Handler) Guest(c *gin.Context) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		common.Fail(c, http.StatusInternalServerError, 20004, "failed to create guest")
		return
	}
	secret := hex.EncodeToString(buf)
	hash, err := auth.HashPassword(secret)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}
	id, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20004, "failed to create guest")
		return
	}

	user := models.User{
		Email:        "guest-" + strings.ToLower(id),
		PasswordHash: hash,
		Type:         models.UserGuest,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		log.Error().Err(err).Msg("create guest failed")
		common.Fail(c, http.StatusInternalServerError, 20004, "failed to create guest")
		return
	}

	h.issueToken(c, &user)
}

func (h *Handler) Me(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Respond(c, unauthorized())
		return
	}
	h.renderUser(c, uid)
}

func (h *Handler) GetUserByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid user id")
		return
	}
	uid, _ := userIDFromContext(c)
	if id != uid {
		common.Fail(c, http.StatusNotFound, 40401, "user not found")
		return
	}
	h.renderUser(c, id)
}

func (h *Handler) renderUser(c *gin.Context, id uint64) {
	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"type":       user.Type,
		"created_at": user.CreatedAt,
	})
}
