package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/common"
	"github.com/suPer8Hu/matchday-ai/internal/prompt"
	"github.com/suPer8Hu/matchday-ai/internal/sportmonks"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

// Fixtures lists today's fixtures for the preview cards. Upstream failures
// degrade to an empty list.
func (h *Handler) Fixtures(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	fixtures := []sportmonks.FixturePreview{}
	resp, err := h.Sports.TodayFixtures(ctx)
	if err == nil {
		var formatted []sportmonks.FixturePreview
		formatted, err = sportmonks.FormatFixtures(resp)
		if err == nil {
			fixtures = formatted
		}
	}
	if err != nil {
		log.Warn().Err(err).Msg("fetch fixtures failed")
		common.OK(c, gin.H{
			"fixtures": fixtures,
			"count":    0,
			"error":    "Unable to fetch fixtures at this time",
		})
		return
	}
	common.OK(c, gin.H{"fixtures": fixtures, "count": len(fixtures)})
}

func (h *Handler) QuickActions(c *gin.Context) {
	common.OK(c, gin.H{"actions": prompt.QuickActions})
}

type modelStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// ListModels reports whether each selectable model resolves on the active backend.
func (h *Handler) ListModels(c *gin.Context) {
	out := make([]modelStatus, 0, len(ai.ChatModels))
	for _, m := range ai.ChatModels {
		st := modelStatus{ID: m.ID, Name: m.Name, Description: m.Description, Available: true}
		if _, err := h.Models.Resolve(c.Request.Context(), m.ID); err != nil {
			st.Available = false
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	common.OK(c, gin.H{"backend": h.Models.Active(), "models": out})
}

// CheckConfig reports which credentials are present, never their values.
func (h *Handler) CheckConfig(c *gin.Context) {
	cfg := h.Cfg
	common.OK(c, gin.H{
		"backend": ai.BackendName(ai.Select(cfg)),
		"apiKeys": gin.H{
			"SPORTMONKS_API_TOKEN": cfg.SportmonksToken != "",
			"XAI_API_KEY":          cfg.XAIAPIKey != "",
			"AI_GATEWAY_API_KEY":   cfg.GatewayAPIKey != "",
			"OPENAI_API_KEY":       cfg.OpenAIAPIKey != "",
			"GEMINI_API_KEY":       cfg.GeminiAPIKey != "",
			"ARK_API_KEY":          cfg.ArkAPIKey != "",
			"JWT_SECRET":           cfg.JWTSecret != "",
			"REDIS_URL":            cfg.RedisURL != "",
			"RABBIT_URL":           cfg.RabbitURL != "",
		},
		"lengths": gin.H{
			"SPORTMONKS_API_TOKEN": len(cfg.SportmonksToken),
			"XAI_API_KEY":          len(cfg.XAIAPIKey),
			"AI_GATEWAY_API_KEY":   len(cfg.GatewayAPIKey),
		},
	})
}
