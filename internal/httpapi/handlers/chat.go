package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/suPer8Hu/matchday-ai/internal/chat"
	"github.com/suPer8Hu/matchday-ai/internal/common"
	"github.com/suPer8Hu/matchday-ai/internal/prompt"
	"github.com/suPer8Hu/matchday-ai/internal/uistream"
)

const (
	maxBodyBytes  = 1 << 20
	heartbeatTick = 15 * time.Second
)

func badRequest(err error) *common.AppError {
	e := common.NewError(common.ErrorBadRequest, common.SurfaceAPI)
	if err != nil {
		e = e.WithCause(err.Error())
	}
	return e
}

// invalidBody keeps decoder and validator detail in the log; the client
// only learns which stage rejected the body.
func invalidBody(c *gin.Context, err error) *common.AppError {
	log.Debug().Err(err).Str("path", c.FullPath()).Msg("rejected request body")

	cause := "invalid request body"
	var syntaxErr *json.SyntaxError
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		cause = "malformed JSON"
	case errors.As(err, &validationErrs):
		cause = "request body failed validation"
	}
	return badRequest(nil).WithCause(cause)
}

func unauthorized() *common.AppError {
	return common.NewError(common.ErrorUnauthorized, common.SurfaceChat)
}

// decodeStrict rejects unknown fields and runs the binding tags.
func decodeStrict(c *gin.Context, out any) error {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(out)
}

// hintsFrom reads the geolocation headers set by the edge in front of us.
func hintsFrom(c *gin.Context) prompt.Hints {
	return prompt.Hints{
		Latitude:  c.GetHeader("X-Vercel-IP-Latitude"),
		Longitude: c.GetHeader("X-Vercel-IP-Longitude"),
		City:      c.GetHeader("X-Vercel-IP-City"),
		Country:   c.GetHeader("X-Vercel-IP-Country"),
	}
}

// PostChat runs one chat turn and streams it as UI message chunks.
func (h *Handler) PostChat(c *gin.Context) {
	var req chat.PostRequest
	if err := decodeStrict(c, &req); err != nil {
		common.Respond(c, invalidBody(c, err))
		return
	}
	if err := req.Message.Check(); err != nil {
		common.Respond(c, badRequest(err))
		return
	}

	who, ok := identityFromContext(c)
	if !ok {
		common.Respond(c, unauthorized())
		return
	}

	turn, err := h.ChatSvc.Post(c.Request.Context(), who, req, hintsFrom(c))
	if err != nil {
		common.Respond(c, err)
		return
	}

	uistream.SetHeaders(c.Writer.Header())
	c.Header("X-Stream-ID", turn.StreamID)
	c.Status(http.StatusOK)
	streamTurn(c, turn)
}

// streamTurn copies chunks to the client until the turn ends or the client
// goes away. Generation is never cancelled from here.
func streamTurn(c *gin.Context, turn *chat.Turn) {
	sse := uistream.NewSSEWriter(c.Writer)
	ctx := c.Request.Context()

	// heartbeat ticker (keeps connections alive)
	ticker := time.NewTicker(heartbeatTick)
	defer ticker.Stop()

	for {
		select {
		case chunk, ok := <-turn.Chunks():
			if !ok {
				_ = sse.Done()
				return
			}
			if err := sse.Write(chunk); err != nil {
				turn.Detach()
				return
			}
		case <-ticker.C:
			if err := sse.Ping(); err != nil {
				turn.Detach()
				return
			}
		case <-ctx.Done():
			turn.Detach()
			return
		}
	}
}

// DeleteChat deletes ?id= and returns the deleted chat.
func (h *Handler) DeleteChat(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		common.Respond(c, badRequest(errors.New("parameter id is required")))
		return
	}
	who, ok := identityFromContext(c)
	if !ok {
		common.Respond(c, unauthorized())
		return
	}

	deleted, err := h.ChatSvc.Delete(c.Request.Context(), who, id)
	if err != nil {
		common.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, deleted)
}

// ResumeChat replays the latest stream of a chat. 204 when there is none.
func (h *Handler) ResumeChat(c *gin.Context) {
	who, ok := identityFromContext(c)
	if !ok {
		common.Respond(c, unauthorized())
		return
	}

	frames, err := h.ChatSvc.Resume(c.Request.Context(), who, c.Param("id"))
	if errors.Is(err, chat.ErrNoStream) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		common.Respond(c, err)
		return
	}

	uistream.SetHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	sse := uistream.NewSSEWriter(c.Writer)
	for frame := range frames {
		if err := sse.WriteFrame(frame); err != nil {
			// the subscription stops with the request context
			return
		}
	}
	_ = sse.Done()
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	who, ok := identityFromContext(c)
	if !ok {
		common.Respond(c, unauthorized())
		return
	}
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		common.Respond(c, badRequest(fmt.Errorf("invalid chat id %q", id)))
		return
	}

	msgs, err := h.ChatSvc.Messages(c.Request.Context(), who, id)
	if err != nil {
		common.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type visibilityReq struct {
	Visibility chat.Visibility `json:"visibility" binding:"required,oneof=public private"`
}

func (h *Handler) UpdateChatVisibility(c *gin.Context) {
	who, ok := identityFromContext(c)
	if !ok {
		common.Respond(c, unauthorized())
		return
	}
	var req visibilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Respond(c, invalidBody(c, err))
		return
	}

	updated, err := h.ChatSvc.SetVisibility(c.Request.Context(), who, c.Param("id"), req.Visibility)
	if err != nil {
		common.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// GetDocument lists the versions of ?id= for its owner.
func (h *Handler) GetDocument(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		common.Respond(c, common.NewError(common.ErrorBadRequest, common.SurfaceAPI).WithCause("parameter id is missing"))
		return
	}
	who, ok := identityFromContext(c)
	if !ok {
		common.Respond(c, unauthorized())
		return
	}

	docs, err := h.ChatSvc.Document(c.Request.Context(), who, id)
	if err != nil {
		common.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}
