package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorType is the first half of an error code, e.g. "forbidden" in "forbidden:chat".
type ErrorType string

const (
	ErrorBadRequest   ErrorType = "bad_request"
	ErrorUnauthorized ErrorType = "unauthorized"
	ErrorForbidden    ErrorType = "forbidden"
	ErrorNotFound     ErrorType = "not_found"
	ErrorRateLimit    ErrorType = "rate_limit"
	ErrorOffline      ErrorType = "offline"
)

// Surface names the area of the product the error came from.
type Surface string

const (
	SurfaceAPI      Surface = "api"
	SurfaceChat     Surface = "chat"
	SurfaceAuth     Surface = "auth"
	SurfaceDocument Surface = "document"
)

// AppError is returned by services and rendered by Respond.
type AppError struct {
	Type     ErrorType
	Surface  Surface
	Message  string
	Cause    string
	Internal error
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return string(e.Code()) + ": " + e.Internal.Error()
	}
	return string(e.Code()) + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Internal }

func (e *AppError) Code() string { return string(e.Type) + ":" + string(e.Surface) }

func (e *AppError) StatusCode() int {
	switch e.Type {
	case ErrorBadRequest:
		return http.StatusBadRequest
	case ErrorUnauthorized:
		return http.StatusUnauthorized
	case ErrorForbidden:
		return http.StatusForbidden
	case ErrorNotFound:
		return http.StatusNotFound
	case ErrorRateLimit:
		return http.StatusTooManyRequests
	case ErrorOffline:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func NewError(t ErrorType, s Surface) *AppError {
	return &AppError{Type: t, Surface: s, Message: messageFor(t, s)}
}

// WithCause attaches a client visible cause string.
func (e *AppError) WithCause(cause string) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// Wrap keeps err for logging without exposing it to the client.
func (e *AppError) Wrap(err error) *AppError {
	cp := *e
	cp.Internal = err
	return &cp
}

func messageFor(t ErrorType, s Surface) string {
	switch t {
	case ErrorBadRequest:
		return "The request couldn't be processed. Please check your input and try again."
	case ErrorUnauthorized:
		if s == SurfaceAuth {
			return "You need to sign in before continuing."
		}
		return "You need to sign in to view this chat. Please sign in and try again."
	case ErrorForbidden:
		if s == SurfaceDocument {
			return "This document belongs to another user. Please check the document ID and try again."
		}
		return "This chat belongs to another user. Please check the chat ID and try again."
	case ErrorNotFound:
		if s == SurfaceDocument {
			return "The requested document was not found. Please check the document ID and try again."
		}
		return "The requested chat was not found. Please check the chat ID and try again."
	case ErrorRateLimit:
		return "You have exceeded your maximum number of messages for the day. Please try again later."
	case ErrorOffline:
		return "We're having trouble sending your message. Please check your internet connection and try again."
	default:
		return "Something went wrong. Please try again later."
	}
}

// Respond writes err as a typed JSON error. Anything that is not an AppError
// becomes offline:chat and is logged.
func Respond(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewError(ErrorOffline, SurfaceChat).Wrap(err)
	}

	if appErr.Type == ErrorOffline || appErr.Internal != nil {
		log.Error().
			Err(appErr.Internal).
			Str("code", appErr.Code()).
			Str("url", c.Request.URL.String()).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(appErr.StatusCode(), gin.H{
		"code":    appErr.Code(),
		"message": appErr.Message,
		"cause":   appErr.Cause,
	})
}
