// Package tools holds the capabilities offered to the model. Every tool
// reports failure in-band through an Envelope and never panics past Run.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/uistream"
)

// Envelope is the uniform tool result.
type Envelope struct {
	Success bool            `json:"success"`
	Data    any             `json:"data,omitempty"`
	Meta    json.RawMessage `json:"meta,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func OK(data any, meta json.RawMessage) Envelope {
	return Envelope{Success: true, Data: data, Meta: meta}
}

func Fail(msg string) Envelope {
	if msg == "" {
		msg = "Tool execution failed"
	}
	return Envelope{Success: false, Error: msg}
}

// failWith uses err's message, or fallback when err has none.
func failWith(err error, fallback string) Envelope {
	if err == nil || err.Error() == "" {
		return Fail(fallback)
	}
	return Fail(err.Error())
}

// Env is what a tool can reach during one turn.
type Env struct {
	UserID uint64
	Writer uistream.Writer
}

func (e Env) write(name string, v any) {
	if e.Writer == nil {
		return
	}
	c, err := uistream.Data(name, v, true)
	if err != nil {
		return
	}
	_ = e.Writer.Write(c)
}

type Tool struct {
	Name        string
	Description string
	Params      []ai.Param
	Execute     func(ctx context.Context, env Env, args json.RawMessage) Envelope
}

func (t Tool) Def() ai.ToolDef {
	return ai.ToolDef{Name: t.Name, Description: t.Description, Params: t.Params}
}

// Run executes the tool and turns panics into a failure envelope.
func (t Tool) Run(ctx context.Context, env Env, args json.RawMessage) (out Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("tool", t.Name).Interface("panic", r).Msg("tool panicked")
			out = Fail(fmt.Sprintf("%s failed unexpectedly", t.Name))
		}
	}()
	return t.Execute(ctx, env, args)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeArgs rejects unknown fields and runs validate tags.
func decodeArgs(raw json.RawMessage, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid input: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}

// Typed wraps fn with argument decoding and validation.
func Typed[T any](name, description string, params []ai.Param, fn func(ctx context.Context, env Env, args T) Envelope) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Params:      params,
		Execute: func(ctx context.Context, env Env, raw json.RawMessage) Envelope {
			var args T
			if err := decodeArgs(raw, &args); err != nil {
				return Fail(err.Error())
			}
			return fn(ctx, env, args)
		},
	}
}
