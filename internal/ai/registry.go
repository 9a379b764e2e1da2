package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/suPer8Hu/matchday-ai/internal/config"
	"google.golang.org/api/option"
)

// Logical model ids. Backends map them to concrete models.
const (
	ChatModel          = "chat-model"
	ChatModelReasoning = "chat-model-reasoning"
	TitleModel         = "title-model"
	ArtifactModel      = "artifact-model"

	// FallbackModel is tried once when the requested model cannot be resolved.
	FallbackModel = ChatModel
)

var (
	ErrUnknownModel = errors.New("unknown model")
	errNoStreaming  = errors.New("provider does not support streaming")
)

type ChatModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ChatModels are the models a user can pick in the UI.
var ChatModels = []ChatModelInfo{
	{ID: ChatModel, Name: "Grok-4", Description: "Latest Grok-4 model with advanced capabilities for sports analysis"},
	{ID: ChatModelReasoning, Name: "Grok-4 Reasoning", Description: "Grok-4 with advanced reasoning for complex betting analysis"},
}

func IsLogicalModel(id string) bool {
	switch id {
	case ChatModel, ChatModelReasoning, TitleModel, ArtifactModel:
		return true
	}
	return false
}

// Backend names in precedence order.
const (
	BackendXAI     = "xai"
	BackendGateway = "gateway"
	BackendOpenAI  = "openai"
	BackendGemini  = "gemini"
	BackendArk     = "ark"
	BackendOllama  = "ollama"
)

type backend struct {
	name    string
	enabled func(cfg config.Config) bool
}

var backends = []backend{
	{BackendXAI, func(c config.Config) bool { return c.XAIAPIKey != "" }},
	{BackendGateway, func(c config.Config) bool { return c.GatewayAPIKey != "" }},
	{BackendOpenAI, func(c config.Config) bool { return c.OpenAIAPIKey != "" }},
	{BackendGemini, func(c config.Config) bool { return c.GeminiAPIKey != "" }},
	{BackendArk, func(c config.Config) bool { return c.ArkAPIKey != "" && c.ArkModel != "" }},
	{BackendOllama, func(config.Config) bool { return true }},
}

// Select returns the index of the first enabled backend. Ollama is always
// enabled, so the result is always valid.
func Select(cfg config.Config) int {
	for i, b := range backends {
		if b.enabled(cfg) {
			return i
		}
	}
	return len(backends) - 1
}

func BackendName(i int) string {
	if i < 0 || i >= len(backends) {
		return ""
	}
	return backends[i].name
}

// ProviderFactory builds a provider for a logical model id.
type ProviderFactory func(ctx context.Context, model string) (Provider, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
	active    string
	closers   []func() error
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
	if r.active == "" {
		r.active = name
	}
}

// Use makes name the backend Resolve builds from.
func (r *Registry) Use(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = strings.ToLower(strings.TrimSpace(name))
}

func (r *Registry) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx, model)
}

// Resolve builds the active backend's provider for a logical model. The
// reasoning model gets <think> extraction on top.
func (r *Registry) Resolve(ctx context.Context, model string) (Provider, error) {
	if !IsLogicalModel(model) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	p, err := r.Get(ctx, r.Active(), model)
	if err != nil {
		return nil, err
	}
	if model == ChatModelReasoning {
		return ReasoningProvider{Inner: p}, nil
	}
	return p, nil
}

func (r *Registry) Close() error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()
	var errs []error
	for _, c := range closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewFromConfig registers every backend the config enables and activates the
// one Select picks.
func NewFromConfig(cfg config.Config) *Registry {
	reg := NewRegistry()

	if cfg.XAIAPIKey != "" {
		reg.Register(BackendXAI, func(ctx context.Context, model string) (Provider, error) {
			return NewCompatProvider("xai", cfg.XAIBaseURL, cfg.XAIAPIKey, cfg.XAIModel), nil
		})
	}
	if cfg.GatewayAPIKey != "" {
		reg.Register(BackendGateway, func(ctx context.Context, model string) (Provider, error) {
			p := NewCompatProvider("openrouter", cfg.OpenRouterBaseURL, cfg.GatewayAPIKey, cfg.OpenRouterModel)
			p.Headers = map[string]string{
				"HTTP-Referer": cfg.OpenRouterSiteURL,
				"X-Title":      cfg.OpenRouterAppName,
			}
			return p, nil
		})
	}
	if cfg.OpenAIAPIKey != "" {
		reg.Register(BackendOpenAI, func(ctx context.Context, model string) (Provider, error) {
			m := cfg.OpenAIModel
			if model == TitleModel {
				m = "gpt-3.5-turbo"
			}
			return NewCompatProvider("openai", cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, m), nil
		})
	}
	if cfg.GeminiAPIKey != "" {
		var (
			once   sync.Once
			client *genai.Client
			cerr   error
		)
		reg.Register(BackendGemini, func(ctx context.Context, model string) (Provider, error) {
			once.Do(func() {
				// the client outlives the request that created it
				client, cerr = genai.NewClient(context.WithoutCancel(ctx), option.WithAPIKey(cfg.GeminiAPIKey))
				if cerr == nil {
					reg.mu.Lock()
					reg.closers = append(reg.closers, client.Close)
					reg.mu.Unlock()
				}
			})
			if cerr != nil {
				return nil, fmt.Errorf("gemini: %w", cerr)
			}
			return NewGeminiProvider(client, cfg.GeminiModel), nil
		})
	}
	if cfg.ArkAPIKey != "" && cfg.ArkModel != "" {
		reg.Register(BackendArk, func(ctx context.Context, model string) (Provider, error) {
			return NewArkProvider(ctx, ArkConfig{
				BaseURL: cfg.ArkBaseURL,
				Region:  cfg.ArkRegion,
				APIKey:  cfg.ArkAPIKey,
				Model:   cfg.ArkModel,
			})
		})
	}
	reg.Register(BackendOllama, func(ctx context.Context, model string) (Provider, error) {
		return NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	})

	reg.Use(BackendName(Select(cfg)))
	return reg
}
