package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port      string
	DBDriver  string
	DBDSN     string
	JWTSecret string
	LogLevel  string

	// Redis backs the resumable streams and the sports-data cache.
	// Both are disabled when RedisURL is empty.
	RedisURL   string
	StreamTTL  time.Duration
	StreamMode string

	ChatContextBudget int
	ChatMaxSteps      int
	ChatMaxDuration   time.Duration
	ToolConcurrency   int
	PromptMode        string

	// AI providers, tried in precedence order by ai.Select
	XAIAPIKey         string
	XAIBaseURL        string
	XAIModel          string
	GatewayAPIKey     string
	OpenRouterBaseURL string
	OpenRouterModel   string
	OpenRouterSiteURL string
	OpenRouterAppName string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string
	ArkAPIKey         string
	ArkBaseURL        string
	ArkRegion         string
	ArkModel          string
	OllamaBaseURL     string
	OllamaModel       string

	// SportMonks
	SportmonksToken   string
	SportmonksBaseURL string

	// rabbitMQ
	RabbitURL   string
	RabbitQueue string
}

func Load() Config {
	// DSN demo：
	// app:apppass@tcp(127.0.0.1:3306)/matchday?charset=utf8mb4&parseTime=true&loc=Local
	driver := strings.ToLower(getEnv("DB_DRIVER", "mysql"))
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		switch driver {
		case "sqlite":
			dsn = "file:matchday.db?_pragma=foreign_keys(1)"
		case "postgres":
			dsn = "host=127.0.0.1 user=app password=apppass dbname=matchday port=5432 sslmode=disable"
		default:
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=Local",
				"app", "apppass", "127.0.0.1", "3306", "matchday",
			)
		}
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	// the gateway key wins over a plain OpenRouter key
	gatewayKey := os.Getenv("AI_GATEWAY_API_KEY")
	if gatewayKey == "" {
		gatewayKey = os.Getenv("OPENROUTER_API_KEY")
	}

	return Config{
		Port:      getEnv("PORT", "8080"),
		DBDriver:  driver,
		DBDSN:     dsn,
		JWTSecret: secret,
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		RedisURL:   os.Getenv("REDIS_URL"),
		StreamTTL:  getDuration("STREAM_TTL", 24*time.Hour),
		StreamMode: strings.ToLower(os.Getenv("STREAM_STORE")),

		ChatContextBudget: getInt("CHAT_CONTEXT_BUDGET", 120000),
		ChatMaxSteps:      getInt("CHAT_MAX_STEPS", 5),
		ChatMaxDuration:   getDuration("CHAT_MAX_DURATION", 300*time.Second),
		ToolConcurrency:   getInt("TOOL_CONCURRENCY", 4),
		PromptMode:        strings.ToLower(getEnv("PROMPT_MODE", "football")),

		XAIAPIKey:         os.Getenv("XAI_API_KEY"),
		XAIBaseURL:        getEnv("XAI_BASE_URL", "https://api.x.ai/v1"),
		XAIModel:          getEnv("XAI_MODEL", "grok-4"),
		GatewayAPIKey:     gatewayKey,
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL", "x-ai/grok-4"),
		OpenRouterSiteURL: os.Getenv("OPENROUTER_SITE_URL"),
		OpenRouterAppName: os.Getenv("OPENROUTER_APP_NAME"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4-turbo-preview"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
		ArkAPIKey:         os.Getenv("ARK_API_KEY"),
		ArkBaseURL:        getEnv("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:         getEnv("ARK_REGION", "cn-beijing"),
		ArkModel:          os.Getenv("ARK_MODEL"),
		OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "llama3.1:latest"),

		SportmonksToken:   os.Getenv("SPORTMONKS_API_TOKEN"),
		SportmonksBaseURL: getEnv("SPORTMONKS_BASE_URL", "https://api.sportmonks.com/v3/football"),

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: getEnv("RABBIT_QUEUE", "chat_title_jobs"),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// bare numbers are seconds
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
