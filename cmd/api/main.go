package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/chat"
	"github.com/suPer8Hu/matchday-ai/internal/config"
	"github.com/suPer8Hu/matchday-ai/internal/db"
	"github.com/suPer8Hu/matchday-ai/internal/httpapi"
	"github.com/suPer8Hu/matchday-ai/internal/httpapi/handlers"
	"github.com/suPer8Hu/matchday-ai/internal/models"
	"github.com/suPer8Hu/matchday-ai/internal/prompt"
	"github.com/suPer8Hu/matchday-ai/internal/resumable"
	"github.com/suPer8Hu/matchday-ai/internal/sportmonks"
	"github.com/suPer8Hu/matchday-ai/internal/store/rabbitmq"
	"github.com/suPer8Hu/matchday-ai/internal/store/redisstore"
	"github.com/suPer8Hu/matchday-ai/internal/tools"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err := db.Migrate(gdb, append(chat.Tables(), &models.User{})...); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	repo := chat.NewRepo(gdb)

	// Redis is optional: without it the sports cache and resumable streams are off
	var rdb *redisstore.Store
	if cfg.RedisURL != "" {
		s, err := redisstore.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without it")
		} else {
			rdb = s
			defer rdb.Close()
		}
	}

	var cache sportmonks.Cache
	if rdb != nil {
		cache = rdb
	}
	sports, err := sportmonks.New(cfg.SportmonksBaseURL, cfg.SportmonksToken, cache)
	if err != nil {
		log.Fatal().Err(err).Msg("sportmonks client")
	}

	reg := ai.NewFromConfig(cfg)
	defer reg.Close()

	toolset := tools.NewRegistry()
	toolset.MustRegister(tools.Football(sports)...)
	docs := &tools.Documents{Store: repo, Models: reg}
	toolset.MustRegister(docs.Tools()...)
	toolset.MustRegister(tools.Weather("", nil))

	svc := chat.NewService(repo, reg, toolset, chat.Options{
		ContextBudget:   cfg.ChatContextBudget,
		MaxSteps:        cfg.ChatMaxSteps,
		MaxDuration:     cfg.ChatMaxDuration,
		ToolConcurrency: cfg.ToolConcurrency,
		Mode:            prompt.Mode(cfg.PromptMode),
	})

	switch {
	case cfg.StreamMode == "memory":
		svc.WithStreams(resumable.NewMemory(cfg.StreamTTL))
	case rdb != nil:
		svc.WithStreams(resumable.NewRedis(rdb.Client, cfg.StreamTTL))
	default:
		log.Info().Msg("resumable streams disabled")
	}

	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, titles are generated inline")
		} else {
			defer pub.Close()
			svc.WithTitlePublisher(pub)
		}
	}

	h := handlers.NewHandler(gdb, cfg, svc, reg, sports)
	r := httpapi.NewRouter(cfg, h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("backend", reg.Active()).
			Str("db", cfg.DBDriver).
			Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	// turns of disconnected clients are no longer tied to a request
	if err := svc.Wait(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("chat turns still running at exit")
	}
}
