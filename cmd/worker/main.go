package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/suPer8Hu/matchday-ai/internal/ai"
	"github.com/suPer8Hu/matchday-ai/internal/chat"
	"github.com/suPer8Hu/matchday-ai/internal/config"
	"github.com/suPer8Hu/matchday-ai/internal/db"
	"github.com/suPer8Hu/matchday-ai/internal/store/rabbitmq"
)

const (
	maxAttempts = 3
	retryDelay  = 5 * time.Second
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if cfg.RabbitURL == "" {
		log.Fatal().Msg("RABBIT_URL is required for the title worker")
	}

	gdb := db.Connect(cfg.DBDriver, cfg.DBDSN)
	repo := chat.NewRepo(gdb)

	models := ai.NewFromConfig(cfg)
	defer models.Close()
	svc := chat.NewService(repo, models, nil, chat.Options{})

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit dial")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit channel")
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatal().Err(err).Msg("queue declare")
	}
	retries := rabbitmq.NewChannelPublisher(ch, cfg.RabbitQueue)

	//  strict concurrency control
	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatal().Err(err).Msg("qos")
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("queue", cfg.RabbitQueue).
		Int("concurrency", concurrency).
		Str("backend", models.Active()).
		Msg("title worker started")

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				handleDelivery(ctx, svc, retries, workerID, d)
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Error().Msg("delivery channel closed")
				close(jobs)
				wg.Wait()
				return
			}
			jobs <- d
		}
	}
}

func handleDelivery(ctx context.Context, svc *chat.Service, retries *rabbitmq.Publisher, workerID int, d amqp.Delivery) {
	var m rabbitmq.JobMessage
	if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
		log.Warn().Err(err).Int("worker", workerID).Msg("bad message")
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	attempt := rabbitmq.Attempt(d)
	jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
	err := svc.RunTitleJob(jobCtx, m.JobID)
	cancel()

	logger := log.With().
		Int("worker", workerID).
		Str("job_id", m.JobID).
		Int("attempt", attempt).
		Dur("cost", time.Since(start)).
		Logger()

	if err == nil {
		if err := d.Ack(false); err != nil {
			logger.Error().Err(err).Msg("ack failed")
		}
		logger.Info().Msg("title job done")
		return
	}

	if attempt < maxAttempts {
		rerr := retries.Retry(ctx, m.JobID, attempt+1, retryDelay)
		if rerr == nil {
			logger.Warn().Err(err).Msg("title job failed, retrying")
			_ = d.Ack(false)
			return
		}
		logger.Error().Err(rerr).Msg("schedule retry failed")
	}

	// dead-letter
	logger.Error().Err(err).Msg("title job failed")
	_ = d.Nack(false, false)
}
