package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/readvideos/vt-engine/internal/api"
	"github.com/readvideos/vt-engine/internal/config"
	"github.com/readvideos/vt-engine/internal/media"
	"github.com/readvideos/vt-engine/internal/notify"
	"github.com/readvideos/vt-engine/internal/pipeline"
	"github.com/readvideos/vt-engine/internal/store"
	"github.com/readvideos/vt-engine/internal/summarize"
	"github.com/readvideos/vt-engine/internal/transcribe"
	"github.com/readvideos/vt-engine/internal/watch"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.HTTPAddr, "http-addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.DataDir, "data-dir", "", "data directory (overrides DATA_DIR)")
	flag.StringVar(&overrides.InboxDir, "inbox-dir", "", "inbox directory to watch (overrides INBOX_DIR)")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("vt-engine starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	st, err := store.New(cfg.DataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open data directory")
	}

	// Optional S3 archive
	var archiver *store.Archiver
	if cfg.S3.Enabled() {
		archiver, err = store.NewArchiver(ctx, cfg.S3, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to s3 archive")
		}
	}

	// Optional MQTT completion notifications
	var notifier *notify.MQTTNotifier
	if cfg.MQTTBrokerURL != "" {
		notifier, err = notify.Connect(notify.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topic:     cfg.MQTTTopic,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Log:       log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer notifier.Close()
	}

	// Pipeline
	policy, err := transcribe.ParsePolicy(cfg.ChunkFailurePolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid chunk failure policy")
	}
	ports := pipeline.Ports{
		Extractor:   media.NewFFmpegExtractor(cfg.FFmpegPath, "", log),
		Transcriber: transcribe.NewGroqClient(cfg.STTURL, cfg.STTAPIKey, cfg.STTModel, cfg.STTTimeout),
		Summarizer: summarize.NewOpenAIClient(
			cfg.SummaryBaseURL, cfg.SummaryAPIKey, cfg.SummaryModel, cfg.SummaryTimeout,
			log.With().Str("component", "summarize").Logger(),
		),
	}
	bus := pipeline.NewBus(256)
	var pipelineNotifier pipeline.Notifier
	if notifier != nil {
		pipelineNotifier = notifier
	}
	pl := pipeline.New(ports,
		pipeline.Options{MaxChunkBytes: cfg.MaxChunkBytes(), Policy: policy},
		st, bus, archiver, pipelineNotifier, log)

	// Worker pool
	pool := pipeline.NewWorkerPool(pl, pipeline.WorkerPoolOptions{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		Log:       log,
	})
	pool.Start()

	// Optional inbox watcher
	var watcher *watch.Watcher
	if cfg.InboxDir != "" {
		watcher = watch.New(cfg.InboxDir, func(path string) bool {
			return pool.Enqueue(pipeline.Job{VideoPath: path})
		}, log)
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start inbox watcher")
		}
	}

	// HTTP server
	httpLog := log.With().Str("component", "http").Logger()
	deps := api.Deps{Store: st, Queue: pool, Bus: bus, Watcher: watcher}
	if notifier != nil {
		deps.Notifier = notifier
	}
	srv := api.NewServer(cfg, deps, version, startTime, httpLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown: stop intake first, then let the queue drain and
	// close the HTTP server.
	if watcher != nil {
		watcher.Stop()
	}
	pool.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("vt-engine stopped")
}
