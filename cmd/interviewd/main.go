package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mindorah/interviewd/internal/agent"
	"github.com/mindorah/interviewd/internal/config"
	"github.com/mindorah/interviewd/internal/cvparse"
	"github.com/mindorah/interviewd/internal/directory"
	"github.com/mindorah/interviewd/internal/document"
	"github.com/mindorah/interviewd/internal/httpapi"
	"github.com/mindorah/interviewd/internal/llm"
	"github.com/mindorah/interviewd/internal/observability"
	"github.com/mindorah/interviewd/internal/postprocess"
	"github.com/mindorah/interviewd/internal/retrieval"
	"github.com/mindorah/interviewd/internal/secrets"
	"github.com/mindorah/interviewd/internal/session"
	"github.com/mindorah/interviewd/internal/speech"
)

func main() {
	// Local runs keep credentials in a .env file; deployments set real env.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var vault secrets.Provider = &secrets.EnvProvider{}
	mustSecret := func(name string) string {
		value, err := vault.Get(name)
		if err != nil {
			log.Fatalf("secret %s: %v", name, err)
		}
		return value
	}
	modelKey := mustSecret("KEY1-AI-US")
	speechKey := mustSecret("SPEECH-KEY-US")
	wixAPIKey := mustSecret("WIX-API-KEY")
	wixSiteID := mustSecret("WIX-SITE-ID")
	if endpoint, err := vault.Get("AI-ENDPOINT-US"); err == nil {
		cfg.ModelBaseURL = endpoint
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	store := session.NewStore(redisClient, cfg.SessionKeyPrefix, cfg.SessionTTL)
	store.SetRetryHook(metrics.StoreRetries.Inc)

	model := llm.NewClient(llm.Config{
		APIKey:         modelKey,
		BaseURL:        cfg.ModelBaseURL,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
	})

	// Retrieval is optional: without a database the agent runs unaugmented.
	var augmenter agent.Augmenter
	if cfg.DatabaseURL != "" {
		index, err := retrieval.NewPGIndex(context.Background(), cfg.DatabaseURL, cfg.EmbeddingDim)
		if err != nil {
			log.Fatalf("retrieval index init failed: %v", err)
		}
		defer index.Close()
		engine := retrieval.NewEngine(model, index, logger)
		engine.SetTopK(cfg.RetrievalTop)
		engine.SetChunkObserver(func(n int) { metrics.RetrievalChunks.Observe(float64(n)) })
		augmenter = engine
		log.Printf("context retrieval enabled (top %d)", cfg.RetrievalTop)
	} else {
		log.Printf("context retrieval disabled: no DATABASE_URL")
	}

	interviewAgent := agent.NewService(model, augmenter, logger)
	if cfg.StructuredReplies {
		interviewAgent.UseStructuredReplies(model)
	}

	synthesizer := speech.NewSynthesizer(
		speech.NewRealtimeProvider(speech.RealtimeConfig{
			APIKey:    speechKey,
			WSBaseURL: cfg.SpeechWSBaseURL,
		}),
		float64(cfg.VisemeMinGapMS),
		logger,
	)

	dir := directory.NewClient(cfg.DirectoryBaseURL, wixAPIKey, wixSiteID)
	post := postprocess.New(dir, logger)

	counter, err := document.NewTiktokenCounter(cfg.ChatModel)
	if err != nil {
		log.Fatalf("token counter init failed: %v", err)
	}
	docs := document.NewFetcher(cfg.MediaBaseURL, wixAPIKey, wixSiteID, counter, logger)
	cvParser := cvparse.NewService(model)

	api := httpapi.New(cfg, store, interviewAgent, synthesizer, post, dir, docs, cvParser, metrics, logger)
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
