/*
Package main is the entry point for the FloriteChat server.

It is responsible for loading configuration, initializing the global logging system,
connecting the user database, building the chat hub and its collaborators, setting up the
HTTP server, and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"floritechat/internal/app/chat"
	"floritechat/internal/app/chatbot"
	"floritechat/internal/app/db"
	"floritechat/internal/app/fortune"
	"floritechat/internal/app/hotsearch"
	"floritechat/internal/app/music"
	"floritechat/internal/app/news"
	"floritechat/internal/app/storage"
	"floritechat/internal/app/user"
	"floritechat/internal/app/weather"
	"floritechat/internal/configs"
	"floritechat/internal/handler"
	"floritechat/internal/pkg/logx"
	"floritechat/internal/pkg/upstream"
)

const (
	upstreamTimeout = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := configs.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("s3_configured", cfg.S3Configured()).
		Bool("chatbot_enabled", cfg.ChatbotEnabled).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()

	var store storage.StorageService
	if cfg.S3Configured() {
		store, err = storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3Region:          cfg.S3Region,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize storage service")
		}
	} else {
		logx.Warn("S3 storage not configured, news will be sent without images")
	}

	clock := clockwork.NewRealClock()
	users := user.NewPGStore(pool)

	hub := chat.NewHub(chat.Options{
		Users:     users,
		Clock:     clock,
		JWTSecret: cfg.JWTSecret,
		Collaborators: chat.Collaborators{
			Fortune:   fortune.NewTeller(clock),
			Weather:   weather.NewProvider(upstream.New("weather", upstreamTimeout), cfg.WeatherAPIBase, cfg.WeatherAPIKey, clock),
			HotSearch: hotsearch.NewProvider(upstream.New("hot-search", upstreamTimeout), cfg.HotSearchURL),
			Music:     music.NewResolver(cfg.MusicAPIBase, cfg.MusicAPIKey),
			News: news.NewProvider(news.Config{
				PageURL:       cfg.NewsPageURL,
				ImageTemplate: cfg.NewsImageTemplate,
			}, upstream.New("news", upstreamTimeout), store, clock),
			Assistant: chatbot.New(chatbot.Config{
				Enabled:      cfg.ChatbotEnabled,
				Stream:       cfg.ChatbotStream,
				APIBase:      cfg.ChatbotAPIBase,
				APIKey:       cfg.ChatbotAPIKey,
				Model:        cfg.ChatbotModel,
				SystemPrompt: cfg.ChatbotPrompt,
				MaxTokens:    cfg.ChatbotMaxTokens,
				Temperature:  cfg.ChatbotTemperature,
			}, upstream.New("chatbot", 0)),
		},
		IdleWindow:   cfg.IdleWindow,
		NewsSettle:   cfg.NewsSettleDelay,
		MessageRate:  cfg.MessageRate,
		MessageBurst: cfg.MessageBurst,
	})

	deps := &handler.AppDeps{
		Hub:    hub,
		Config: cfg,
		Users:  users,
	}
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("FloriteChat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Hub did not stop in time")
	}
	deps.WSLimiter.Stop()

	logx.Info("Server gracefully stopped.")
}
