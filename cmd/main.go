package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"babygpt/handler"
	"babygpt/internal/integrations/datagov"
	"babygpt/internal/integrations/openai"
	"babygpt/internal/integrations/paramstore"
	"babygpt/internal/integrations/telegram"
	"babygpt/internal/session"
	"babygpt/internal/usecase"
)

func main() {
	ctx := context.Background()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	paramPrefix := mustEnv("PARAM_PREFIX")
	openaiModel := envOr("OPENAI_MODEL", "gpt-4o-mini")
	listenAddr := envOr("LISTEN_ADDR", ":8080")
	storeType := session.StoreType(envOr("SESSION_STORE", "memory"))
	sessionTTLHours := envInt("SESSION_TTL_HOURS", 24)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	openaiClient, err := openai.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}
	telegramClient, err := telegram.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create Telegram client", "err", err)
		os.Exit(1)
	}

	// ---- Session store ----
	var storeOpts []session.StoreOption
	switch storeType {
	case session.StoreTypeRedis:
		storeOpts = append(storeOpts,
			session.WithRedisClient(redis.NewClient(&redis.Options{
				Addr:     mustEnv("REDIS_ADDR"),
				Password: os.Getenv("REDIS_PASSWORD"),
			})),
			session.WithRedisTTL(time.Duration(sessionTTLHours)*time.Hour),
		)
	case session.StoreTypeDynamoDB:
		storeOpts = append(storeOpts,
			session.WithDynamoDB(awsdynamodb.NewFromConfig(cfg), mustEnv("SESSION_TABLE")),
		)
	}
	store, err := session.NewStore(storeType, storeOpts...)
	if err != nil {
		slog.Error("failed to create session store", "err", err, "type", string(storeType))
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	// ---- Router + handler ----
	router, err := usecase.NewRouter(openaiClient, store, openaiModel,
		usecase.WithPlaceFinder(datagov.NewClient()),
		usecase.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create router", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewHandler(router, telegramClient, logger)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	// ---- HTTP server ----
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	h.Register(e)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-runCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Error("environment variable is not an integer", "key", key, "value", v)
		os.Exit(1)
	}
	return n
}
