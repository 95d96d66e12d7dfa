// Command codex777 runs a Telegram webhook bot that relays chat messages
// to a hosted language model and sends the answers back.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ishtar07770/telegram-codex777/internal/config"
	"github.com/ishtar07770/telegram-codex777/internal/logger"
	"github.com/ishtar07770/telegram-codex777/pkg/backoff"
	"github.com/ishtar07770/telegram-codex777/pkg/bot"
	zerolog_adapter "github.com/ishtar07770/telegram-codex777/pkg/bot/logger/zerolog"
	prommetrics "github.com/ishtar07770/telegram-codex777/pkg/bot/metrics/prometheus"
	"github.com/ishtar07770/telegram-codex777/pkg/kv"
	"github.com/ishtar07770/telegram-codex777/pkg/openai"
	"github.com/ishtar07770/telegram-codex777/pkg/quota"
	"github.com/ishtar07770/telegram-codex777/pkg/settings"
	"github.com/ishtar07770/telegram-codex777/pkg/telegram"
	firestoreStorage "github.com/ishtar07770/telegram-codex777/storage/firestore"
	memoryStorage "github.com/ishtar07770/telegram-codex777/storage/memory"
	postgresStorage "github.com/ishtar07770/telegram-codex777/storage/postgres"
	redisStorage "github.com/ishtar07770/telegram-codex777/storage/redis"
)

const metricsNamespace = "codex777"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading configuration from the environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zlog := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		zlog.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("failed to open storage")
	}
	defer store.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = store.Ping(pingCtx)
	cancel()
	if err != nil {
		zlog.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("storage is unreachable")
	}
	zlog.Info().Str("backend", cfg.StorageBackend).Msg("storage connected")

	tg, err := telegram.New(telegram.Config{Token: cfg.TelegramBotToken})
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create telegram client")
	}

	oai := openai.New(openai.Config{
		BaseURL:         cfg.OpenAIBaseURL,
		APIKey:          cfg.OpenAIAPIKey,
		Model:           cfg.OpenAIModel,
		MaxOutputTokens: cfg.MaxOutputTokens,
		VoiceModel:      cfg.VoiceModel,
		VoiceName:       cfg.VoiceName,
	})

	settingsStore, err := settings.NewStore(store)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create settings store")
	}
	quotaLedger, err := quota.NewLedger(store)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create quota ledger")
	}
	gate, err := backoff.NewGate(store)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create backoff gate")
	}

	var botMetrics bot.Metrics
	if cfg.AdminAddr != "" {
		botMetrics = prommetrics.DefaultMetrics(metricsNamespace)
	}

	b, err := bot.New(bot.Config{
		Settings:          settingsStore,
		Quota:             quotaLedger,
		Gate:              gate,
		Completer:         oai,
		Messenger:         tg,
		Voice:             oai,
		WebhookPath:       cfg.WebhookPath,
		WebhookSecret:     cfg.WebhookSecret,
		DailyMessageLimit: cfg.DailyMessageLimit,
		BackoffCooldown:   cfg.BackoffCooldown,
		VoiceReplies:      cfg.VoiceReplies,
		Logger:            zerolog_adapter.NewLogger(zlog),
		Metrics:           botMetrics,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create bot")
	}

	me, err := tg.Me(ctx)
	if err != nil {
		zlog.Fatal().Err(err).Msg("telegram token check failed")
	}
	zlog.Info().Str("username", me.Username).Int64("id", me.ID).Msg("authorized with telegram")

	if cfg.WebhookURL != "" {
		target := strings.TrimRight(cfg.WebhookURL, "/") + cfg.WebhookPath
		if err := tg.SetWebhook(ctx, target, cfg.WebhookSecret); err != nil {
			zlog.Fatal().Err(err).Str("url", target).Msg("failed to register webhook")
		}
		zlog.Info().Str("url", target).Msg("webhook registered")
	}

	public := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           b.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var admin *http.Server
	if cfg.AdminAddr != "" {
		admin = &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           adminRouter(store),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info().Str("addr", public.Addr).Str("path", cfg.WebhookPath).Msg("webhook listener starting")
		if err := public.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook listener: %w", err)
		}
		return nil
	})
	if admin != nil {
		g.Go(func() error {
			zlog.Info().Str("addr", admin.Addr).Msg("admin listener starting")
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin listener: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		zlog.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		var shutdownErr error
		if err := public.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("webhook listener shutdown: %w", err)
		}
		if admin != nil {
			if err := admin.Shutdown(shutdownCtx); err != nil && shutdownErr == nil {
				shutdownErr = fmt.Errorf("admin listener shutdown: %w", err)
			}
		}
		return shutdownErr
	})

	if err := g.Wait(); err != nil {
		zlog.Fatal().Err(err).Msg("server error")
	}
	zlog.Info().Msg("shutdown complete")
}

// openStore builds the key-value store selected by STORAGE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return redisStorage.New(client, redisStorage.Config{})
	case config.BackendMemory:
		return memoryStorage.New(), nil
	case config.BackendPostgres:
		pgConfig := postgresStorage.DefaultConfig()
		pgConfig.ConnectionString = cfg.DatabaseURL
		return postgresStorage.New(ctx, pgConfig)
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		return firestoreStorage.New(client, firestoreStorage.Config{})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// adminRouter serves the operational endpoints on the private listener.
func adminRouter(store kv.Store) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			http.Error(w, "storage unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return r
}
