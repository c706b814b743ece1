// Command gateway runs the WhatsApp webhook orchestrator's HTTP front door.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ottohq/otto-gateway/internal/config"
	"github.com/ottohq/otto-gateway/internal/httpapi"
	"github.com/ottohq/otto-gateway/pkg/advisors"
	"github.com/ottohq/otto-gateway/pkg/advisors/promptfiles"
	"github.com/ottohq/otto-gateway/pkg/audit"
	"github.com/ottohq/otto-gateway/pkg/dedupe"
	"github.com/ottohq/otto-gateway/pkg/docstore"
	"github.com/ottohq/otto-gateway/pkg/guards"
	"github.com/ottohq/otto-gateway/pkg/opsnotify"
	"github.com/ottohq/otto-gateway/pkg/orchestrator"
	"github.com/ottohq/otto-gateway/pkg/outbound"
	"github.com/ottohq/otto-gateway/pkg/session"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "directory holding .env and prompt-content.yaml")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("could not load %s, continuing with existing environment: %v", envPath, err)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	var docStore docstore.Store
	if cfg.Docstore.Host != "" {
		pgStore, err := docstore.NewPostgresStore(ctx, cfg.Docstore)
		if err != nil {
			log.Fatalf("docstore: %v", err)
		}
		defer pgStore.Close()
		docStore = pgStore
	}

	dedupeStore, err := dedupe.NewFromConfig(ctx, dedupe.FactoryConfig{
		Backend:     cfg.DedupeBackend,
		Environment: cfg.Environment,
		RedisClient: redisClient,
		DocStore:    docStore,
	})
	if err != nil {
		log.Fatalf("dedupe: %v", err)
	}

	sessionStore, err := session.NewFromConfig(ctx, session.FactoryConfig{
		Backend:     cfg.SessionStoreBackend,
		Environment: cfg.Environment,
		RedisClient: redisClient,
		DocStore:    docStore,
	})
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	sessionMgr := session.NewManager(sessionStore, cfg.SessionMessageHistoryMaxEntries)

	floodDetector, err := guards.NewFloodDetectorFromConfig(cfg.FloodDetectorBackend, cfg.Environment, cfg.FloodThreshold, cfg.FloodWindow(), redisClient)
	if err != nil {
		log.Fatalf("guards: %v", err)
	}
	guardChecker := guards.NewChecker(floodDetector)

	userAuditStore, decisionAuditStore, err := audit.NewFromConfig(audit.FactoryConfig{
		Backend:     audit.Backend(cfg.DecisionAuditBackend),
		Environment: cfg.Environment,
		DocStore:    docStore,
	})
	if err != nil {
		log.Fatalf("audit: %v", err)
	}
	auditRecorder := audit.NewRecorder(userAuditStore)

	openaiOpts := []openai.Option{openai.WithModel(cfg.OpenAIModel)}
	if cfg.OpenAIAPIKey != "" {
		openaiOpts = append(openaiOpts, openai.WithToken(cfg.OpenAIAPIKey))
	}
	if cfg.OpenAIBaseURL != "" {
		openaiOpts = append(openaiOpts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	llmModel, err := openai.New(openaiOpts...)
	if err != nil {
		log.Fatalf("llm: %v", err)
	}
	completer := advisors.NewLangchainCompleter(llmModel)

	stateSelector := advisors.NewStateSelector(completer, cfg.StateSelectorThreshold)
	responseGenerator := advisors.NewResponseGenerator(completer)
	masterDecider := advisors.NewMasterDecider(completer, cfg.MasterDeciderConfidenceThreshold)

	promptContent := promptfiles.Content{}
	promptPath := filepath.Join(*configDir, "prompt-content.yaml")
	if _, statErr := os.Stat(promptPath); statErr == nil {
		promptContent, err = promptfiles.Load(promptPath)
		if err != nil {
			log.Fatalf("promptfiles: %v", err)
		}
	}

	ops := opsnotify.NewService(opsnotify.Config{
		Token:   cfg.OpsNotifySlackToken,
		Channel: cfg.OpsNotifySlackChannel,
	})

	enqueuer := outbound.NewLoggingEnqueuer()

	orch := orchestrator.New(
		cfg,
		dedupeStore,
		sessionMgr,
		guardChecker,
		stateSelector,
		responseGenerator,
		masterDecider,
		enqueuer,
		auditRecorder,
		decisionAuditStore,
		ops,
		promptContent,
	)

	server := httpapi.NewServer(cfg, orch)

	slog.Info("gateway_starting", "environment", cfg.Environment, "port", httpPort)
	if err := server.ListenAndServe(ctx, ":"+httpPort); err != nil {
		log.Fatalf("http server: %v", err)
	}
	slog.Info("gateway_stopped")
}
