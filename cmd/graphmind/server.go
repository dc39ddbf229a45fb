package graphmind

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphmind-ai/graphmind"
	"github.com/graphmind-ai/graphmind/pkg/config"
	"github.com/graphmind-ai/graphmind/pkg/driver"
	"github.com/graphmind-ai/graphmind/pkg/llm"
	"github.com/graphmind-ai/graphmind/pkg/logger"
	"github.com/graphmind-ai/graphmind/pkg/server"
	"github.com/graphmind-ai/graphmind/pkg/store"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the GraphMind HTTP server",
	Long: `Start the GraphMind HTTP server to provide REST API access to the engine.

The server provides endpoints for:
- Managing graph instances
- Uploading documents and tracking processing
- Chatting with graph-grounded answers
- Searching and visualizing graphs
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")

	// Database flags
	serverCmd.Flags().String("db-driver", "neo4j", "Database driver (neo4j, memory)")
	serverCmd.Flags().String("db-uri", "bolt://localhost:7687", "Database URI")
	serverCmd.Flags().String("db-username", "neo4j", "Database username")
	serverCmd.Flags().String("db-password", "password", "Database password")
	serverCmd.Flags().String("db-database", "neo4j", "Database name")

	// LLM flags
	serverCmd.Flags().String("llm-model", "gpt-4o", "LLM model")
	serverCmd.Flags().String("llm-api-key", "", "LLM API key")
	serverCmd.Flags().String("llm-base-url", "", "LLM base URL")

	// Store flags
	serverCmd.Flags().String("store-path", "", "Key-value store path (empty for in-memory)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrideConfigWithFlags(cmd, cfg)

	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewDefaultLogger(logger.ParseLevel(cfg.Log.Level))

	service, err := buildService(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	srv := server.New(cfg, service)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("starting http server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("received shutdown signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		if err := service.Close(shutdownCtx); err != nil {
			return fmt.Errorf("engine shutdown error: %w", err)
		}

		log.Info("server stopped gracefully")
		return nil
	}
}

func buildService(cfg *config.Config, log *slog.Logger) (*graphmind.Service, error) {
	var graphStore driver.GraphStore
	switch cfg.Database.Driver {
	case "memory":
		graphStore = driver.NewMemoryStore()
	default:
		var err error
		graphStore, err = driver.NewNeo4jStore(cfg.Database.URI, cfg.Database.Username, cfg.Database.Password, cfg.Database.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to graph database: %w", err)
		}
	}

	kv, err := store.NewBadgerStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open key-value store: %w", err)
	}

	var llmClient llm.Client
	if cfg.LLM.APIKey != "" {
		temperature := cfg.LLM.Temperature
		maxTokens := cfg.LLM.MaxTokens
		base := llm.NewOpenAIClient(cfg.LLM.APIKey, llm.Config{
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
		llmClient = llm.NewBreakerClient(base)
	}

	return graphmind.NewService(graphStore, kv, llmClient,
		graphmind.SplitterConfig{
			ChunkSize: cfg.Chunking.ChunkSize,
			Overlap:   cfg.Chunking.Overlap,
		},
		graphmind.Options{
			Model:               cfg.LLM.Model,
			ExtractionTimeout:   cfg.LLM.ExtractionTimeout,
			GenerationTimeout:   cfg.LLM.GenerationTimeout,
			MaxChunks:           cfg.Ingestion.MaxChunks,
			Workers:             cfg.Ingestion.Workers,
			QueueBuffer:         cfg.Ingestion.QueueBuffer,
			MaxUploadBytes:      cfg.Upload.MaxSizeBytes,
			AllowedContentTypes: cfg.Upload.AllowedTypes,
		},
		log,
	)
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	// Server flags
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	// Database flags
	if cmd.Flags().Changed("db-driver") {
		cfg.Database.Driver, _ = cmd.Flags().GetString("db-driver")
	}
	if cmd.Flags().Changed("db-uri") {
		cfg.Database.URI, _ = cmd.Flags().GetString("db-uri")
	}
	if cmd.Flags().Changed("db-username") {
		cfg.Database.Username, _ = cmd.Flags().GetString("db-username")
	}
	if cmd.Flags().Changed("db-password") {
		cfg.Database.Password, _ = cmd.Flags().GetString("db-password")
	}
	if cmd.Flags().Changed("db-database") {
		cfg.Database.Database, _ = cmd.Flags().GetString("db-database")
	}

	// LLM flags
	if cmd.Flags().Changed("llm-model") {
		cfg.LLM.Model, _ = cmd.Flags().GetString("llm-model")
	}
	if cmd.Flags().Changed("llm-api-key") {
		cfg.LLM.APIKey, _ = cmd.Flags().GetString("llm-api-key")
	}
	if cmd.Flags().Changed("llm-base-url") {
		cfg.LLM.BaseURL, _ = cmd.Flags().GetString("llm-base-url")
	}

	// Store flags
	if cmd.Flags().Changed("store-path") {
		cfg.Store.Path, _ = cmd.Flags().GetString("store-path")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}

	if cfg.Database.Driver != "memory" && cfg.Database.URI == "" {
		return fmt.Errorf("database URI is required")
	}

	return nil
}
