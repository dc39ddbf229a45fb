package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// LLM configuration
	LLM LLMConfig `mapstructure:"llm"`

	// Chunking configuration
	Chunking ChunkingConfig `mapstructure:"chunking"`

	// Ingestion configuration
	Ingestion IngestionConfig `mapstructure:"ingestion"`

	// Upload configuration
	Upload UploadConfig `mapstructure:"upload"`

	// Store configuration
	Store StoreConfig `mapstructure:"store"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig holds graph database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // neo4j, memory
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// LLMConfig holds LLM configuration
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"` // openai
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Temperature       float32       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	ExtractionTimeout time.Duration `mapstructure:"extraction_timeout"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
}

// ChunkingConfig holds document chunking configuration
type ChunkingConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
	Overlap   int `mapstructure:"overlap"`
}

// IngestionConfig holds ingestion pipeline configuration
type IngestionConfig struct {
	MaxChunks   int `mapstructure:"max_chunks"`
	Workers     int `mapstructure:"workers"`
	QueueBuffer int `mapstructure:"queue_buffer"`
}

// UploadConfig holds upload validation configuration
type UploadConfig struct {
	MaxSizeBytes int64    `mapstructure:"max_size_bytes"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// StoreConfig holds the key-value store configuration. An empty path
// selects an in-memory store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.driver", "neo4j")
	viper.SetDefault("database.uri", "bolt://localhost:7687")
	viper.SetDefault("database.username", "neo4j")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "neo4j")

	// LLM defaults
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.max_tokens", 2048)
	viper.SetDefault("llm.extraction_timeout", "60s")
	viper.SetDefault("llm.generation_timeout", "60s")

	// Chunking defaults
	viper.SetDefault("chunking.chunk_size", 4000)
	viper.SetDefault("chunking.overlap", 200)

	// Ingestion defaults
	viper.SetDefault("ingestion.max_chunks", 3)
	viper.SetDefault("ingestion.workers", 2)
	viper.SetDefault("ingestion.queue_buffer", 32)

	// Upload defaults
	viper.SetDefault("upload.max_size_bytes", 10*1024*1024)
	viper.SetDefault("upload.allowed_types", []string{"text/plain", "text/markdown", "application/pdf"})

	// Store defaults
	viper.SetDefault("store.path", "")
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// LLM API Key
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}

	// Database credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Database.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Database.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Database.Password = pass
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		viper.Set("server.port", port)
	}

	// Store path
	if path := os.Getenv("STORE_PATH"); path != "" {
		config.Store.Path = path
	}
}
