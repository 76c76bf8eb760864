package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	FileStore   FileStoreConfig  `json:"file_store"`
	AI          AIConfig         `json:"ai"`
	Retrieval   RetrievalConfig  `json:"retrieval"`
	Jobs        JobsConfig       `json:"jobs"`
	CORSOrigins []string         `json:"cors_origins"`

	// Minimum seconds between chat requests per client. Zero disables.
	ChatRateSeconds int `json:"chat_rate_seconds"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider      string      `json:"provider"`
	GenerateModel string      `json:"generate_model"`
	EmbedModel    string      `json:"embed_model"`
	EmbedDim      int         `json:"embed_dim"`
	Timeout       int         `json:"timeout"`
	Data          interface{} `json:"data"`
}

type RetrievalConfig struct {
	ChunkWords int `json:"chunk_words"`
	TopK       int `json:"top_k"`
}

type JobsConfig struct {
	Workers           int    `json:"workers"`
	EventBackfillSpec string `json:"event_backfill_spec"`
	BlobCleanupSpec   string `json:"blob_cleanup_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.GenerateModel == "" || cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.generate_model and ai.embed_model are required")
	}
	if cfg.AI.EmbedDim == 0 {
		cfg.AI.EmbedDim = 384
	}
	if cfg.Retrieval.ChunkWords == 0 {
		cfg.Retrieval.ChunkWords = 300
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Jobs.Workers == 0 {
		cfg.Jobs.Workers = 4
	}
	if cfg.Jobs.EventBackfillSpec == "" {
		cfg.Jobs.EventBackfillSpec = "*/30 * * * *"
	}
	if cfg.Jobs.BlobCleanupSpec == "" {
		cfg.Jobs.BlobCleanupSpec = "0 * * * *"
	}
	return &cfg, nil
}
