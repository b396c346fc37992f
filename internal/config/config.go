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
	Pipeline    PipelineConfig   `json:"pipeline"`
	// QualityCheck enables the advisory pass that flags summary sections
	// whose statements cannot be matched back into the retrieved text.
	QualityCheck bool `json:"quality_check"`
	// MaxUploadBytes rejects oversize files before a record is created.
	MaxUploadBytes int64 `json:"max_upload_bytes"`
	// AuthRateMillis throttles the auth endpoints per client; zero disables.
	AuthRateMillis int      `json:"auth_rate_millis"`
	CORSOrigins    []string `json:"cors_origins"`
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
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type PipelineConfig struct {
	UploadWorkers      int `json:"upload_workers"`
	ExtractionWorkers  int `json:"extraction_workers"`
	WaitCeilingSeconds int `json:"wait_ceiling_seconds"`
	PollSeconds        int `json:"poll_seconds"`
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
	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets deployments keep secrets out of the config file.
func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}
}

func (cfg *Config) validate() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.FileStore.Type == "" {
		return fmt.Errorf("file_store.type is required")
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.0-flash"
	}
	if cfg.Pipeline.UploadWorkers <= 0 {
		cfg.Pipeline.UploadWorkers = 5
	}
	if cfg.Pipeline.ExtractionWorkers <= 0 {
		cfg.Pipeline.ExtractionWorkers = 3
	}
	if cfg.Pipeline.WaitCeilingSeconds <= 0 {
		cfg.Pipeline.WaitCeilingSeconds = 300
	}
	if cfg.Pipeline.PollSeconds <= 0 {
		cfg.Pipeline.PollSeconds = 2
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 * 1024 * 1024
	}
	return nil
}
