package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"crc-quiz-server/session"
)

// Session backends accepted in SESSION.BACKEND.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	ServerPort  string        `mapstructure:"SERVER_PORT"`
	GinMode     string        `mapstructure:"GIN_MODE"`
	DatabaseURL string        `mapstructure:"DATABASE_URL"`
	Data        DataConfig    `mapstructure:"DATA"`
	Auth        AuthConfig    `mapstructure:"AUTH"`
	Session     SessionConfig `mapstructure:"SESSION"`
	Exam        ExamConfig    `mapstructure:"EXAM"`
}

// DataConfig locates the case workbook, the result files and the users file.
type DataConfig struct {
	CasesPath      string        `mapstructure:"CASES_PATH"`
	ResultsDir     string        `mapstructure:"RESULTS_DIR"`
	UsersPath      string        `mapstructure:"USERS_PATH"`
	ReloadInterval time.Duration `mapstructure:"RELOAD_INTERVAL"` // 0 disables periodic reloads
}

// AuthConfig holds token signing settings
type AuthConfig struct {
	JWTSigningKey string        `mapstructure:"JWT_SIGNING_KEY"`
	Issuer        string        `mapstructure:"ISSUER"`
	TokenTTL      time.Duration `mapstructure:"TOKEN_TTL"`
}

// SessionConfig selects where in-progress exams live.
type SessionConfig struct {
	Backend  string        `mapstructure:"BACKEND"`
	RedisURL string        `mapstructure:"REDIS_URL"`
	TTL      time.Duration `mapstructure:"TTL"`
}

// ExamConfig holds question counts.
type ExamConfig struct {
	DefaultCount int `mapstructure:"DEFAULT_COUNT"`
	RetrainCount int `mapstructure:"RETRAIN_COUNT"`
}

const devSigningKey = "crcq-dev-signing-key"

// LoadConfig loads configuration from environment variables and config.yaml.
// A non-empty path names the config file explicitly.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("SERVER_PORT", ":8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATA.CASES_PATH", "./data/cases.xlsx")
	v.SetDefault("DATA.RESULTS_DIR", "./results")
	v.SetDefault("DATA.USERS_PATH", "./data/users.yaml")
	v.SetDefault("DATA.RELOAD_INTERVAL", "0s")
	v.SetDefault("AUTH.JWT_SIGNING_KEY", devSigningKey) // IMPORTANT: override outside debug mode
	v.SetDefault("AUTH.ISSUER", "crc-quiz-server")
	v.SetDefault("AUTH.TOKEN_TTL", "12h")
	v.SetDefault("SESSION.BACKEND", SessionMemory)
	v.SetDefault("SESSION.REDIS_URL", "")
	v.SetDefault("SESSION.TTL", "24h")
	v.SetDefault("EXAM.DEFAULT_COUNT", 20)
	v.SetDefault("EXAM.RETRAIN_COUNT", 10)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Println("config.yaml not found, using environment variables and defaults")
		} else {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	// CRCQ_SERVER_PORT, CRCQ_SESSION_BACKEND, ...
	v.SetEnvPrefix("CRCQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case SessionMemory:
	case SessionRedis:
		if c.Session.RedisURL == "" {
			return fmt.Errorf("SESSION.REDIS_URL is required for the redis session backend")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Exam.DefaultCount <= 0 || c.Exam.RetrainCount <= 0 {
		return fmt.Errorf("exam counts must be positive (default=%d, retrain=%d)", c.Exam.DefaultCount, c.Exam.RetrainCount)
	}
	if c.Exam.DefaultCount > session.MaxCount || c.Exam.RetrainCount > session.MaxCount {
		return fmt.Errorf("exam counts must not exceed %d (default=%d, retrain=%d)", session.MaxCount, c.Exam.DefaultCount, c.Exam.RetrainCount)
	}
	if c.Auth.JWTSigningKey == "" {
		return fmt.Errorf("AUTH.JWT_SIGNING_KEY is empty")
	}
	if c.GinMode != "debug" && c.GinMode != "test" && c.Auth.JWTSigningKey == devSigningKey {
		return fmt.Errorf("AUTH.JWT_SIGNING_KEY must be changed from the development default in %s mode", c.GinMode)
	}
	if c.Data.ReloadInterval < 0 {
		return fmt.Errorf("DATA.RELOAD_INTERVAL must not be negative")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("AUTH.TOKEN_TTL must be positive")
	}
	return nil
}
