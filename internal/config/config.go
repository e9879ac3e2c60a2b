package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port" env:"SERVER_PORT"`
		ShutdownTimeout string   `yaml:"shutdownTimeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
		AllowedOrigins  []string `yaml:"allowedOrigins" env:"SERVER_ALLOWED_ORIGINS" envSeparator:","`
		Pprof           bool     `yaml:"pprof" env:"SERVER_PPROF"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
		Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Quiz struct {
		// Source selects the question backend: static, postgres or llm.
		Source string `yaml:"source" env:"QUIZ_SOURCE"`
		TTL    string `yaml:"ttl" env:"QUIZ_TTL"`
		LLM    struct {
			URL      string `yaml:"url" env:"QUIZ_LLM_URL"`
			APIKey   string `yaml:"apiKey" env:"QUIZ_LLM_API_KEY"`
			Model    string `yaml:"model" env:"QUIZ_LLM_MODEL"`
			Language string `yaml:"language" env:"QUIZ_LLM_LANGUAGE"`
		} `yaml:"llm"`
	} `yaml:"quiz"`
	Game struct {
		MaxPlayers        int      `yaml:"maxPlayers" env:"GAME_MAX_PLAYERS"`
		MinPlayers        int      `yaml:"minPlayers" env:"GAME_MIN_PLAYERS"`
		Rounds            int      `yaml:"rounds" env:"GAME_ROUNDS"`
		RoundSeconds      int      `yaml:"roundSeconds" env:"GAME_ROUND_SECONDS"`
		StartGrace        string   `yaml:"startGrace" env:"GAME_START_GRACE"`
		GenerationTimeout string   `yaml:"generationTimeout" env:"GAME_GENERATION_TIMEOUT"`
		BasePoints        int      `yaml:"basePoints" env:"GAME_BASE_POINTS"`
		DecayPerSecond    float64  `yaml:"decayPerSecond" env:"GAME_DECAY_PER_SECOND"`
		MinPoints         int      `yaml:"minPoints" env:"GAME_MIN_POINTS"`
		Themes            []string `yaml:"themes" env:"GAME_THEMES" envSeparator:","`
	} `yaml:"game"`
	Telemetry struct {
		ServiceName  string `yaml:"serviceName" env:"OTEL_SERVICE_NAME"`
		OTLPEndpoint string `yaml:"otlpEndpoint" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	} `yaml:"telemetry"`
}

// Default returns the configuration used when neither file nor environment say otherwise.
func Default() Config {
	cfg := Config{}
	cfg.Server.ShutdownTimeout = "5s"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Redis.Prefix = "quizroom"
	cfg.Quiz.Source = "static"
	cfg.Telemetry.ServiceName = "quizroom-service"
	return cfg
}

// Load reads YAML config from path over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// LogLevel maps the configured level name to a slog level, defaulting to info.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
