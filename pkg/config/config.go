package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	envHomeserver      = "MATRIX_HOMESERVER"
	envUserID          = "MATRIX_USER_ID"
	envPassword        = "MATRIX_PASSWORD"
	envStorePath       = "STORE_PATH"
	envPickleKey       = "PICKLE_KEY"
	envWhisperProvider = "WHISPER_PROVIDER"
	envWhisperModel    = "WHISPER_MODEL"
	envWhisperLanguage = "WHISPER_LANGUAGE"
	envWhisperModelDir = "WHISPER_MODEL_DIR"
	envWhisperURL      = "WHISPER_URL"
	envWhisperWorkers  = "WHISPER_WORKERS"
)

// Provider identifiers accepted in whisper.provider.
const (
	ProviderLocal = "local"
	ProviderAPI   = "api"
)

// Config is the root runtime configuration loaded from config.json plus
// environment overrides.
type Config struct {
	Matrix  MatrixConfig  `json:"matrix"`
	Whisper WhisperConfig `json:"whisper"`
	Logging LoggingConfig `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// MatrixConfig holds homeserver connection and session-store settings.
type MatrixConfig struct {
	Homeserver string `json:"homeserver"`
	UserID     string `json:"user_id"`
	Password   string `json:"password"`
	StorePath  string `json:"store_path"`
	PickleKey  string `json:"pickle_key,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
}

// WhisperConfig selects and configures the transcription backend.
//
// Provider "local" runs whisper.cpp in-process and requires a ggml model
// under ModelDir. Provider "api" posts audio to an OpenAI-compatible
// transcription endpoint at URL.
type WhisperConfig struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	Language       string `json:"language"`
	ModelDir       string `json:"model_dir"`
	URL            string `json:"url,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
}

// LoadConfig resolves config.json if one exists, unmarshals it, and applies
// environment overrides on top. A missing config file is not an error: the
// bot can run entirely from environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Validate reports missing required settings. A validation failure is fatal
// at startup; it is never a per-message condition.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Matrix.Homeserver) == "" {
		missing = append(missing, envHomeserver)
	}
	if strings.TrimSpace(c.Matrix.UserID) == "" {
		missing = append(missing, envUserID)
	}
	if strings.TrimSpace(c.Matrix.Password) == "" {
		missing = append(missing, envPassword)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}

	switch c.Whisper.Provider {
	case ProviderLocal:
		if strings.TrimSpace(c.Whisper.ModelDir) == "" {
			return errors.New("whisper.model_dir is required for the local provider")
		}
	case ProviderAPI:
		if strings.TrimSpace(c.Whisper.URL) == "" {
			return errors.New("whisper.url is required for the api provider")
		}
	default:
		return fmt.Errorf("unsupported whisper provider: %s", c.Whisper.Provider)
	}

	if c.Whisper.Workers < 1 {
		return errors.New("whisper.workers must be at least 1")
	}

	return nil
}

func defaults() *Config {
	return &Config{
		Matrix: MatrixConfig{
			StorePath:  "/app/store",
			PickleKey:  "transcriptbot",
			DeviceName: "transcriptbot",
		},
		Whisper: WhisperConfig{
			Provider:       ProviderLocal,
			Model:          "large-v3",
			Language:       "es",
			ModelDir:       "/app/models",
			TimeoutSeconds: 300,
			Workers:        1,
			QueueSize:      8,
		},
	}
}

// applyEnvOverrides injects env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	overrideString(&cfg.Matrix.Homeserver, envHomeserver)
	overrideString(&cfg.Matrix.UserID, envUserID)
	overrideString(&cfg.Matrix.Password, envPassword)
	overrideString(&cfg.Matrix.StorePath, envStorePath)
	overrideString(&cfg.Matrix.PickleKey, envPickleKey)
	overrideString(&cfg.Whisper.Provider, envWhisperProvider)
	overrideString(&cfg.Whisper.Model, envWhisperModel)
	overrideString(&cfg.Whisper.Language, envWhisperLanguage)
	overrideString(&cfg.Whisper.ModelDir, envWhisperModelDir)
	overrideString(&cfg.Whisper.URL, envWhisperURL)

	if raw := strings.TrimSpace(os.Getenv(envWhisperWorkers)); raw != "" {
		if workers, err := strconv.Atoi(raw); err == nil && workers > 0 {
			cfg.Whisper.Workers = workers
		}
	}
}

func overrideString(target *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is TRANSCRIPTBOT_CONFIG first, then cwd-local fallback paths.
// An empty return with nil error means no config file is in play.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("TRANSCRIPTBOT_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("TRANSCRIPTBOT_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
