package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config is the root configuration for the chatbot.
type Config struct {
	General   GeneralConfig             `json:"general"`
	Providers map[string]ProviderConfig `json:"providers"`
	Router    RouterConfig              `json:"router"`
	Channels  ChannelsConfig            `json:"channels"`
	Documents DocumentsConfig           `json:"documents"`
	Emotion   EmotionConfig             `json:"emotion"`
	Animal    AnimalConfig              `json:"animal"`
	Storage   StorageConfig             `json:"storage"`
	Metrics   MetricsConfig             `json:"metrics"`
}

type GeneralConfig struct {
	DataDir         string   `json:"dataDir"`
	LogLevel        string   `json:"logLevel"`
	LogFile         string   `json:"logFile,omitempty"`
	DefaultProvider string   `json:"defaultProvider"`
	FailoverChain   []string `json:"failoverChain,omitempty"` // provider failover order
}

type ProviderConfig struct {
	Enabled      bool   `json:"enabled"`
	APIBase      string `json:"apiBase,omitempty"`
	APIKey       string `json:"apiKey,omitempty"`
	DefaultModel string `json:"defaultModel,omitempty"`
}

// RouterConfig tunes the flow classifier.
type RouterConfig struct {
	// OverflowFlow is the flow used when the token estimate exceeds the
	// budget and no model call is made: "HELP" (default) or "EMOTION".
	OverflowFlow string `json:"overflowFlow"`
}

type ChannelsConfig struct {
	Web      WebConfig      `json:"web"`
	CLI      CLIConfig      `json:"cli"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord,omitempty"`
}

type WebConfig struct {
	Enabled        bool     `json:"enabled"`
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
	StaticDir      string   `json:"staticDir,omitempty"` // overrides the embedded assets
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

type TelegramConfig struct {
	Enabled   bool           `json:"enabled"`
	Token     string         `json:"token"`
	AllowFrom FlexStringList `json:"allowFrom"`
	ParseMode string         `json:"parseMode"`
}

type DiscordConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	GuildID string `json:"guildId,omitempty"` // optional: restrict to specific guild
}

// FlexStringList is a []string that can unmarshal from JSON arrays containing
// both strings and numbers (e.g. ["123", 456] both become "123", "456").
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	// Fallback: array of mixed types
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

// DocumentsConfig configures ingestion and retrieval over the document index.
type DocumentsConfig struct {
	Dir           string   `json:"dir"`
	Include       []string `json:"include,omitempty"` // doublestar glob patterns
	Exclude       []string `json:"exclude,omitempty"`
	ChunkSize     int      `json:"chunkSize"`    // characters per chunk
	ChunkOverlap  int      `json:"chunkOverlap"` // characters shared with the previous chunk
	SearchTopK    int      `json:"searchTopK"`
	Collection    string   `json:"collection"`
	StoragePath   string   `json:"storagePath,omitempty"` // vector store directory
	EmbedderURL   string   `json:"embedderUrl"`
	EmbedderModel string   `json:"embedderModel"`
}

type EmotionConfig struct {
	HistoryWindow int    `json:"historyWindow"`       // exchanges kept for conversational context
	EmojiFile     string `json:"emojiFile,omitempty"` // YAML mood→emoji table, optional
}

type AnimalConfig struct {
	HTTPTimeoutSeconds int `json:"httpTimeoutSeconds"`
	PhotoRetries       int `json:"photoRetries"` // attempts to find an allowed image extension
}

type StorageConfig struct {
	CounterFile string `json:"counterFile"`
	ChatLogFile string `json:"chatLogFile"`
	AuditDB     string `json:"auditDb"`
	AuditLog    bool   `json:"auditLog"`
}

// MetricsConfig configures the observability / Prometheus metrics.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.chatbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatbot"
	}
	return filepath.Join(home, ".chatbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Documents.Dir = ExpandPath(cfg.Documents.Dir)
	cfg.Documents.StoragePath = ExpandPath(cfg.Documents.StoragePath)
	cfg.Emotion.EmojiFile = ExpandPath(cfg.Emotion.EmojiFile)
	cfg.Storage.CounterFile = ExpandPath(cfg.Storage.CounterFile)
	cfg.Storage.ChatLogFile = ExpandPath(cfg.Storage.ChatLogFile)
	cfg.Storage.AuditDB = ExpandPath(cfg.Storage.AuditDB)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.Router.OverflowFlow {
	case "", "HELP", "EMOTION":
		// valid
	default:
		errs = append(errs, "router.overflowFlow must be one of: HELP, EMOTION")
	}

	if cfg.Channels.Web.Port < 0 || cfg.Channels.Web.Port > 65535 {
		errs = append(errs, "channels.web.port must be between 0 and 65535")
	}

	if cfg.Documents.ChunkSize < 1 {
		errs = append(errs, "documents.chunkSize must be >= 1")
	}
	if cfg.Documents.ChunkOverlap < 0 || cfg.Documents.ChunkOverlap >= cfg.Documents.ChunkSize {
		errs = append(errs, "documents.chunkOverlap must be >= 0 and smaller than chunkSize")
	}
	if cfg.Documents.SearchTopK < 1 {
		errs = append(errs, "documents.searchTopK must be >= 1")
	}
	if cfg.Documents.Collection == "" {
		errs = append(errs, "documents.collection must not be empty")
	}

	if cfg.Emotion.HistoryWindow < 1 {
		errs = append(errs, "emotion.historyWindow must be >= 1")
	}
	if cfg.Animal.HTTPTimeoutSeconds < 1 {
		errs = append(errs, "animal.httpTimeoutSeconds must be >= 1")
	}
	if cfg.Animal.PhotoRetries < 1 {
		errs = append(errs, "animal.photoRetries must be >= 1")
	}

	// Validate failover chain references exist in providers.
	for _, provName := range cfg.General.FailoverChain {
		if _, ok := cfg.Providers[provName]; !ok {
			errs = append(errs, fmt.Sprintf("general.failoverChain references unknown provider: %s", provName))
		}
	}

	// Validate provider configs. openai and gemini carry built-in API
	// bases, anything else must say where it lives.
	for name, pc := range cfg.Providers {
		if pc.Enabled && pc.APIBase == "" && name != "openai" && name != "gemini" {
			errs = append(errs, fmt.Sprintf("providers.%s: apiBase is required", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
