package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/usecase"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// Lemma normalizer configuration (optional)
	Lemma LemmaConfig

	// Streak configuration
	Streak StreakConfig

	// Detection configuration (loaded from YAML)
	Detection *DetectionConfig

	// HTTP API configuration
	API APIConfig

	// Debug mode
	Debug bool
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
	BotName   string // Bot name, stripped from command mentions
}

// LemmaConfig contains the remote lemma normalizer configuration.
// An empty APIKey selects the built-in dictionary normalizer.
type LemmaConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// StreakConfig contains streak tracking configuration
type StreakConfig struct {
	DBPath           string
	RuleCacheMinutes int
	PatternCacheSize int
	UndoMax          int
}

// APIConfig contains HTTP API configuration
type APIConfig struct {
	Port int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Streak DB path
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".gigachat-bot", "streaks.db")
	}

	// Rule cache TTL
	ruleCacheMin := 5
	if val := os.Getenv("RULE_CACHE_TTL_MINUTES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			ruleCacheMin = parsed
		}
	}

	// Compiled pattern cache size
	patternCacheSize := 256
	if val := os.Getenv("PATTERN_CACHE_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			patternCacheSize = parsed
		}
	}

	// Undo cap
	undoMax := 10
	if val := os.Getenv("UNDO_MAX"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			undoMax = parsed
		}
	}

	// HTTP API port
	apiPort := 8090
	if val := os.Getenv("API_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			apiPort = parsed
		}
	}

	// Load detection tables from YAML
	detection, _ := LoadDetectionConfig(os.Getenv("DETECTION_CONFIG_PATH"))

	return &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
			BotName:   os.Getenv("BOT_NAME"),
		},
		Lemma: LemmaConfig{
			APIKey:  os.Getenv("LEMMA_API_KEY"),
			BaseURL: os.Getenv("LEMMA_BASE_URL"),
			Model:   os.Getenv("LEMMA_MODEL"),
		},
		Streak: StreakConfig{
			DBPath:           dbPath,
			RuleCacheMinutes: ruleCacheMin,
			PatternCacheSize: patternCacheSize,
			UndoMax:          undoMax,
		},
		Detection: detection,
		API: APIConfig{
			Port: apiPort,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// RuleCacheTTL converts the configured TTL to a duration
func (c *StreakConfig) RuleCacheTTL() time.Duration {
	return time.Duration(c.RuleCacheMinutes) * time.Minute
}

// ToVariantTables converts the detection config to pattern generator tables
func (c *Config) ToVariantTables() usecase.VariantTables {
	if c.Detection == nil {
		return usecase.VariantTables{}
	}
	return c.Detection.ToVariantTables()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	if c.Streak.UndoMax < 1 {
		return &ConfigError{Field: "UNDO_MAX", Message: "must be at least 1"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
