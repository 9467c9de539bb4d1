package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Telegram TelegramConfig
	LLM      LLMConfig
	Storage  StorageConfig
	Sources  SourcesConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port       int
	MCPPort    int
	WebhookURL string
	// APIToken protects the bearer-auth'd REST endpoints.
	APIToken string
	// SelfPingURL, when set, is pinged periodically to keep a free-tier
	// host from idling the instance.
	SelfPingURL string
}

type TelegramConfig struct {
	BotToken string
	// UserID is the single whitelisted Telegram user. Updates from anyone
	// else are dropped before the pipeline runs.
	UserID int64
}

type LLMConfig struct {
	GroqAPIKey    string
	GroqBaseURL   string
	PrimaryModel  string
	FallbackModel string

	NvidiaAPIKey  string
	NvidiaBaseURL string
	NvidiaModel   string
}

type StorageConfig struct {
	DataDir  string
	Timezone string
}

type SourcesConfig struct {
	BraveAPIKey    string
	StockWatchlist string
	StockIndices   string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4000,
			MCPPort: 4001,
		},
		LLM: LLMConfig{
			GroqBaseURL:   "https://api.groq.com/openai/v1",
			PrimaryModel:  "moonshotai/kimi-k2-instruct-0905",
			FallbackModel: "llama-3.3-70b-versatile",
			NvidiaBaseURL: "https://integrate.api.nvidia.com/v1",
			NvidiaModel:   "deepseek-ai/deepseek-r1",
		},
		Storage: StorageConfig{
			DataDir:  defaultDataDir(),
			Timezone: "Asia/Jerusalem",
		},
		Sources: SourcesConfig{
			StockWatchlist: "AMZN,PLTR,GOOGL,NVDA,MSFT,META,AAPL",
			StockIndices:   "^GSPC,^IXIC,^TA125.TA",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".adjutant"
	}
	return filepath.Join(home, ".adjutant")
}

// Load reads configuration from a .env file (if present) and ADJUTANT_*
// environment variables. Environment variables win over .env values, which
// win over defaults.
func Load() (Config, error) {
	// godotenv never overrides variables already set in the environment.
	_ = godotenv.Load()
	return loadWith(os.Getenv)
}

// loadWith is the test seam: lookup stands in for os.Getenv.
func loadWith(lookup func(string) string) (Config, error) {
	cfg := defaults()
	applyEnv(&cfg, lookup)

	if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		return Config{}, fmt.Errorf("missing required config: Telegram bot token (set ADJUTANT_TELEGRAM_BOT_TOKEN)")
	}
	if cfg.Telegram.UserID == 0 {
		return Config{}, fmt.Errorf("missing required config: Telegram user ID (set ADJUTANT_TELEGRAM_USER_ID)")
	}
	if strings.TrimSpace(cfg.LLM.GroqAPIKey) == "" {
		return Config{}, fmt.Errorf("missing required config: Groq API key (set ADJUTANT_GROQ_API_KEY)")
	}

	return cfg, nil
}

type keySpec struct {
	env   string
	apply func(cfg *Config, raw string)
}

func stringKey(env string, set func(*Config, string)) keySpec {
	return keySpec{env: env, apply: set}
}

func intKey(env string, set func(*Config, int)) keySpec {
	return keySpec{env: env, apply: func(cfg *Config, raw string) {
		if i, err := strconv.Atoi(raw); err == nil {
			set(cfg, i)
		} else {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", env, raw, err)
		}
	}}
}

func int64Key(env string, set func(*Config, int64)) keySpec {
	return keySpec{env: env, apply: func(cfg *Config, raw string) {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			set(cfg, i)
		} else {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", env, raw, err)
		}
	}}
}

var specs = []keySpec{
	intKey("ADJUTANT_SERVER_PORT", func(c *Config, v int) { c.Server.Port = v }),
	intKey("ADJUTANT_SERVER_MCP_PORT", func(c *Config, v int) { c.Server.MCPPort = v }),
	stringKey("ADJUTANT_WEBHOOK_URL", func(c *Config, v string) { c.Server.WebhookURL = v }),
	stringKey("ADJUTANT_API_TOKEN", func(c *Config, v string) { c.Server.APIToken = v }),
	stringKey("ADJUTANT_SELF_PING_URL", func(c *Config, v string) { c.Server.SelfPingURL = v }),
	stringKey("ADJUTANT_TELEGRAM_BOT_TOKEN", func(c *Config, v string) { c.Telegram.BotToken = v }),
	int64Key("ADJUTANT_TELEGRAM_USER_ID", func(c *Config, v int64) { c.Telegram.UserID = v }),
	stringKey("ADJUTANT_GROQ_API_KEY", func(c *Config, v string) { c.LLM.GroqAPIKey = v }),
	stringKey("ADJUTANT_GROQ_BASE_URL", func(c *Config, v string) { c.LLM.GroqBaseURL = v }),
	stringKey("ADJUTANT_PRIMARY_MODEL", func(c *Config, v string) { c.LLM.PrimaryModel = v }),
	stringKey("ADJUTANT_FALLBACK_MODEL", func(c *Config, v string) { c.LLM.FallbackModel = v }),
	stringKey("ADJUTANT_NVIDIA_API_KEY", func(c *Config, v string) { c.LLM.NvidiaAPIKey = v }),
	stringKey("ADJUTANT_NVIDIA_BASE_URL", func(c *Config, v string) { c.LLM.NvidiaBaseURL = v }),
	stringKey("ADJUTANT_NVIDIA_MODEL", func(c *Config, v string) { c.LLM.NvidiaModel = v }),
	stringKey("ADJUTANT_STORAGE_DATA_DIR", func(c *Config, v string) { c.Storage.DataDir = v }),
	stringKey("ADJUTANT_TIMEZONE", func(c *Config, v string) { c.Storage.Timezone = v }),
	stringKey("ADJUTANT_BRAVE_API_KEY", func(c *Config, v string) { c.Sources.BraveAPIKey = v }),
	stringKey("ADJUTANT_STOCK_WATCHLIST", func(c *Config, v string) { c.Sources.StockWatchlist = v }),
	stringKey("ADJUTANT_STOCK_INDICES", func(c *Config, v string) { c.Sources.StockIndices = v }),
	stringKey("ADJUTANT_LOG_LEVEL", func(c *Config, v string) { c.Log.Level = v }),
}

func applyEnv(cfg *Config, lookup func(string) string) {
	for _, s := range specs {
		raw := lookup(s.env)
		if raw == "" {
			continue
		}
		s.apply(cfg, raw)
	}
}
