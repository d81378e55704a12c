package common

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joseph-ayodele/receiptbox/constants"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	OCR      OCRConfig      `mapstructure:"ocr" yaml:"ocr"`
	Sheets   SheetsConfig   `mapstructure:"sheets" yaml:"sheets"`
	Billing  BillingConfig  `mapstructure:"billing" yaml:"billing"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// DatabaseConfig selects the receipt store. Driver is postgres, sqlite or bolt.
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver" yaml:"driver"`
	DSN              string        `mapstructure:"dsn" yaml:"dsn"`
	BoltPath         string        `mapstructure:"bolt_path" yaml:"bolt_path"`
	MaxConns         int32         `mapstructure:"max_conns" yaml:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns" yaml:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time" yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout" yaml:"statement_timeout"`
}

type ServerConfig struct {
	GRPCAddr string `mapstructure:"grpc_addr" yaml:"grpc_addr"`
}

// StorageConfig selects where uploaded images live. Driver is local or gcs.
type StorageConfig struct {
	Driver        string `mapstructure:"driver" yaml:"driver"`
	LocalDir      string `mapstructure:"local_dir" yaml:"local_dir"`
	Bucket        string `mapstructure:"bucket" yaml:"bucket"`
	PublicBaseURL string `mapstructure:"public_base_url" yaml:"public_base_url"`
}

type OCRConfig struct {
	Provider        string        `mapstructure:"provider" yaml:"provider"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	VisionAPIKey    string        `mapstructure:"vision_api_key" yaml:"vision_api_key"`
	CredentialsFile string        `mapstructure:"credentials_file" yaml:"credentials_file"`
	Tesseract       string        `mapstructure:"tesseract" yaml:"tesseract"`
	TesseractLang   string        `mapstructure:"tesseract_lang" yaml:"tesseract_lang"`
	TessdataDir     string        `mapstructure:"tessdata_dir" yaml:"tessdata_dir"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	GeminiModel     string        `mapstructure:"gemini_model" yaml:"gemini_model"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	OpenAIModel     string        `mapstructure:"openai_model" yaml:"openai_model"`
	OpenAIBaseURL   string        `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	CategoryTable   string        `mapstructure:"category_table" yaml:"category_table"`
}

type SheetsConfig struct {
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	XLSXDir      string `mapstructure:"xlsx_dir" yaml:"xlsx_dir"`
}

type BillingConfig struct {
	DefaultPlan    string        `mapstructure:"default_plan" yaml:"default_plan"`
	PlanCacheTTL   time.Duration `mapstructure:"plan_cache_ttl" yaml:"plan_cache_ttl"`
	ScansPerMinute float64       `mapstructure:"scans_per_minute" yaml:"scans_per_minute"`
	ScanBurst      int           `mapstructure:"scan_burst" yaml:"scan_burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// legacy environment names that predate the RECEIPTBOX_ prefix
var envAliases = map[string][]string{
	"database.dsn":         {"DB_URL"},
	"server.grpc_addr":     {"GRPC_ADDR"},
	"ocr.tessdata_dir":     {"TESSDATA_PREFIX"},
	"ocr.vision_api_key":   {"GOOGLE_VISION_API_KEY"},
	"ocr.credentials_file": {"GOOGLE_APPLICATION_CREDENTIALS"},
	"ocr.gemini_api_key":   {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"ocr.openai_api_key":   {"OPENAI_API_KEY"},
	"ocr.openai_model":     {"OPENAI_MODEL"},
	"sheets.client_id":     {"GOOGLE_CLIENT_ID"},
	"sheets.client_secret": {"GOOGLE_CLIENT_SECRET"},
	"storage.bucket":       {"GCS_BUCKET"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:receiptbox.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	v.SetDefault("database.bolt_path", "receiptbox.bolt")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", time.Duration(0))

	v.SetDefault("server.grpc_addr", ":8080")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "./data/images")

	v.SetDefault("ocr.provider", constants.ProviderVision)
	v.SetDefault("ocr.timeout", 30*time.Second)
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.tesseract_lang", "eng")
	v.SetDefault("ocr.gemini_model", "gemini-2.5-flash")
	v.SetDefault("ocr.openai_model", "gpt-4o-mini")

	v.SetDefault("sheets.xlsx_dir", "./data/sheets")

	v.SetDefault("billing.default_plan", string(constants.PlanFree))
	v.SetDefault("billing.plan_cache_ttl", 5*time.Minute)
	v.SetDefault("billing.scans_per_minute", 10.0)
	v.SetDefault("billing.scan_burst", 5)

	v.SetDefault("log.level", "info")
}

// LoadConfig resolves defaults, an optional YAML file and the environment, in that order.
// An empty path looks for ./receiptbox.yaml and tolerates its absence.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RECEIPTBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		args := append([]string{key, "RECEIPTBOX_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("receiptbox")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, NewAppError("CONFIG_ERROR", "read config file", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "decode config", err)
	}
	return &cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
		}
	case "bolt":
		if c.Database.BoltPath == "" {
			return NewAppError("CONFIG_ERROR", "database.bolt_path is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown database.driver %q", c.Database.Driver), ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Storage.Driver == "gcs" && c.Storage.Bucket == "" {
		return NewAppError("CONFIG_ERROR", "storage.bucket is required for gcs", ErrInvalidInput)
	}
	switch c.OCR.Provider {
	case constants.ProviderVision:
		if c.OCR.VisionAPIKey == "" && c.OCR.CredentialsFile == "" {
			return NewAppError("CONFIG_ERROR", "GOOGLE_VISION_API_KEY or GOOGLE_APPLICATION_CREDENTIALS is required", ErrInvalidInput)
		}
	case constants.ProviderGemini:
		if c.OCR.GeminiAPIKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	case constants.ProviderOpenAI:
		if c.OCR.OpenAIAPIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	case constants.ProviderTesseract:
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown ocr.provider %q", c.OCR.Provider), ErrInvalidInput)
	}
	return nil
}

// SlogLevel maps log.level onto slog, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
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
