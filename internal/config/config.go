package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"alfredoptarigan/resume-ingest/internal/models"
	"alfredoptarigan/resume-ingest/internal/services"
)

type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Upload  UploadConfig
	Parse   ParseConfig
	Breaker BreakerConfig
	OCR     OCRConfig
	Vendor  VendorConfig
	Gemini  GeminiConfig
	Storage StorageConfig
	// Adapters holds the merged adapter table: defaults, then the YAML file,
	// then ADAPTER_<NAME>_* variables.
	Adapters []services.AdapterDescriptor
}

type ServerConfig struct {
	Port string
	Env  string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

type UploadConfig struct {
	MaxFileSize       int64
	AllowedMediaTypes []string
}

type ParseConfig struct {
	MinTextLength       int
	MaxRetries          int
	RetryDelay          time.Duration
	RetryBackoff        string
	ConfidenceThreshold float64
	Timeout             time.Duration
}

type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

type OCRConfig struct {
	Enabled        bool
	Language       string
	Whitelist      string
	DPI            int
	MaxConcurrency int
	TesseractBin   string
	PdftoppmBin    string
}

type VendorConfig struct {
	Enabled  bool
	Provider string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type StorageConfig struct {
	SpoolPath      string
	AdaptersConfig string
}

// Load reads .env (if any) and the process environment. A malformed adapter
// file is fatal.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	cfg := FromEnv()
	adapters, err := LoadAdapters(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to load adapter configuration: %v", err)
	}
	cfg.Adapters = adapters
	return cfg
}

// FromEnv builds the config from environment variables only.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Log: LogConfig{
			JSON:  getEnvAsBool("LOG_JSON", false),
			Debug: getEnvAsBool("LOG_DEBUG", false),
		},
		Upload: UploadConfig{
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 20971520),
			AllowedMediaTypes: getEnvAsList("ALLOWED_MEDIA_TYPES", []string{
				models.MediaTypePDF,
				models.MediaTypeDOCX,
				models.MediaTypeText,
			}),
		},
		Parse: ParseConfig{
			MinTextLength:       getEnvAsInt("MIN_TEXT_LENGTH", 50),
			MaxRetries:          getEnvAsInt("MAX_RETRIES", 3),
			RetryDelay:          getEnvAsDuration("RETRY_DELAY", "1s"),
			RetryBackoff:        getEnv("RETRY_BACKOFF", services.BackoffExponential),
			ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.1),
			Timeout:             getEnvAsDuration("PARSE_TIMEOUT", "90s"),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
			Cooldown:         getEnvAsDuration("BREAKER_COOLDOWN", "60s"),
		},
		OCR: OCRConfig{
			Enabled:        getEnvAsBool("OCR_ENABLED", true),
			Language:       getEnv("OCR_LANGUAGE", "eng"),
			Whitelist:      getEnv("OCR_WHITELIST", ""),
			DPI:            getEnvAsInt("OCR_DPI", 300),
			MaxConcurrency: getEnvAsInt("OCR_MAX_CONCURRENCY", 2),
			TesseractBin:   getEnv("TESSERACT_BIN", "tesseract"),
			PdftoppmBin:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
		},
		Vendor: VendorConfig{
			Enabled:  getEnvAsBool("VENDOR_ENABLED", false),
			Provider: getEnv("VENDOR_PROVIDER", services.VendorProviderHTTP),
			Endpoint: getEnv("VENDOR_ENDPOINT", ""),
			APIKey:   getEnv("VENDOR_API_KEY", ""),
			Timeout:  getEnvAsDuration("VENDOR_TIMEOUT", "15s"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Storage: StorageConfig{
			SpoolPath:      getEnv("SPOOL_PATH", ""),
			AdaptersConfig: getEnv("ADAPTERS_CONFIG", ""),
		},
		Adapters: services.DefaultAdapterDescriptors(),
	}
}

// Pipeline maps the config onto the services wiring.
func (c *Config) Pipeline() services.PipelineConfig {
	return services.PipelineConfig{
		Parser: services.ParserConfig{
			MaxFileSize:         c.Upload.MaxFileSize,
			AllowedMediaTypes:   c.Upload.AllowedMediaTypes,
			ConfidenceThreshold: c.Parse.ConfidenceThreshold,
			Timeout:             c.Parse.Timeout,
		},
		Orchestrator: services.OrchestratorConfig{
			MaxRetries:    c.Parse.MaxRetries,
			RetryDelay:    c.Parse.RetryDelay,
			Backoff:       c.Parse.RetryBackoff,
			MinTextLength: c.Parse.MinTextLength,
		},
		BreakerThreshold: c.Breaker.FailureThreshold,
		BreakerCooldown:  c.Breaker.Cooldown,
		OCR: services.OCRConfig{
			Tesseract:      c.OCR.TesseractBin,
			Pdftoppm:       c.OCR.PdftoppmBin,
			Language:       c.OCR.Language,
			Whitelist:      c.OCR.Whitelist,
			DPI:            c.OCR.DPI,
			MaxConcurrency: c.OCR.MaxConcurrency,
		},
		Vendor: services.VendorConfig{
			Provider:     c.Vendor.Provider,
			Endpoint:     c.Vendor.Endpoint,
			APIKey:       c.Vendor.APIKey,
			Timeout:      c.Vendor.Timeout,
			GeminiAPIKey: c.Gemini.APIKey,
			GeminiModel:  c.Gemini.Model,
		},
		SpoolPath: c.Storage.SpoolPath,
		Adapters:  c.Adapters,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = models.NormalizeMediaType(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
