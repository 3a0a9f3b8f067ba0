package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported inference providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	DatabaseAutoMigrate bool
	RedisURL            string
	NATSURL             string
	EventsChannel       string

	StorageDriver         string
	StorageBucket         string
	S3Endpoint            string
	S3Prefix              string
	S3Region              string
	S3AccessKeyID         string
	S3SecretAccessKey     string
	S3ForcePathStyle      bool
	AzureConnectionString string
	AzureServiceURL       string
	CloudinaryCloudName   string
	CloudinaryAPIKey      string
	CloudinaryAPISecret   string
	CloudinaryFolder      string
	LocalStorageRoot      string
	MaxFileSizeMB         int
	ValidationRateLimit   int
	ValidationRateWindow  time.Duration

	AIProvider       string
	AIModel          string
	AIMaxTokens      int
	AITimeout        time.Duration
	AnthropicAPIKey  string
	AnthropicBaseURL string
	OpenAIAPIKey     string
	GeminiAPIKey     string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// LockTTL bounds how long a crashed run can hold a material.
func (c Config) LockTTL() time.Duration {
	return c.AITimeout + 30*time.Second
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PROOF")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Proof API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("events.channel", "proof")
	v.SetDefault("storage.driver", "s3")
	v.SetDefault("storage.bucket", "validation-materials")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.force_path_style", true)
	v.SetDefault("cloudinary.folder", "validation-materials")
	v.SetDefault("local.storage_root", "./data/materials")
	v.SetDefault("max_file_size_mb", 20)
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("ai.provider", ProviderAnthropic)
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.timeout", "60s")

	// The edge deployment exposes the Anthropic key without the prefix.
	if err := v.BindEnv("anthropic.api_key", "PROOF_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind anthropic api key: %w", err)
	}

	aiTimeout, err := parseDuration(v, "ai.timeout", 60*time.Second)
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "rate_limit.window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		DatabaseURL:           v.GetString("database.url"),
		DatabaseAutoMigrate:   v.GetBool("database.auto_migrate"),
		RedisURL:              v.GetString("redis.url"),
		NATSURL:               v.GetString("nats.url"),
		EventsChannel:         v.GetString("events.channel"),
		StorageDriver:         strings.ToLower(v.GetString("storage.driver")),
		StorageBucket:         v.GetString("storage.bucket"),
		S3Endpoint:            v.GetString("s3.endpoint"),
		S3Prefix:              v.GetString("s3.prefix"),
		S3Region:              v.GetString("s3.region"),
		S3AccessKeyID:         v.GetString("s3.access_key_id"),
		S3SecretAccessKey:     v.GetString("s3.secret_access_key"),
		S3ForcePathStyle:      v.GetBool("s3.force_path_style"),
		AzureConnectionString: v.GetString("azure.connection_string"),
		AzureServiceURL:       v.GetString("azure.service_url"),
		CloudinaryCloudName:   v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:      v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:   v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:      v.GetString("cloudinary.folder"),
		LocalStorageRoot:      v.GetString("local.storage_root"),
		MaxFileSizeMB:         v.GetInt("max_file_size_mb"),
		ValidationRateLimit:   v.GetInt("rate_limit.max"),
		ValidationRateWindow:  rateWindow,
		AIProvider:            strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		AIModel:               v.GetString("ai.model"),
		AIMaxTokens:           v.GetInt("ai.max_tokens"),
		AITimeout:             aiTimeout,
		AnthropicAPIKey:       v.GetString("anthropic.api_key"),
		AnthropicBaseURL:      v.GetString("anthropic.base_url"),
		OpenAIAPIKey:          v.GetString("openai.api_key"),
		GeminiAPIKey:          v.GetString("gemini.api_key"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	switch cfg.AIProvider {
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return Config{}, fmt.Errorf("anthropic api key must be provided")
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("openai api key must be provided")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return Config{}, fmt.Errorf("gemini api key must be provided")
		}
	default:
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}

	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 20
	}
	if cfg.AIMaxTokens <= 0 {
		cfg.AIMaxTokens = 1024
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return fallback, nil
	}
	return parsed, nil
}
