package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "WAYFARER"

	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultWebAddress     = "0.0.0.0:8501"
	defaultDatabaseDSN    = "wayfarer.db"
	defaultLogLevel       = "info"
	defaultLogDir         = "logs"
	defaultEnvironment    = "development"
	defaultGeminiModel    = "googleai/gemini-2.0-flash"
	defaultEmbedderModel  = "text-embedding-004"
	defaultAPIBaseURL     = "http://localhost:8080/api/v1"
	defaultGeocodeBaseURL = "https://nominatim.openstreetmap.org"
	defaultWeatherBaseURL = "https://api.open-meteo.com"

	defaultCRUDRequestsPerHour = 100
	defaultAIRequestsPerHour   = 50
)

// AppConfig captures runtime configuration shared by the API and web servers.
type AppConfig struct {
	HTTPAddress string
	WebAddress  string
	DatabaseDSN string
	LogLevel    string
	LogDir      string
	Environment string

	GeminiAPIKey  string
	GeminiModel   string
	EmbedderModel string

	WeatherBaseURL string
	GeocodeBaseURL string

	APIBaseURL string

	CRUDRequestsPerHour int
	AIRequestsPerHour   int
	RateLimitWindow     time.Duration
	TrustProxyHeaders   bool
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("web.address", defaultWebAddress)
	configViper.SetDefault("web.api_base_url", defaultAPIBaseURL)
	configViper.SetDefault("database.dsn", defaultDatabaseDSN)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.dir", defaultLogDir)
	configViper.SetDefault("environment", defaultEnvironment)
	configViper.SetDefault("gemini.model", defaultGeminiModel)
	configViper.SetDefault("gemini.embedder", defaultEmbedderModel)
	configViper.SetDefault("weather.base_url", defaultWeatherBaseURL)
	configViper.SetDefault("geocode.base_url", defaultGeocodeBaseURL)
	configViper.SetDefault("ratelimit.crud_per_hour", defaultCRUDRequestsPerHour)
	configViper.SetDefault("ratelimit.ai_per_hour", defaultAIRequestsPerHour)
	configViper.SetDefault("ratelimit.window_seconds", 3600)
	configViper.SetDefault("ratelimit.trust_proxy", false)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:         configViper.GetString("http.address"),
		WebAddress:          configViper.GetString("web.address"),
		APIBaseURL:          configViper.GetString("web.api_base_url"),
		DatabaseDSN:         configViper.GetString("database.dsn"),
		LogLevel:            configViper.GetString("log.level"),
		LogDir:              configViper.GetString("log.dir"),
		Environment:         configViper.GetString("environment"),
		GeminiAPIKey:        configViper.GetString("gemini.api_key"),
		GeminiModel:         configViper.GetString("gemini.model"),
		EmbedderModel:       configViper.GetString("gemini.embedder"),
		WeatherBaseURL:      configViper.GetString("weather.base_url"),
		GeocodeBaseURL:      configViper.GetString("geocode.base_url"),
		CRUDRequestsPerHour: configViper.GetInt("ratelimit.crud_per_hour"),
		AIRequestsPerHour:   configViper.GetInt("ratelimit.ai_per_hour"),
		RateLimitWindow:     time.Duration(configViper.GetInt("ratelimit.window_seconds")) * time.Second,
		TrustProxyHeaders:   configViper.GetBool("ratelimit.trust_proxy"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.CRUDRequestsPerHour <= 0 {
		return fmt.Errorf("ratelimit.crud_per_hour must be positive")
	}
	if c.AIRequestsPerHour <= 0 {
		return fmt.Errorf("ratelimit.ai_per_hour must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("ratelimit.window_seconds must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}
