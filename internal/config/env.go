package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	SslCertPath string `env:"SSL_CERT_PATH"`
	Port        string `env:"PORT" envDefault:"8080"`

	// PublicAPIKey is the bearer token browsers and the terminal client send
	// to the streaming completion endpoint.
	PublicAPIKey string `env:"PUBLIC_API_KEY"`
	JWTSecret    string `env:"JWT_SECRET"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"false"`

	// RateLimitRPS throttles form posts and the assistant per client IP; 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	LogLevel  string   `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool     `env:"LOG_PRETTY" envDefault:"false"`
	Origins   []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`

	AwsAccessKey string `env:"AWS_ACCESS_KEY"`
	AwsSecretKey string `env:"AWS_SECRET_KEY"`
	AwsRegion    string `env:"AWS_REGION" envDefault:"us-east-2"`
	BucketName   string `env:"BUCKET_NAME" envDefault:"shopvora-media"`

	AIAPIKey     string `env:"GEMINI_API_KEY"`
	EmbedModel   string `env:"EMBED_MODEL" envDefault:"text-embedding-004"`
	EmbedDim     int    `env:"EMBED_DIM" envDefault:"768"`
	GenModel     string `env:"GEN_MODEL" envDefault:"gemini-1.5-flash"`
	IndexWorkers int    `env:"INDEX_WORKERS" envDefault:"2"`
}

// MediaEnabled reports whether S3 credentials were provided.
func (c *Config) MediaEnabled() bool {
	return c.AwsAccessKey != "" && c.AwsSecretKey != ""
}

// AssistantEnabled reports whether a Gemini key was provided.
func (c *Config) AssistantEnabled() bool {
	return c.AIAPIKey != ""
}

// LoadConfig loads the environment variables (and .env, when present) and returns config
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET not set")
	}
	if c.IndexWorkers < 1 {
		c.IndexWorkers = 1
	}
	return nil
}

// ClientConfig is what the terminal client needs to reach a running site.
type ClientConfig struct {
	BaseURL     string `env:"SHOPVORA_URL" envDefault:"http://localhost:8080"`
	APIKey      string `env:"SHOPVORA_API_KEY"`
	SessionFile string `env:"SHOPVORA_SESSION_FILE"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"warn"`
}

// LoadClientConfig reads the client settings from the environment.
func LoadClientConfig() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}
