package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Polling       PollingConfig       `mapstructure:"polling"`
	Process       ProcessConfig       `mapstructure:"process"`
	Simulator     SimulatorConfig     `mapstructure:"simulator"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Demo          DemoConfig          `mapstructure:"demo"`
}

// Gateway modes.
const (
	GatewayModeHTTP = "http"
	GatewayModeMock = "mock"
)

type GatewayConfig struct {
	// Mode selects the HTTP client or the in-process mock gateway.
	Mode                    string        `mapstructure:"mode"`
	BaseURL                 string        `mapstructure:"base_url"`
	TerminalKey             string        `mapstructure:"terminal_key"`
	Timeout                 time.Duration `mapstructure:"timeout"`
	MaxAttempts             uint          `mapstructure:"max_attempts"`
	RetryDelay              time.Duration `mapstructure:"retry_delay"`
	CircuitBreakerThreshold int           `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit_breaker_timeout"`
}

type PollingConfig struct {
	RetriesCount uint          `mapstructure:"retries_count"`
	Delay        time.Duration `mapstructure:"delay"`
}

type ProcessConfig struct {
	// StrictTransitions panics on an internally produced invalid transition
	// instead of failing the attempt.
	StrictTransitions bool `mapstructure:"strict_transitions"`
	EventBuffer       int  `mapstructure:"event_buffer"`
}

type SimulatorConfig struct {
	Port                int           `mapstructure:"port"`
	PollsUntilConfirmed int           `mapstructure:"polls_until_confirmed"`
	ReadTimeout         time.Duration `mapstructure:"read_timeout"`
	WriteTimeout        time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout     time.Duration `mapstructure:"shutdown_timeout"`
	CORS                CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

type DemoConfig struct {
	AmountCents int64  `mapstructure:"amount_cents"`
	Currency    string `mapstructure:"currency"`
	OrderPrefix string `mapstructure:"order_prefix"`
	Email       string `mapstructure:"email"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables, e.g. ACQUIRING_GATEWAY_BASE_URL
	v.SetEnvPrefix("ACQUIRING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/acquiring")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Gateway.Mode != GatewayModeHTTP && c.Gateway.Mode != GatewayModeMock {
		errs = append(errs, fmt.Errorf("gateway.mode must be %q or %q, got %q", GatewayModeHTTP, GatewayModeMock, c.Gateway.Mode))
	}
	if u, err := url.Parse(c.Gateway.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("gateway.base_url must be an absolute URL, got %q", c.Gateway.BaseURL))
	}
	if c.Gateway.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.timeout must be positive"))
	}
	if c.Gateway.MaxAttempts == 0 {
		errs = append(errs, fmt.Errorf("gateway.max_attempts must be at least 1"))
	}
	if c.Gateway.CircuitBreakerThreshold <= 0 {
		errs = append(errs, fmt.Errorf("gateway.circuit_breaker_threshold must be positive"))
	}
	if c.Polling.Delay < 0 {
		errs = append(errs, fmt.Errorf("polling.delay must not be negative"))
	}
	if c.Process.EventBuffer <= 0 {
		errs = append(errs, fmt.Errorf("process.event_buffer must be positive"))
	}
	if c.Simulator.Port <= 0 || c.Simulator.Port > 65535 {
		errs = append(errs, fmt.Errorf("simulator.port must be between 1 and 65535, got %d", c.Simulator.Port))
	}
	if c.Simulator.PollsUntilConfirmed < 0 {
		errs = append(errs, fmt.Errorf("simulator.polls_until_confirmed must not be negative"))
	}
	if c.Demo.AmountCents <= 0 {
		errs = append(errs, fmt.Errorf("demo.amount_cents must be positive"))
	}
	if len(c.Demo.Currency) != 3 {
		errs = append(errs, fmt.Errorf("demo.currency must be a 3-letter ISO code"))
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Gateway.TerminalKey == "" {
			errs = append(errs, fmt.Errorf("gateway.terminal_key required in production"))
		}
		if c.Gateway.Mode == GatewayModeMock {
			errs = append(errs, fmt.Errorf("gateway.mode mock is not allowed in production"))
		}
		if c.Process.StrictTransitions {
			errs = append(errs, fmt.Errorf("process.strict_transitions must be off in production"))
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Gateway defaults
	v.SetDefault("gateway.mode", GatewayModeHTTP)
	v.SetDefault("gateway.base_url", "http://localhost:8081")
	v.SetDefault("gateway.terminal_key", "")
	v.SetDefault("gateway.timeout", "40s")
	v.SetDefault("gateway.max_attempts", 3)
	v.SetDefault("gateway.retry_delay", "500ms")
	v.SetDefault("gateway.circuit_breaker_threshold", 5)
	v.SetDefault("gateway.circuit_breaker_timeout", "30s")

	// Polling defaults
	v.SetDefault("polling.retries_count", 10)
	v.SetDefault("polling.delay", "3s")

	// Process defaults
	v.SetDefault("process.strict_transitions", false)
	v.SetDefault("process.event_buffer", 8)

	// Simulator defaults
	v.SetDefault("simulator.port", 8081)
	v.SetDefault("simulator.polls_until_confirmed", 2)
	v.SetDefault("simulator.read_timeout", "15s")
	v.SetDefault("simulator.write_timeout", "15s")
	v.SetDefault("simulator.shutdown_timeout", "10s")
	v.SetDefault("simulator.cors.allowed_origins", []string{"*"})
	v.SetDefault("simulator.cors.allow_credentials", false)

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	// Demo defaults
	v.SetDefault("demo.amount_cents", 150000)
	v.SetDefault("demo.currency", "RUB")
	v.SetDefault("demo.order_prefix", "demo")
	v.SetDefault("demo.email", "")
}

// Addr is the listen address of the gateway simulator.
func (c *SimulatorConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
