package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cart     CartConfig     `mapstructure:"cart"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	PayPal   PayPalConfig   `mapstructure:"paypal"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      float64  `mapstructure:"rate_limit"`
	RateBurst      int      `mapstructure:"rate_burst"`
	TrustProxy     bool     `mapstructure:"trust_proxy"`
}

type BackendConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	AuthScheme        string        `mapstructure:"auth_scheme"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

type RealtimeConfig struct {
	Addr           string        `mapstructure:"addr"`
	Username       string        `mapstructure:"username"`
	Channel        string        `mapstructure:"channel"`
	AuthPath       string        `mapstructure:"auth_path"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Path      string `mapstructure:"path"`
	DSN       string `mapstructure:"dsn"`
	RedisAddr string `mapstructure:"redis_addr"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type CartConfig struct {
	ExpiryDelay time.Duration `mapstructure:"expiry_delay"`
}

type ShippingTier struct {
	ID    string `mapstructure:"id"`
	Label string `mapstructure:"label"`
	Cost  string `mapstructure:"cost"`
}

type CheckoutConfig struct {
	TaxRate       string         `mapstructure:"tax_rate"`
	Currency      string         `mapstructure:"currency"`
	ShippingTiers []ShippingTier `mapstructure:"shipping_tiers"`
}

type PayPalConfig struct {
	ClientID  string `mapstructure:"client_id"`
	Secret    string `mapstructure:"secret"`
	BaseURL   string `mapstructure:"base_url"`
	ReturnURL string `mapstructure:"return_url"`
	CancelURL string `mapstructure:"cancel_url"`
	BrandName string `mapstructure:"brand_name"`
}

type AlertsConfig struct {
	From         string `mapstructure:"from"`
	To           string `mapstructure:"to"`
	SMTPServer   string `mapstructure:"smtp_server"`
	SMTPPort     string `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_pass"`
	AuthDisabled bool   `mapstructure:"smtp_auth_disabled"`
	RedisAddr    string `mapstructure:"redis_addr"`
	LogKey       string `mapstructure:"log_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var storageTypes = map[string]bool{
	"memory":     true,
	"filesystem": true,
	"redis":      true,
	"postgres":   true,
	"sqlite":     true,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.rate_limit", 5)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("backend.base_url", "http://localhost:8000/api")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.auth_scheme", "Token")
	v.SetDefault("backend.requests_per_second", 20)
	v.SetDefault("backend.burst", 10)

	v.SetDefault("realtime.addr", "localhost:6379")
	v.SetDefault("realtime.channel", "stock-updates")
	v.SetDefault("realtime.auth_path", "/realtime/auth/")
	v.SetDefault("realtime.max_retries", 3)
	v.SetDefault("realtime.retry_base_delay", 2*time.Second)

	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.path", "./data/storefront.json")
	v.SetDefault("storage.key_prefix", "storefront:")

	v.SetDefault("cart.expiry_delay", 2*time.Second)

	v.SetDefault("checkout.tax_rate", "0.16")
	v.SetDefault("checkout.currency", "USD")

	v.SetDefault("paypal.base_url", "https://api-m.sandbox.paypal.com")
	v.SetDefault("paypal.brand_name", "Tienda de Ropa")

	v.SetDefault("alerts.smtp_port", "587")
	v.SetDefault("alerts.log_key", "storefront:alerts:daily")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads defaults, the optional config file and STOREFRONT_* environment
// variables, in increasing order of precedence.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if len(cfg.Checkout.ShippingTiers) == 0 {
		cfg.Checkout.ShippingTiers = DefaultShippingTiers()
	}

	return cfg, cfg.Validate()
}

func DefaultShippingTiers() []ShippingTier {
	return []ShippingTier{
		{ID: "estandar", Label: "Envío estándar (5-7 días)", Cost: "5.00"},
		{ID: "express", Label: "Envío express (1-2 días)", Cost: "12.00"},
		{ID: "recogida", Label: "Recoger en tienda", Cost: "0.00"},
	}
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	if c.Realtime.MaxRetries <= 0 {
		errs = append(errs, errors.New("realtime.max_retries must be greater than zero"))
	}
	if c.Realtime.RetryBaseDelay <= 0 {
		errs = append(errs, errors.New("realtime.retry_base_delay must be greater than zero"))
	}
	if !storageTypes[c.Storage.Type] {
		errs = append(errs, fmt.Errorf("unknown storage.type %q", c.Storage.Type))
	}
	if c.Cart.ExpiryDelay < 0 {
		errs = append(errs, errors.New("cart.expiry_delay cannot be negative"))
	}
	return errors.Join(errs...)
}
