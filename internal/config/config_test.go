package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Realtime.Channel != "stock-updates" {
		t.Errorf("expected channel stock-updates, got %q", cfg.Realtime.Channel)
	}
	if cfg.Realtime.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.Realtime.MaxRetries)
	}
	if cfg.Cart.ExpiryDelay != 2*time.Second {
		t.Errorf("expected expiry delay 2s, got %v", cfg.Cart.ExpiryDelay)
	}
	if len(cfg.Checkout.ShippingTiers) != 3 {
		t.Errorf("expected 3 default shipping tiers, got %d", len(cfg.Checkout.ShippingTiers))
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STOREFRONT_BACKEND_BASE_URL", "http://backend.test/api")
	t.Setenv("STOREFRONT_STORAGE_TYPE", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://backend.test/api" {
		t.Errorf("expected env base url, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("expected memory storage, got %q", cfg.Storage.Type)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	content := `
backend:
  base_url: http://file.test/api
realtime:
  max_retries: 5
checkout:
  shipping_tiers:
    - id: flat
      label: Flat
      cost: "3.50"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Realtime.MaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", cfg.Realtime.MaxRetries)
	}
	if len(cfg.Checkout.ShippingTiers) != 1 || cfg.Checkout.ShippingTiers[0].Cost != "3.50" {
		t.Errorf("unexpected shipping tiers: %+v", cfg.Checkout.ShippingTiers)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base url", func(c *Config) { c.Backend.BaseURL = " " }},
		{"zero retries", func(c *Config) { c.Realtime.MaxRetries = 0 }},
		{"unknown storage", func(c *Config) { c.Storage.Type = "floppy" }},
		{"negative expiry delay", func(c *Config) { c.Cart.ExpiryDelay = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
