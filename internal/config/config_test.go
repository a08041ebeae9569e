package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

func TestLoad_ConfigYAML(t *testing.T) {
	path := filepath.Join("..", "..", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.Host == "" {
		t.Fatalf("expected database.host to be set")
	}
	if cfg.RabbitMQ.Port == 0 {
		t.Fatalf("expected rabbitmq.port to be set")
	}
	if cfg.Payment.WebhookSecret == "" {
		t.Fatalf("expected payment.webhook_secret to be set")
	}
	if !cfg.Pricing.TaxRatePercent.Equal(mustDecimal(t, "18")) {
		t.Errorf("expected tax_rate_percent 18, got %s", cfg.Pricing.TaxRatePercent)
	}
	if cfg.Loyalty.RedeemBlockPoints != 1000 {
		t.Errorf("expected redeem_block_points 1000, got %d", cfg.Loyalty.RedeemBlockPoints)
	}
}

func TestLoad_RejectsUnknownIncrementPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "offers:\n  increment_on: delivery\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported increment_on policy")
	}
}
