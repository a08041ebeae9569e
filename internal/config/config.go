package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the fulfillment engine.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Payment  PaymentConfig  `yaml:"payment"`
	Offers   OffersConfig   `yaml:"offers"`
	Loyalty  LoyaltyConfig  `yaml:"loyalty"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RabbitMQConfig holds RabbitMQ connection configuration.
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// PricingConfig holds the tax and delivery-fee policy.
type PricingConfig struct {
	TaxRatePercent        decimal.Decimal `yaml:"tax_rate_percent"`
	DeliveryFee           decimal.Decimal `yaml:"delivery_fee"`
	FreeDeliveryThreshold decimal.Decimal `yaml:"free_delivery_threshold"`
}

// PaymentConfig holds the payment-gateway webhook settings.
type PaymentConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
}

// OffersConfig states when the offer usage counter is incremented.
// The only supported policy is "confirmation": the counter is taken when the
// order is confirmed and released if a confirmed order is cancelled.
type OffersConfig struct {
	IncrementOn string `yaml:"increment_on"`
}

// LoyaltyConfig holds the points redemption policy.
type LoyaltyConfig struct {
	RedeemBlockPoints int             `yaml:"redeem_block_points"`
	RedeemBlockValue  decimal.Decimal `yaml:"redeem_block_value"`
}

// Load reads configuration from a YAML file.
func Load(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := defaults()
	scanner := bufio.NewScanner(file)

	var currentSection string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Check for section headers
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			currentSection = strings.TrimSuffix(line, ":")
			continue
		}

		// Parse key-value pairs
		if strings.Contains(line, ":") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if err := config.setValue(currentSection, key, value); err != nil {
				return nil, fmt.Errorf("failed to set config value %s.%s: %w", currentSection, key, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if config.Offers.IncrementOn != "confirmation" {
		return nil, fmt.Errorf("unsupported offers.increment_on policy: %s", config.Offers.IncrementOn)
	}

	return config, nil
}

func defaults() *Config {
	return &Config{
		Pricing: PricingConfig{
			TaxRatePercent:        decimal.NewFromInt(18),
			DeliveryFee:           decimal.NewFromInt(50),
			FreeDeliveryThreshold: decimal.NewFromInt(500),
		},
		Offers: OffersConfig{
			IncrementOn: "confirmation",
		},
		Loyalty: LoyaltyConfig{
			RedeemBlockPoints: 1000,
			RedeemBlockValue:  decimal.NewFromInt(50),
		},
	}
}

// setValue sets a configuration value based on section and key.
func (c *Config) setValue(section, key, value string) error {
	switch section {
	case "database":
		return c.setDatabaseValue(key, value)
	case "rabbitmq":
		return c.setRabbitMQValue(key, value)
	case "pricing":
		return c.setPricingValue(key, value)
	case "payment":
		return c.setPaymentValue(key, value)
	case "offers":
		return c.setOffersValue(key, value)
	case "loyalty":
		return c.setLoyaltyValue(key, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) setDatabaseValue(key, value string) error {
	switch key {
	case "host":
		c.Database.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.Database.Port = port
	case "user":
		c.Database.User = value
	case "password":
		c.Database.Password = value
	case "database":
		c.Database.Database = value
	default:
		return fmt.Errorf("unknown database key: %s", key)
	}
	return nil
}

func (c *Config) setRabbitMQValue(key, value string) error {
	switch key {
	case "host":
		c.RabbitMQ.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.RabbitMQ.Port = port
	case "user":
		c.RabbitMQ.User = value
	case "password":
		c.RabbitMQ.Password = value
	default:
		return fmt.Errorf("unknown rabbitmq key: %s", key)
	}
	return nil
}

func (c *Config) setPricingValue(key, value string) error {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}

	switch key {
	case "tax_rate_percent":
		c.Pricing.TaxRatePercent = amount
	case "delivery_fee":
		c.Pricing.DeliveryFee = amount
	case "free_delivery_threshold":
		c.Pricing.FreeDeliveryThreshold = amount
	default:
		return fmt.Errorf("unknown pricing key: %s", key)
	}
	return nil
}

func (c *Config) setPaymentValue(key, value string) error {
	switch key {
	case "webhook_secret":
		c.Payment.WebhookSecret = value
	default:
		return fmt.Errorf("unknown payment key: %s", key)
	}
	return nil
}

func (c *Config) setOffersValue(key, value string) error {
	switch key {
	case "increment_on":
		c.Offers.IncrementOn = value
	default:
		return fmt.Errorf("unknown offers key: %s", key)
	}
	return nil
}

func (c *Config) setLoyaltyValue(key, value string) error {
	switch key {
	case "redeem_block_points":
		points, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid redeem_block_points value: %w", err)
		}
		c.Loyalty.RedeemBlockPoints = points
	case "redeem_block_value":
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("invalid redeem_block_value: %w", err)
		}
		c.Loyalty.RedeemBlockValue = amount
	default:
		return fmt.Errorf("unknown loyalty key: %s", key)
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL.
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
