// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when a variable is unset.
const (
	DefaultListenAddr       = ":8080"
	DefaultInteractEndpoint = "/interactions"
	DefaultDiscordAPIBase   = "https://discord.com/api/v10"
	DefaultPriceCacheTTL    = 60 * time.Second
	DefaultEnvironment      = "production"
)

// Config holds every runtime setting. Zero values mean "not configured".
type Config struct {
	// Network
	L2RPCEndpoint string
	L2WSEndpoint  string

	// Storage
	PostgresDSN   string
	ClickhouseDSN string
	RedisAddr     string
	DataDir       string
	UseMemory     bool
	TokensFile    string

	// Keys
	KeyPassphrase  string
	MasterMnemonic string

	// Interaction transport
	DiscordPublicKey     string
	DiscordApplicationID string
	DiscordAPIBase       string
	ListenAddr           string
	InteractEndpoint     string
	UseSecurity          bool

	// Logging
	LogLevel    string
	LogFile     string
	Environment string

	PriceCacheTTL time.Duration
}

// FromEnv reads the configuration from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		L2RPCEndpoint:        os.Getenv("L2_RPC_ENDPOINT"),
		L2WSEndpoint:         os.Getenv("L2_WS_ENDPOINT"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		ClickhouseDSN:        os.Getenv("CLICKHOUSE_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		DataDir:              os.Getenv("DATA_DIR"),
		TokensFile:           os.Getenv("TOKENS_FILE"),
		KeyPassphrase:        os.Getenv("KEY_PASSPHRASE"),
		MasterMnemonic:       os.Getenv("MASTER_MNEMONIC"),
		DiscordPublicKey:     os.Getenv("DISCORD_PUBLIC_KEY"),
		DiscordApplicationID: os.Getenv("DISCORD_APPLICATION_ID"),
		DiscordAPIBase:       envOr("DISCORD_API_BASE", DefaultDiscordAPIBase),
		ListenAddr:           envOr("LISTEN_ADDR", DefaultListenAddr),
		InteractEndpoint:     envOr("INTERACT_ENDPOINT", DefaultInteractEndpoint),
		LogLevel:             os.Getenv("LOG_LEVEL"),
		LogFile:              os.Getenv("LOG_FILE"),
		Environment:          envOr("ENVIRONMENT", DefaultEnvironment),
		PriceCacheTTL:        DefaultPriceCacheTTL,
	}

	var err error
	if cfg.UseMemory, err = envBool("USE_MEMORY", false); err != nil {
		return cfg, err
	}
	if cfg.UseSecurity, err = envBool("USE_SECURITY", true); err != nil {
		return cfg, err
	}
	if v := os.Getenv("PRICE_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("PRICE_CACHE_TTL: %w", err)
		}
		cfg.PriceCacheTTL = ttl
	}
	return cfg, nil
}

// Validate reports every missing value required by the command handlers.
func (c Config) Validate() error {
	var errs []error
	if c.L2RPCEndpoint == "" {
		errs = append(errs, errors.New("L2_RPC_ENDPOINT is required"))
	}
	if c.KeyPassphrase == "" {
		errs = append(errs, errors.New("KEY_PASSPHRASE is required"))
	}
	if !c.UseMemory && c.PostgresDSN == "" && c.DataDir == "" {
		errs = append(errs, errors.New("one of POSTGRES_DSN, DATA_DIR or USE_MEMORY is required"))
	}
	if c.PriceCacheTTL < 0 {
		errs = append(errs, errors.New("PRICE_CACHE_TTL must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateServer adds the interaction transport requirements to Validate.
func (c Config) ValidateServer() error {
	errs := []error{c.Validate()}
	if c.DiscordApplicationID == "" {
		errs = append(errs, errors.New("DISCORD_APPLICATION_ID is required"))
	}
	if c.UseSecurity && c.DiscordPublicKey == "" {
		errs = append(errs, errors.New("DISCORD_PUBLIC_KEY is required when USE_SECURITY is on"))
	}
	if !strings.HasPrefix(c.InteractEndpoint, "/") {
		errs = append(errs, errors.New("INTERACT_ENDPOINT must start with /"))
	}
	return errors.Join(errs...)
}

// LoadEnvFile sets variables from a KEY=VALUE file.
// A missing file is not an error. Variables already set are never overridden.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if _, ok := os.LookupEnv(key); !ok {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
