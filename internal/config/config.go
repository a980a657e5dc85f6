package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "DotBalance"
	defaultAppEnv        = "development"
	defaultPort          = "3001"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second

	defaultLightClientMode   = ModeProcess
	defaultLightClientBinary = "smoldot-light"
	defaultChainName         = "polkadot"
	defaultChainSpecPath     = "chainspecs/polkadot.json"
	defaultRPCURL            = "wss://rpc.polkadot.io"
	defaultTokenDecimals     = 10
	defaultTokenSymbol       = "DOT"
	defaultSyncTimeout       = 2 * time.Minute
	defaultWorkerStart       = 30 * time.Second
	defaultQueryTimeout      = 30 * time.Second
	defaultRateLimit         = 30
)

// Light client modes.
const (
	ModeProcess = "process"
	ModeRemote  = "remote"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration

	LightClient LightClient

	RateLimitPerMinute int
}

// LightClient configures how workers are launched and bounded.
type LightClient struct {
	Mode          string
	Binary        string
	Args          []string
	ChainName     string
	ChainSpecPath string
	RPCURL        string
	TokenDecimals int32
	TokenSymbol   string
	SyncTimeout   time.Duration
	StartTimeout  time.Duration
	QueryTimeout  time.Duration
	PoolSize      int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		AppEnv:      getEnv("APP_ENV", defaultAppEnv),
		Port:        getEnv("PORT", defaultPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		LightClient: LightClient{
			Mode:          strings.ToLower(getEnv("LIGHT_CLIENT_MODE", defaultLightClientMode)),
			Binary:        getEnv("LIGHT_CLIENT_BIN", defaultLightClientBinary),
			Args:          strings.Fields(os.Getenv("LIGHT_CLIENT_ARGS")),
			ChainName:     getEnv("CHAIN_NAME", defaultChainName),
			ChainSpecPath: getEnv("CHAIN_SPEC_PATH", defaultChainSpecPath),
			RPCURL:        getEnv("RPC_URL", defaultRPCURL),
			TokenSymbol:   getEnv("TOKEN_SYMBOL", defaultTokenSymbol),
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.LightClient.SyncTimeout, err = durationEnv("SYNC_TIMEOUT", defaultSyncTimeout); err != nil {
		return Config{}, err
	}
	if cfg.LightClient.StartTimeout, err = durationEnv("WORKER_START_TIMEOUT", defaultWorkerStart); err != nil {
		return Config{}, err
	}
	if cfg.LightClient.QueryTimeout, err = durationEnv("QUERY_TIMEOUT", defaultQueryTimeout); err != nil {
		return Config{}, err
	}

	decimals, err := intEnv("TOKEN_DECIMALS", defaultTokenDecimals)
	if err != nil {
		return Config{}, err
	}
	if decimals < 0 || decimals > 38 {
		return Config{}, fmt.Errorf("invalid TOKEN_DECIMALS: %d out of range 0..38", decimals)
	}
	cfg.LightClient.TokenDecimals = int32(decimals)

	if cfg.LightClient.PoolSize, err = intEnv("POOL_SIZE", 0); err != nil {
		return Config{}, err
	}
	if cfg.LightClient.PoolSize < 0 {
		return Config{}, fmt.Errorf("invalid POOL_SIZE: must not be negative")
	}
	if cfg.RateLimitPerMinute, err = intEnv("RATE_LIMIT_PER_MINUTE", defaultRateLimit); err != nil {
		return Config{}, err
	}

	switch cfg.LightClient.Mode {
	case ModeProcess, ModeRemote:
	default:
		return Config{}, fmt.Errorf("invalid LIGHT_CLIENT_MODE %q: want %s or %s", cfg.LightClient.Mode, ModeProcess, ModeRemote)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv reads KEY_SECONDS as whole seconds, falling back to KEY as a
// Go duration string.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	secondsKey := key + "_SECONDS"
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		if seconds < 0 {
			return 0, fmt.Errorf("invalid %s: must not be negative", secondsKey)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		if d < 0 {
			return 0, fmt.Errorf("invalid %s: must not be negative", key)
		}
		return d, nil
	}
	return fallback, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
