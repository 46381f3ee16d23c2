package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Relay       RelayConfig       `mapstructure:"relay"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
	Sniper      SniperConfig      `mapstructure:"sniper"`
	TokenSearch TokenSearchConfig `mapstructure:"token_search"`
	Swap        SwapConfig        `mapstructure:"swap"`
	Log         LogConfig         `mapstructure:"log"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
	Redis       RedisConfig       `mapstructure:"redis"`
}

// RelayConfig configures the upstream subscription and the local relay server.
type RelayConfig struct {
	UpstreamURL      string        `mapstructure:"upstream_url"`
	Accounts         []string      `mapstructure:"accounts"`
	ListenAddr       string        `mapstructure:"listen_addr"`
	ReconnectDelay   time.Duration `mapstructure:"reconnect_delay"`
	SubscribeStagger time.Duration `mapstructure:"subscribe_stagger"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
}

type ArchiveConfig struct {
	Path string `mapstructure:"path"`
}

type SniperConfig struct {
	ListenAddr       string `mapstructure:"listen_addr"`
	TokenMappingPath string `mapstructure:"token_mapping_path"`
	WriteBackPath    string `mapstructure:"write_back_path"`
}

type TokenSearchConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SwapConfig points at the per-chain swap executors.
type SwapConfig struct {
	BSCURL    string        `mapstructure:"bsc_url"`
	SolanaURL string        `mapstructure:"solana_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RedisConfig enables the optional relay mirror when URL is set.
type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	// .env is optional; real environment variables still win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	cfg, err := LoadFrom(searchPaths()...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads config.yaml from the first matching directory. A missing file is
// not an error: defaults and environment variables are used instead.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	// Support environment variables with dot notation (e.g., RELAY_UPSTREAM_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// env overrides arrive as a single comma separated string
	cfg.Relay.Accounts = cleanAccounts(cfg.Relay.Accounts)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("relay.listen_addr", ":3001")
	v.SetDefault("relay.reconnect_delay", 5*time.Second)
	v.SetDefault("relay.subscribe_stagger", 50*time.Millisecond)
	v.SetDefault("relay.write_timeout", 10*time.Second)
	v.SetDefault("archive.path", "tweets.json")
	v.SetDefault("sniper.listen_addr", ":3000")
	v.SetDefault("sniper.token_mapping_path", "token_mapping.csv")
	v.SetDefault("sniper.write_back_path", "add_token.csv")
	v.SetDefault("token_search.timeout", 10*time.Second)
	v.SetDefault("swap.timeout", 60*time.Second)
	v.SetDefault("redis.channel", "updates")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
}

func searchPaths() []string {
	paths := []string{"./config", "."}

	ex, err := os.Executable()
	if err != nil {
		return paths
	}
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		return append(paths, filepath.Join(pwd, "../../config"))
	}
	return append(paths, filepath.Join(filepath.Dir(ex), "../config"))
}

func cleanAccounts(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, name := range strings.Split(entry, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
