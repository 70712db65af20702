package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rtavares/brickvault-backend/pkg/logger"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Chain    ChainConfig    `yaml:"chain"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	Logger   logger.Config  `yaml:"logger"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	DBName       string `yaml:"name"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type ChainConfig struct {
	Enabled            bool   `yaml:"enabled"`
	RPCURL             string `yaml:"rpc_url"`
	FeePayerKey        string `yaml:"fee_payer_key"`
	GasAirdropLamports uint64 `yaml:"gas_airdrop_lamports"`
	CommitTimeoutS     int    `yaml:"commit_timeout_seconds"`
}

type LedgerConfig struct {
	// InitialAccountBalanceUSD is the mock cash balance granted to new
	// accounts, as a decimal string.
	InitialAccountBalanceUSD string `yaml:"initial_account_balance_usd"`
}

type SweeperConfig struct {
	// Schedule is a cron expression for the proposal window sweep.
	Schedule string `yaml:"schedule"`
}

// Load reads the YAML config at path, after loading a .env file if one is
// present. Environment variables override the database credentials so the
// same file works in and out of docker.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	overrideFromEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: "8080"},
		Database: DatabaseConfig{Host: "localhost", Port: "5432", User: "postgres", Password: "postgres", DBName: "brickvault", SSLMode: "disable", MaxOpenConns: 25, MaxIdleConns: 5},
		Chain:    ChainConfig{Enabled: false, GasAirdropLamports: 100_000_000, CommitTimeoutS: 20},
		Ledger:   LedgerConfig{InitialAccountBalanceUSD: "10000.00"},
		Sweeper:  SweeperConfig{Schedule: "@every 1m"},
		Logger:   logger.Config{Level: "info"},
	}
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.DBName = v
	}
	if v := os.Getenv("CHAIN_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("CHAIN_FEE_PAYER_KEY"); v != "" {
		cfg.Chain.FeePayerKey = v
	}
}

// DSN builds the lib/pq connection string for the configured database.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
