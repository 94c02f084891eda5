// Package config resolves server settings from flags, the environment and
// an optional .env file. Flags win over the environment, the environment
// wins over .env.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds the server configuration.
type Config struct {
	Port          int
	AdminPassword string

	Store         string
	DataDir       string
	PostgresDSN   string
	ClickHouseDSN string // optional ledger backend, used with Store=postgres

	KafkaBrokers []string
	KafkaTopic   string

	StaticDir  string
	TrustProxy bool

	VoteRPS   float64
	VoteBurst int
}

// LoadEnvFile loads path into the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// Load parses args with environment-variable defaults and validates the result.
func Load(name string, args []string) (*Config, error) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)

	port := flags.Int("port", envInt("PORT", 3000), "HTTP listen port")
	adminPassword := flags.String("admin-password", os.Getenv("ADMIN_PASSWORD"), "Shared admin credential (empty disables admin routes)")
	store := flags.String("store", envString("STORE", StoreFile), "Storage backend: file, memory or postgres")
	dataDir := flags.String("data-dir", envString("DATA_DIR", "."), "Directory holding tokens.json and votes.json")
	postgresDSN := flags.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flags.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the vote ledger")
	kafkaBrokers := flags.String("kafka-brokers", os.Getenv("KAFKA_BROKERS"), "Comma-separated Kafka brokers for vote updates")
	kafkaTopic := flags.String("kafka-topic", envString("KAFKA_TOPIC", "vote-updates"), "Kafka topic for vote updates")
	staticDir := flags.String("static-dir", os.Getenv("STATIC_DIR"), "Directory of static front-end files")
	trustProxy := flags.Bool("trust-proxy", envBool("TRUST_PROXY", true), "Take voter IP from X-Forwarded-For / X-Real-IP")
	voteRPS := flags.Float64("vote-rps", envFloat("VOTE_RPS", 1), "Per-IP vote request rate (0 disables)")
	voteBurst := flags.Int("vote-burst", envInt("VOTE_BURST", 5), "Per-IP vote burst size")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:          *port,
		AdminPassword: *adminPassword,
		Store:         strings.ToLower(strings.TrimSpace(*store)),
		DataDir:       *dataDir,
		PostgresDSN:   *postgresDSN,
		ClickHouseDSN: *clickhouseDSN,
		KafkaBrokers:  splitList(*kafkaBrokers),
		KafkaTopic:    *kafkaTopic,
		StaticDir:     *staticDir,
		TrustProxy:    *trustProxy,
		VoteRPS:       *voteRPS,
		VoteBurst:     *voteBurst,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field combinations.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Store {
	case StoreFile:
		if c.DataDir == "" {
			return errors.New("--data-dir is required for the file store")
		}
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("--postgres-dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q (want file, memory or postgres)", c.Store)
	}
	if c.ClickHouseDSN != "" && c.Store != StorePostgres {
		return errors.New("--clickhouse-dsn requires --store=postgres")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("--kafka-topic is required with --kafka-brokers")
	}
	if c.VoteRPS < 0 || c.VoteBurst < 0 {
		return errors.New("vote rate and burst must not be negative")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
