package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Server struct {
	TCPAddr      string
	APIAddr      string // empty disables the HTTP gateway
	MaxLineBytes int
	IdleTimeout  time.Duration // zero disables the idle deadline
	CORSOrigins  []string
}

type Storage struct {
	// TradeDBPath is the Pebble directory of the trade journal.
	// Empty keeps the journal in memory for the life of the process.
	TradeDBPath string
}

type Kafka struct {
	Brokers []string // empty disables publishing
	Topic   string
}

type Log struct {
	File    string // empty logs to stdout only
	Verbose bool
}

type Config struct {
	Server  Server
	Storage Storage
	Kafka   Kafka
	Log     Log
}

func Default() Config {
	return Config{
		Server: Server{
			TCPAddr:      ":9000",
			APIAddr:      ":8080",
			MaxLineBytes: 64 * 1024,
			IdleTimeout:  5 * time.Minute,
			CORSOrigins:  []string{"http://localhost:3000"},
		},
		Storage: Storage{
			TradeDBPath: "data/trades",
		},
		Kafka: Kafka{
			Topic: "minimatch.trades",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg.Server.TCPAddr = getEnv("TCP_ADDR", cfg.Server.TCPAddr)
	if addr, ok := os.LookupEnv("API_ADDR"); ok {
		cfg.Server.APIAddr = addr
	}
	if n := os.Getenv("MAX_LINE_BYTES"); n != "" {
		if v, err := strconv.Atoi(n); err == nil && v > 0 {
			cfg.Server.MaxLineBytes = v
		}
	}
	if idle := os.Getenv("IDLE_TIMEOUT_MS"); idle != "" {
		if ms, err := strconv.Atoi(idle); err == nil && ms >= 0 {
			cfg.Server.IdleTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if origins := splitList(os.Getenv("CORS_ORIGINS")); len(origins) > 0 {
		cfg.Server.CORSOrigins = origins
	}

	if path, ok := os.LookupEnv("TRADE_DB_PATH"); ok {
		cfg.Storage.TradeDBPath = path
	}

	cfg.Kafka.Brokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	if v := os.Getenv("VERBOSE"); v != "" {
		cfg.Log.Verbose, _ = strconv.ParseBool(v)
	}

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
