package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every process-start setting named in spec.md §6. It is
// constructed once in cmd/scanner/main.go and threaded explicitly
// through every constructor — never stored as a package-level global.
type Config struct {
	NodeEnv string
	Port    string

	MongoURI string

	TelegramBotToken string
	TelegramChatID   string

	ExchangeBaseURL string
	MacroBaseURL    string
	MacroWSURL      string
	MacroSymbol     string

	PollIntervalMs      int
	StaggerDelayMs      int
	MaxMarkets          int
	MinLiquidity        float64
	CategoryAllowList   []string
	RetentionDays       int
	WeightRefreshMins   int
	OutcomeResolveMins  int
	RediscoveryCycles   int

	HorizonShortCryptoMin int // H for short-dated crypto markets
	HorizonLongCryptoMin  int // H for longer-dated crypto markets
	HorizonNonCryptoMin   int // H for non-crypto CLOB markets

	FetchMaxRetries   int
	FetchTimeout      time.Duration
	FetchBackoffBase  time.Duration
	FetchBackoffCap   time.Duration
	CircuitFailures   int
	CircuitOpenFor    time.Duration
}

// Load reads environment variables (optionally from a .env file) and
// returns a populated Config. Callers own the result; nothing here is
// retained in package state.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		NodeEnv: getEnv("NODE_ENV", "development"),
		Port:    getEnv("PORT", "8080"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/scanner"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		ExchangeBaseURL: getEnv("EXCHANGE_BASE_URL", "https://gamma-api.polymarket.com"),
		MacroBaseURL:    getEnv("MACRO_BASE_URL", "https://api.binance.com"),
		MacroWSURL:      getEnv("MACRO_WS_URL", "wss://stream.binance.com:9443/ws"),
		MacroSymbol:     getEnv("MACRO_SYMBOL", "BTCUSDT"),

		PollIntervalMs:     getEnvAsInt("POLL_INTERVAL_MS", 30_000),
		StaggerDelayMs:     getEnvAsInt("STAGGER_DELAY_MS", 200),
		MaxMarkets:         getEnvAsInt("MAX_MARKETS", 200),
		MinLiquidity:       getEnvAsFloat("MIN_LIQUIDITY", 1000),
		CategoryAllowList:  getEnvAsSlice("CATEGORY_ALLOW_LIST", "crypto,politics,sports"),
		RetentionDays:      getEnvAsInt("RETENTION_DAYS", 90),
		WeightRefreshMins:  getEnvAsInt("WEIGHT_REFRESH_MINS", 10),
		OutcomeResolveMins: getEnvAsInt("OUTCOME_RESOLVE_MINS", 2),
		RediscoveryCycles:  getEnvAsInt("REDISCOVERY_CYCLES", 10),

		HorizonShortCryptoMin: getEnvAsInt("HORIZON_SHORT_CRYPTO_MIN", 15),
		HorizonLongCryptoMin:  getEnvAsInt("HORIZON_LONG_CRYPTO_MIN", 60),
		HorizonNonCryptoMin:   getEnvAsInt("HORIZON_NON_CRYPTO_MIN", 240),

		FetchMaxRetries:  getEnvAsInt("FETCH_MAX_RETRIES", 3),
		FetchTimeout:     time.Duration(getEnvAsInt("FETCH_TIMEOUT_MS", 15_000)) * time.Millisecond,
		FetchBackoffBase: time.Duration(getEnvAsInt("FETCH_BACKOFF_BASE_MS", 500)) * time.Millisecond,
		FetchBackoffCap:  time.Duration(getEnvAsInt("FETCH_BACKOFF_CAP_MS", 10_000)) * time.Millisecond,
		CircuitFailures:  getEnvAsInt("CIRCUIT_FAILURES", 5),
		CircuitOpenFor:   time.Duration(getEnvAsInt("CIRCUIT_OPEN_FOR_SEC", 60)) * time.Second,
	}

	log.Println("✅ Configuration loaded successfully")
	return cfg
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️  Invalid int for %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("⚠️  Invalid float for %s=%q, using default %.2f", key, value, defaultValue)
		return defaultValue
	}
	return f
}
