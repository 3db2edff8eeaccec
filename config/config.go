package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from defaults,
// then an optional YAML file (CONFIG_FILE), then environment variables.
type Config struct {
	SearchURL   string  `yaml:"search_url"`
	BaseURL     string  `yaml:"base_url"`
	MapsBaseURL string  `yaml:"maps_base_url"`
	CenterLat   float64 `yaml:"center_lat"`
	CenterLon   float64 `yaml:"center_lon"`
	Fetcher     string  `yaml:"fetcher"` // http, browser
	UserAgent   string  `yaml:"user_agent"`
	ChromeBin   string  `yaml:"chrome_bin"`

	Store            string `yaml:"store"` // csv, sheets, postgres, redis
	CSVPath          string `yaml:"csv_path"`
	SheetID          string `yaml:"sheet_id"`
	SheetRange       string `yaml:"sheet_range"`
	CredentialsFile  string `yaml:"google_credentials_file"`
	ApplicationState string `yaml:"application_state"`

	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`

	BotToken          string `yaml:"bot_token"`
	BotChatID         string `yaml:"bot_chat_id"`
	ChatIDs           string `yaml:"chat_ids"`
	TelegramBaseURL   string `yaml:"telegram_base_url"`
	NotifyWorkers     int    `yaml:"notify_concurrency"`
	NotifyRateLimitMs int    `yaml:"notify_rate_limit_ms"`

	AlertMinScore      float64 `yaml:"alert_min_score"`
	AlertMaxDistanceKm float64 `yaml:"alert_max_distance_km"`
	AlertMaxHotRent    float64 `yaml:"alert_max_hot_rent"`

	Schedule       string `yaml:"schedule"`
	MetricsAddr    string `yaml:"metrics_addr"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	LogEnv         string `yaml:"log_env"`
	LogLevel       string `yaml:"log_level"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		BaseURL:     "https://www.immobilienscout24.de",
		MapsBaseURL: "https://www.google.com/maps",
		CenterLat:   52.519606771749594,
		CenterLon:   13.407080083827983,
		Fetcher:     "http",
		UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",

		Store:            "csv",
		CSVPath:          "./output/listings.csv",
		SheetRange:       "Listado!B2:T",
		CredentialsFile:  "./credentials.json",
		ApplicationState: "Abierto",

		PostgresHost:    "localhost",
		PostgresPort:    "5432",
		PostgresUser:    "scraper",
		PostgresDB:      "immo",
		PostgresSSLMode: "disable",

		RedisAddr:      "localhost:6379",
		RedisKeyPrefix: "immo:",

		TelegramBaseURL:   "https://api.telegram.org/bot",
		NotifyWorkers:     2,
		NotifyRateLimitMs: 100,

		AlertMinScore:      400,
		AlertMaxDistanceKm: 4,
		AlertMaxHotRent:    1200,

		LogEnv:     "local",
		MaxRetries: 5,
	}
}

// Load reads the .env file, the optional YAML file and the environment,
// and returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(expandEnvVars(data), c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.SearchURL = getEnv("SEARCH_URL", c.SearchURL)
	c.BaseURL = getEnv("BASE_URL", c.BaseURL)
	c.MapsBaseURL = getEnv("MAPS_BASE_URL", c.MapsBaseURL)
	c.CenterLat = getEnvFloat("CENTER_LAT", c.CenterLat)
	c.CenterLon = getEnvFloat("CENTER_LON", c.CenterLon)
	c.Fetcher = getEnv("FETCHER", c.Fetcher)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
	c.ChromeBin = getEnv("CHROME_BIN", c.ChromeBin)

	c.Store = getEnv("STORE", c.Store)
	c.CSVPath = getEnv("CSV_PATH", c.CSVPath)
	c.SheetID = getEnv("SHEET_ID", c.SheetID)
	c.SheetRange = getEnv("SHEET_RANGE", c.SheetRange)
	c.CredentialsFile = getEnv("GOOGLE_CREDENTIALS_FILE", c.CredentialsFile)
	c.ApplicationState = getEnv("APPLICATION_STATE", c.ApplicationState)

	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", c.PostgresSSLMode)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisKeyPrefix = getEnv("REDIS_KEY_PREFIX", c.RedisKeyPrefix)

	c.BotToken = getEnv("BOT_TOKEN", c.BotToken)
	c.BotChatID = getEnv("BOT_CHAT_ID", c.BotChatID)
	c.ChatIDs = getEnv("CHAT_IDS", c.ChatIDs)
	c.TelegramBaseURL = getEnv("TELEGRAM_BASE_URL", c.TelegramBaseURL)
	c.NotifyWorkers = getEnvInt("NOTIFY_CONCURRENCY", c.NotifyWorkers)
	c.NotifyRateLimitMs = getEnvInt("NOTIFY_RATE_LIMIT_MS", c.NotifyRateLimitMs)

	c.AlertMinScore = getEnvFloat("ALERT_MIN_SCORE", c.AlertMinScore)
	c.AlertMaxDistanceKm = getEnvFloat("ALERT_MAX_DISTANCE_KM", c.AlertMaxDistanceKm)
	c.AlertMaxHotRent = getEnvFloat("ALERT_MAX_HOT_RENT", c.AlertMaxHotRent)

	c.Schedule = getEnv("SCHEDULE", c.Schedule)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.PushgatewayURL = getEnv("PUSHGATEWAY_URL", c.PushgatewayURL)
	c.LogEnv = getEnv("LOG_ENV", c.LogEnv)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.MaxRetries = getEnvInt("MAX_RETRIES", c.MaxRetries)
}

// Validate checks required settings for the selected backends.
func (c *Config) Validate() error {
	var errs []error
	if c.SearchURL == "" {
		errs = append(errs, errors.New("SEARCH_URL is required"))
	}
	if c.BaseURL == "" {
		errs = append(errs, errors.New("BASE_URL is required"))
	}

	switch c.Fetcher {
	case "http", "browser":
	default:
		errs = append(errs, fmt.Errorf("FETCHER must be http or browser, got %q", c.Fetcher))
	}

	switch c.Store {
	case "csv":
		if c.CSVPath == "" {
			errs = append(errs, errors.New("CSV_PATH is required for the csv store"))
		}
	case "sheets":
		if c.SheetID == "" {
			errs = append(errs, errors.New("SHEET_ID is required for the sheets store"))
		}
		if c.SheetRange == "" {
			errs = append(errs, errors.New("SHEET_RANGE is required for the sheets store"))
		}
	case "postgres":
		if c.PostgresHost == "" || c.PostgresDB == "" {
			errs = append(errs, errors.New("POSTGRES_HOST and POSTGRES_DB are required for the postgres store"))
		}
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE must be csv, sheets, postgres or redis, got %q", c.Store))
	}

	if c.AlertMaxDistanceKm < 0 || c.AlertMaxHotRent < 0 {
		errs = append(errs, errors.New("alert thresholds must not be negative"))
	}
	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// AlertRecipients returns the chat ids that receive listing alerts.
// Falls back to the bot chat when CHAT_IDS is empty.
func (c *Config) AlertRecipients() []string {
	ids := splitList(c.ChatIDs)
	if len(ids) == 0 && c.BotChatID != "" {
		return []string{c.BotChatID}
	}
	return ids
}

// SummaryRecipients returns the chat ids that receive the run summary.
func (c *Config) SummaryRecipients() []string {
	return splitList(c.BotChatID)
}

// NotificationsEnabled reports whether a bot token is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.BotToken != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
