package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Record sources the report service can read call history from
const (
	SourceDynamo = "dynamo"
	SourceMySQL  = "mysql"
	SourceNone   = "none"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	LogLevel       string
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	RecordSource    string
	FetchMaxElapsed time.Duration
	SyncInterval    time.Duration // 0 disables the background CATI sync
	MySQL           MySQLConfig
}

// MySQLConfig points at the CATI database holding DialHistory
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DSN returns the go-sql-driver data source name
func (m MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		m.User, m.Password, m.Host, m.Port, m.Database)
}

// fileConfig is the optional YAML file named by CONFIG_FILE. Its values
// replace the built-in defaults; environment variables still win.
type fileConfig struct {
	Port            string      `yaml:"port"`
	AllowedOrigins  []string    `yaml:"allowed_origins"`
	LogLevel        string      `yaml:"log_level"`
	WSReadTimeout   int         `yaml:"ws_read_timeout"`
	WSWriteTimeout  int         `yaml:"ws_write_timeout"`
	RecordSource    string      `yaml:"record_source"`
	FetchMaxElapsed int         `yaml:"fetch_max_elapsed"`
	SyncInterval    int         `yaml:"sync_interval"`
	MySQL           MySQLConfig `yaml:"mysql"`
}

func defaults() fileConfig {
	return fileConfig{
		Port:            "8080",
		AllowedOrigins:  []string{"http://localhost:5173"},
		LogLevel:        "info",
		WSReadTimeout:   60,
		WSWriteTimeout:  10,
		RecordSource:    SourceDynamo,
		FetchMaxElapsed: 30,
		MySQL: MySQLConfig{
			Host:     "localhost",
			Port:     3306,
			User:     "blaise",
			Database: "blaise",
		},
	}
}

// Load loads configuration from the optional YAML file and environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	fc := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config := &Config{
		Port:           getEnv("PORT", fc.Port),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", strings.Join(fc.AllowedOrigins, ",")), ","),
		LogLevel:       getEnv("LOG_LEVEL", fc.LogLevel),
		RecordSource:   strings.ToLower(getEnv("RECORD_SOURCE", fc.RecordSource)),
		MySQL: MySQLConfig{
			Host:     getEnv("MYSQL_HOST", fc.MySQL.Host),
			User:     getEnv("MYSQL_USER", fc.MySQL.User),
			Password: getEnv("MYSQL_PASSWORD", fc.MySQL.Password),
			Database: getEnv("MYSQL_DATABASE", fc.MySQL.Database),
		},
	}

	// Parse WebSocket timeouts
	wsReadTimeout, err := getEnvInt("WS_READ_TIMEOUT", fc.WSReadTimeout)
	if err != nil {
		return nil, err
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := getEnvInt("WS_WRITE_TIMEOUT", fc.WSWriteTimeout)
	if err != nil {
		return nil, err
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	fetchMaxElapsed, err := getEnvInt("FETCH_MAX_ELAPSED", fc.FetchMaxElapsed)
	if err != nil {
		return nil, err
	}
	config.FetchMaxElapsed = time.Duration(fetchMaxElapsed) * time.Second

	syncInterval, err := getEnvInt("SYNC_INTERVAL", fc.SyncInterval)
	if err != nil {
		return nil, err
	}
	config.SyncInterval = time.Duration(syncInterval) * time.Second

	config.MySQL.Port, err = getEnvInt("MYSQL_PORT", fc.MySQL.Port)
	if err != nil {
		return nil, err
	}

	switch config.RecordSource {
	case SourceDynamo, SourceMySQL, SourceNone:
	default:
		return nil, fmt.Errorf("invalid RECORD_SOURCE %q: expected dynamo, mysql or none", config.RecordSource)
	}

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
