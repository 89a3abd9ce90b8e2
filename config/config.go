package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	LogLevel     string
	DatasetPath  string
	DatasetWatch bool
	SaveDebounce time.Duration
	JWTSecret    string
	CORSOrigin   string
	EditRate     float64
	Store        Store
}

// Store describes the database holding the persisted overrides.
type Store struct {
	Driver      string // "postgres" or "sqlite"
	DatabaseURL string
	SQLitePath  string
	User        string
	Password    string
	Host        string
	Port        string
	Name        string
}

// Load reads a .env file when present, then the process environment.
func Load(envFiles ...string) (Config, error) {
	_ = godotenv.Load(envFiles...)
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		DatasetPath: getenv("DATASET_PATH", "./data/records.json"),
		JWTSecret:   env("JWT_SECRET"),
		CORSOrigin:  getenv("CORS_ORIGIN", "*"),
		Store: Store{
			Driver:      strings.ToLower(getenv("STORE_DRIVER", "sqlite")),
			DatabaseURL: env("DATABASE_URL"),
			SQLitePath:  getenv("SQLITE_PATH", "./qareview.db"),
			User:        env("user"),
			Password:    env("password"),
			Host:        env("host"),
			Port:        getenv("port", "5432"),
			Name:        env("dbname"),
		},
	}

	var err error
	if cfg.DatasetWatch, err = parseBool("DATASET_WATCH", false); err != nil {
		return Config{}, err
	}
	if cfg.SaveDebounce, err = parseDuration("SAVE_DEBOUNCE", 3000*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.EditRate, err = parseFloat("EDIT_RATE", 20); err != nil {
		return Config{}, err
	}
	if cfg.Store.Driver != "postgres" && cfg.Store.Driver != "sqlite" {
		return Config{}, fmt.Errorf("STORE_DRIVER must be postgres or sqlite, got %q", cfg.Store.Driver)
	}
	return cfg, nil
}

// PostgresDSN returns DATABASE_URL, or a URL assembled from the individual
// connection variables.
func (s Store) PostgresDSN() string {
	if s.DatabaseURL != "" {
		return s.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=require", s.User, s.Password, s.Host, s.Port, s.Name)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getenv(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}

func parseBool(key string, def bool) (bool, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// parseDuration accepts Go durations ("3s") or bare milliseconds ("3000").
func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
