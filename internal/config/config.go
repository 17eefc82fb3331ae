package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	DBDriver string
	DSN      string

	TxTimeout        time.Duration
	TxAcquireTimeout time.Duration
	MaxUploadBytes   int64
	UploadPerMinute  int
	DefaultCurrency  string

	KafkaBrokers []string
	KafkaTopic   string
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "" || c.AppEnv == "development" || c.AppEnv == "dev"
}

// Load lee la configuración del entorno del proceso.
func Load() (*Config, error) { return LoadFrom(os.Getenv) }

func LoadFrom(getenv func(string) string) (*Config, error) {
	env := func(k, d string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return d
	}

	cfg := &Config{
		Port:            env("PORT", "8080"),
		AppEnv:          strings.ToLower(env("APP_ENV", "development")),
		LogLevel:        strings.ToLower(env("LOG_LEVEL", "info")),
		DBDriver:        driverName(env("DB_DRIVER", "postgres")),
		DSN:             env("DB_DSN", ""),
		DefaultCurrency: strings.ToUpper(env("DEFAULT_CURRENCY", "CRC")),
		KafkaTopic:      env("KAFKA_TOPIC", "store-ingestions"),
	}

	var err error
	if cfg.TxTimeout, err = duration(env("INGEST_TX_TIMEOUT", "60s")); err != nil {
		return nil, fmt.Errorf("INGEST_TX_TIMEOUT: %w", err)
	}
	if cfg.TxAcquireTimeout, err = duration(env("INGEST_TX_ACQUIRE_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("INGEST_TX_ACQUIRE_TIMEOUT: %w", err)
	}
	if cfg.MaxUploadBytes, err = strconv.ParseInt(env("MAX_UPLOAD_BYTES", "10485760"), 10, 64); err != nil || cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES inválido: %q", getenv("MAX_UPLOAD_BYTES"))
	}
	if cfg.UploadPerMinute, err = strconv.Atoi(env("UPLOAD_RATE_PER_MINUTE", "30")); err != nil || cfg.UploadPerMinute <= 0 {
		return nil, fmt.Errorf("UPLOAD_RATE_PER_MINUTE inválido: %q", getenv("UPLOAD_RATE_PER_MINUTE"))
	}
	if err := validator.New().Var(cfg.DefaultCurrency, "len=3,alpha,uppercase"); err != nil {
		return nil, fmt.Errorf("DEFAULT_CURRENCY debe ser un código de 3 letras: %q", cfg.DefaultCurrency)
	}
	if raw := env("KAFKA_BROKERS", ""); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	switch cfg.DBDriver {
	case "memory":
	case "postgres", "mysql", "sqlserver":
		if cfg.DSN == "" {
			cfg.DSN = buildDSN(cfg.DBDriver, env)
		}
	default:
		return nil, fmt.Errorf("DB_DRIVER no soportado: %q", cfg.DBDriver)
	}
	return cfg, nil
}

// driverName acepta los alias habituales de cada motor.
func driverName(s string) string {
	d := strings.ToLower(s)
	switch d {
	case "postgresql", "supabase":
		return "postgres"
	case "mssql":
		return "sqlserver"
	}
	return d
}

func duration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("debe ser positivo: %s", s)
	}
	return d, nil
}

func buildDSN(driver string, env func(k, d string) string) string {
	defPort, defUser := "5432", "postgres"
	switch driver {
	case "mysql":
		defPort, defUser = "3306", "root"
	case "sqlserver":
		defPort, defUser = "1433", "sa"
	}
	host := env("DB_HOST", "localhost")
	port := env("DB_PORT", defPort)
	user := env("DB_USER", env("POSTGRES_USER", defUser))
	pass := env("DB_PASSWORD", env("POSTGRES_PASSWORD", "postgres"))
	name := env("DB_NAME", env("POSTGRES_DB", "store"))

	switch driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC", user, pass, host, port, name)
	case "sqlserver":
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(user, pass),
			Host:     host + ":" + port,
			RawQuery: url.Values{"database": {name}}.Encode(),
		}
		return u.String()
	}
	ssl := env("DB_SSLMODE", "disable")
	return "host=" + host + " user=" + user + " password=" + pass + " dbname=" + name + " port=" + port + " sslmode=" + ssl
}
