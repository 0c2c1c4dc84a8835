// Package config предоставялет структуры и функции для парсинга и загрузки конфига Mini-App.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Окружения запуска.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config общая структура для хранения настроек
type Config struct {
	Env             string        `yaml:"env" env:"ENV" env-default:"local" validate:"oneof=local dev prod"`
	NotifyFor       time.Duration `yaml:"notify_for" env:"NOTIFY_FOR" env-default:"3s" validate:"gt=0"`
	TariffTTL       time.Duration `yaml:"tariff_ttl" env:"TARIFF_TTL" env-default:"10m"`
	LockTTL         time.Duration `yaml:"lock_ttl" env:"LOCK_TTL" env-default:"1m" validate:"gt=0"`
	SessionIdle     time.Duration `yaml:"session_idle" env:"SESSION_IDLE" env-default:"24h" validate:"gt=0"`
	API             `yaml:"api"`
	Telegram        `yaml:"telegram"`
	HTTPServer      `yaml:"http_server"`
	RedisConnection `yaml:"redis_connection"`
	Limits          `yaml:"limits"`
}

// API структура для настройки клиента внешнего API подписок
type API struct {
	BaseURL        string        `yaml:"base_url" env:"API_BASE_URL" env-default:"https://app.miravpn.com/api" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"API_TIMEOUT" env-default:"10s" validate:"gt=0"`
}

// Telegram структура для настройки бота
type Telegram struct {
	Token          string        `yaml:"token" env:"BOT_TOKEN" validate:"required"`
	PollTimeout    time.Duration `yaml:"poll_timeout" env:"BOT_POLL_TIMEOUT" env-default:"10s"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout" env:"BOT_CONFIRM_TIMEOUT" env-default:"2m"`
}

// HTTPServer структура для настройки сервера health/metrics
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес означает работу без redis (кеш и блокировки в памяти).
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// Limits структура для настройки ограничения частоты нажатий
type Limits struct {
	Rate  float64 `yaml:"rate" env:"LIMIT_RATE" env-default:"1" validate:"gt=0"`
	Burst int     `yaml:"burst" env:"LIMIT_BURST" env-default:"3" validate:"gt=0"`
}

// Load читает конфиг из файла path. Если path пуст, настройки берутся
// только из переменных окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: file %s does not exist", op, path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает .env (если есть) и конфиг из CONFIG_PATH, завершая процесс при ошибке.
func MustLoad() *Config {
	_ = godotenv.Load()

	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// RedisEnabled сообщает, задан ли адрес redis.
func (c *Config) RedisEnabled() bool {
	return c.AddressRedis != ""
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"API:\n"+
			"  BaseURL: %s\n"+
			"  Timeout: %s\n"+
			"Telegram:\n"+
			"  Token: %s\n"+
			"  PollTimeout: %s\n"+
			"  ConfirmTimeout: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"Limits:\n"+
			"  Rate: %g\n"+
			"  Burst: %d\n",
		c.Env,
		c.BaseURL,
		c.RequestTimeout,
		mask(c.Token),
		c.PollTimeout,
		c.ConfirmTimeout,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.AddressRedis,
		c.DB,
		c.Rate,
		c.Burst,
	)
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}
