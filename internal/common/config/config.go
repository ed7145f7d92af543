package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type App struct {
	Terminal Terminal `yaml:"terminal"`
	Database Database `yaml:"database"`
	RabbitMQ RabbitMQ `yaml:"rabbitmq"`
	Redis    Redis    `yaml:"redis"`
	Outbox   Outbox   `yaml:"outbox"`
	HTTP     HTTP     `yaml:"http"`
	Printer  Printer  `yaml:"printer"`
	Log      Log      `yaml:"log"`
	Users    []User   `yaml:"users"`
}

type Terminal struct {
	Name                string   `yaml:"name"`
	TableCount          int      `yaml:"table_count"`
	FolioBase           int64    `yaml:"folio_base"`
	FolioBackend        string   `yaml:"folio_backend"` // postgres | redis | memory
	Storage             string   `yaml:"storage"`       // postgres | memory
	PreferredCategories []string `yaml:"preferred_categories"`
	Tickets             string   `yaml:"tickets"` // amqp | local
	Location            string   `yaml:"location"`
}

type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"database"`
	MaxConns int32  `yaml:"max_conns"`
}

func (d Database) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Name)
}

type RabbitMQ struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"use_tls"`
	Prefetch int    `yaml:"prefetch"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Outbox struct {
	Path          string        `yaml:"path"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

type HTTP struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type Printer struct {
	Sink    string        `yaml:"sink"` // http | stdout
	URL     string        `yaml:"url"`
	Width   int           `yaml:"width"`
	Timeout time.Duration `yaml:"timeout"`
	Header  []string      `yaml:"header"`
}

type Log struct {
	Level string `yaml:"level"`
}

type User struct {
	Name    string `yaml:"name"`
	Role    string `yaml:"role"`
	PINHash string `yaml:"pin_hash"`
}

// Load reads .env (if present), the YAML file at path (if present), applies
// defaults and then POS_* environment overrides.
func Load(path string) (*App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &App{}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) applyDefaults() {
	t := &c.Terminal
	if t.Name == "" {
		t.Name = "caja-1"
	}
	if t.TableCount == 0 {
		t.TableCount = 10
	}
	if t.FolioBase == 0 {
		t.FolioBase = 1000
	}
	if t.FolioBackend == "" {
		t.FolioBackend = "postgres"
	}
	if t.Storage == "" {
		t.Storage = "postgres"
	}
	if t.Tickets == "" {
		t.Tickets = "amqp"
	}
	if t.Location == "" {
		t.Location = "Local"
	}
	if len(t.PreferredCategories) == 0 {
		t.PreferredCategories = []string{
			"Desayunos", "Entradas", "Asada y Arrachera", "Antojitos Mexicanos",
			"Guisados", "Otros", "Bebidas",
		}
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.RabbitMQ.Port == 0 {
		c.RabbitMQ.Port = 5672
	}
	if c.RabbitMQ.VHost == "" {
		c.RabbitMQ.VHost = "/"
	}
	if c.RabbitMQ.Prefetch <= 0 {
		c.RabbitMQ.Prefetch = 1
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Outbox.Path == "" {
		c.Outbox.Path = "./data/outbox.db"
	}
	if c.Outbox.RetryInterval <= 0 {
		c.Outbox.RetryInterval = 5 * time.Minute
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":3000"
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 5 * time.Second
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.Printer.Sink == "" {
		c.Printer.Sink = "stdout"
	}
	if c.Printer.URL == "" {
		c.Printer.URL = "http://localhost:4000/print"
	}
	if c.Printer.Width <= 0 {
		c.Printer.Width = 42
	}
	if c.Printer.Timeout <= 0 {
		c.Printer.Timeout = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *App) applyEnv() {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	str("POS_TERMINAL_NAME", &c.Terminal.Name)
	num("POS_TABLE_COUNT", &c.Terminal.TableCount)
	str("POS_STORAGE", &c.Terminal.Storage)
	str("POS_FOLIO_BACKEND", &c.Terminal.FolioBackend)
	str("POS_TICKETS", &c.Terminal.Tickets)
	str("POS_DATABASE_HOST", &c.Database.Host)
	num("POS_DATABASE_PORT", &c.Database.Port)
	str("POS_DATABASE_USER", &c.Database.User)
	str("POS_DATABASE_PASSWORD", &c.Database.Password)
	str("POS_DATABASE_NAME", &c.Database.Name)
	str("POS_RABBITMQ_HOST", &c.RabbitMQ.Host)
	num("POS_RABBITMQ_PORT", &c.RabbitMQ.Port)
	str("POS_RABBITMQ_USER", &c.RabbitMQ.User)
	str("POS_RABBITMQ_PASSWORD", &c.RabbitMQ.Password)
	str("POS_REDIS_ADDR", &c.Redis.Addr)
	str("POS_REDIS_PASSWORD", &c.Redis.Password)
	str("POS_OUTBOX_PATH", &c.Outbox.Path)
	str("POS_HTTP_ADDR", &c.HTTP.Addr)
	str("POS_PRINTER_SINK", &c.Printer.Sink)
	str("POS_PRINTER_URL", &c.Printer.URL)
	str("POS_LOG_LEVEL", &c.Log.Level)
}

func (c *App) Validate() error {
	var errs []error
	if c.Terminal.TableCount < 1 {
		errs = append(errs, fmt.Errorf("terminal.table_count must be >= 1, got %d", c.Terminal.TableCount))
	}
	if c.Terminal.FolioBase < 0 {
		errs = append(errs, fmt.Errorf("terminal.folio_base must be >= 0"))
	}
	switch c.Terminal.Storage {
	case "postgres":
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required for postgres storage"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown terminal.storage %q", c.Terminal.Storage))
	}
	switch c.Terminal.FolioBackend {
	case "postgres":
		if c.Terminal.Storage != "postgres" {
			errs = append(errs, errors.New("folio_backend postgres requires postgres storage"))
		}
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown terminal.folio_backend %q", c.Terminal.FolioBackend))
	}
	switch c.Terminal.Tickets {
	case "amqp":
		if c.RabbitMQ.Host == "" {
			errs = append(errs, errors.New("rabbitmq.host is required for amqp tickets"))
		}
	case "local":
	default:
		errs = append(errs, fmt.Errorf("unknown terminal.tickets %q", c.Terminal.Tickets))
	}
	switch c.Printer.Sink {
	case "http", "stdout":
	default:
		errs = append(errs, fmt.Errorf("unknown printer.sink %q", c.Printer.Sink))
	}
	return errors.Join(errs...)
}
