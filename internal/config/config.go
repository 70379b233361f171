package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/creasty/defaults"

	"github.com/nbisweden/lega-e2e/internal/infra"
)

type Configuration struct {
	Instance  string   `mapstructure:"instance" default:"lega" debugmap:"visible"`
	User      string   `mapstructure:"user" default:"" debugmap:"visible"`
	Broker    Broker   `mapstructure:"broker" debugmap:"visible"`
	Database  Database `mapstructure:"database" debugmap:"visible"`
	Ingest    Ingest   `mapstructure:"ingest" debugmap:"visible"`
	Archive   Archive  `mapstructure:"archive" debugmap:"visible"`
	Infra     Infra    `mapstructure:"infra" debugmap:"visible"`
	Report    Report   `mapstructure:"report" debugmap:"visible"`
	TraceFile string   `mapstructure:"trace-file" default:".tmp/.trace" debugmap:"visible"`
	ResultsDB string   `mapstructure:"results-db" default:"results.duckdb" debugmap:"visible"`
	LogFormat string   `mapstructure:"log-format" default:"console" debugmap:"visible"`
	LogLevel  string   `mapstructure:"log-level" default:"info" debugmap:"visible"`
}

type Broker struct {
	// URL without credentials is completed from the trace file.
	URL        string `mapstructure:"url" default:"amqp://localhost:5672/lega" debugmap:"hidden"`
	Exchange   string `mapstructure:"exchange" default:"localega.v1" debugmap:"visible"`
	RoutingKey string `mapstructure:"routing-key" default:"files" debugmap:"visible"`
}

type Database struct {
	DSN        string `mapstructure:"dsn" default:"postgres://localhost:5432/lega?sslmode=disable" debugmap:"hidden"`
	FileColumn string `mapstructure:"file-column" default:"inbox_path" debugmap:"visible"`
}

type Ingest struct {
	MaxTimeout          time.Duration `mapstructure:"max-timeout" default:"60s" debugmap:"visible"`
	PollInterval        time.Duration `mapstructure:"poll-interval" default:"1s" debugmap:"visible"`
	SettleDelay         time.Duration `mapstructure:"settle-delay" default:"1s" debugmap:"visible"`
	ArchivedIsTransient bool          `mapstructure:"archived-is-transient" default:"false" debugmap:"visible"`
	Workers             int           `mapstructure:"workers" default:"4" debugmap:"visible"`
	ReadyTimeout        time.Duration `mapstructure:"ready-timeout" default:"2m" debugmap:"visible"`
}

type Archive struct {
	Endpoint  string `mapstructure:"endpoint" default:"" debugmap:"visible"`
	Region    string `mapstructure:"region" default:"us-east-1" debugmap:"visible"`
	Bucket    string `mapstructure:"bucket" default:"lega" debugmap:"visible"`
	AccessKey string `mapstructure:"access-key" default:"" debugmap:"hidden"`
	SecretKey string `mapstructure:"secret-key" default:"" debugmap:"hidden"`
}

type Infra struct {
	Mode         string     `mapstructure:"mode" default:"external" debugmap:"visible"`
	PodmanSocket string     `mapstructure:"podman-socket" default:"unix:///run/user/1000/podman/podman.sock" debugmap:"visible"`
	Containers   Containers `mapstructure:"containers" debugmap:"visible"`
}

type Containers struct {
	Keys   string `mapstructure:"keys" default:"keys" debugmap:"visible"`
	DB     string `mapstructure:"db" default:"db" debugmap:"visible"`
	MQ     string `mapstructure:"mq" default:"mq" debugmap:"visible"`
	Inbox  string `mapstructure:"inbox" default:"inbox" debugmap:"visible"`
	Ingest string `mapstructure:"ingest" default:"ingest" debugmap:"visible"`
	Vault  string `mapstructure:"vault" default:"vault" debugmap:"visible"`
}

func (c Containers) Map() infra.Containers {
	return infra.Containers{
		infra.RoleKeys:   c.Keys,
		infra.RoleDB:     c.DB,
		infra.RoleMQ:     c.MQ,
		infra.RoleInbox:  c.Inbox,
		infra.RoleIngest: c.Ingest,
		infra.RoleVault:  c.Vault,
	}
}

type Report struct {
	ServerMode string `mapstructure:"server-mode" default:"dev" debugmap:"visible"`
	HTTPPort   int    `mapstructure:"http-port" default:"8088" debugmap:"visible"`
}

// NewConfigurationWithDefaults returns a Configuration with every default
// tag applied.
func NewConfigurationWithDefaults() (*Configuration, error) {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply configuration defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks the values every command relies on.
func (c *Configuration) Validate() error {
	if c.Ingest.MaxTimeout <= 0 {
		return errors.New("ingest max timeout must be positive")
	}
	if c.Ingest.PollInterval <= 0 {
		return errors.New("ingest poll interval must be positive")
	}
	if c.Ingest.SettleDelay < 0 {
		return errors.New("ingest settle delay must not be negative")
	}
	if c.Ingest.Workers < 1 {
		return errors.New("ingest workers must be at least 1")
	}
	if c.Infra.Mode != infra.ModeContainer && c.Infra.Mode != infra.ModeExternal {
		return fmt.Errorf("invalid infra mode %q: must be %q or %q", c.Infra.Mode, infra.ModeContainer, infra.ModeExternal)
	}
	if c.Report.ServerMode != "dev" && c.Report.ServerMode != "prod" {
		return fmt.Errorf("invalid server mode %q: must be 'dev' or 'prod'", c.Report.ServerMode)
	}
	if _, err := url.Parse(c.Broker.URL); err != nil {
		return fmt.Errorf("failed to parse broker url: %v", err)
	}
	if c.Archive.Endpoint != "" {
		if _, err := url.Parse(c.Archive.Endpoint); err != nil {
			return fmt.Errorf("failed to parse archive endpoint: %v", err)
		}
	}
	return nil
}

// DebugMap returns the configuration for logging, with fields tagged
// debugmap:"hidden" masked.
func (c *Configuration) DebugMap() map[string]any {
	return debugMap(c)
}
