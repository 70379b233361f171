package cli

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nbisweden/lega-e2e/internal/config"
)

// binder registers a flag and binds it to a configuration key.
type binder struct {
	fs   *pflag.FlagSet
	v    *viper.Viper
	errs []error
}

func (b *binder) bind(key, name string) {
	if err := b.v.BindPFlag(key, b.fs.Lookup(name)); err != nil {
		b.errs = append(b.errs, err)
	}
}

func (b *binder) str(key, name, def, usage string) {
	b.fs.String(name, def, usage)
	b.bind(key, name)
}

func (b *binder) duration(key, name string, def time.Duration, usage string) {
	b.fs.Duration(name, def, usage)
	b.bind(key, name)
}

func (b *binder) integer(key, name string, def int, usage string) {
	b.fs.Int(name, def, usage)
	b.bind(key, name)
}

func (b *binder) boolean(key, name string, def bool, usage string) {
	b.fs.Bool(name, def, usage)
	b.bind(key, name)
}

// registerConfigFlags declares one persistent flag per configuration value,
// defaulting to the tag defaults of config.Configuration.
func registerConfigFlags(fs *pflag.FlagSet, v *viper.Viper, d *config.Configuration) error {
	b := &binder{fs: fs, v: v}

	b.str("instance", "instance", d.Instance, "LocalEGA instance name, used as broker vhost when the URL has none")
	b.str("user", "user", d.User, "user submitting files")

	b.str("broker.url", "broker-url", d.Broker.URL, "CentralEGA broker URL; credentials default to the trace file")
	b.str("broker.exchange", "exchange", d.Broker.Exchange, "broker exchange")
	b.str("broker.routing-key", "routing-key", d.Broker.RoutingKey, "broker routing key")

	b.str("database.dsn", "db-dsn", d.Database.DSN, "LocalEGA database DSN; credentials default to the trace file")
	b.str("database.file-column", "file-column", d.Database.FileColumn, "files column matched against the file name: inbox_path or filename")

	b.duration("ingest.max-timeout", "max-timeout", d.Ingest.MaxTimeout, "budget for reaching a terminal status")
	b.duration("ingest.poll-interval", "poll-interval", d.Ingest.PollInterval, "sleep between status queries")
	b.duration("ingest.settle-delay", "settle-delay", d.Ingest.SettleDelay, "extra wait after a terminal status")
	b.boolean("ingest.archived-is-transient", "archived-is-transient", d.Ingest.ArchivedIsTransient, "keep polling while the status is Archived")
	b.integer("ingest.workers", "workers", d.Ingest.Workers, "scenarios run concurrently")
	b.duration("ingest.ready-timeout", "ready-timeout", d.Ingest.ReadyTimeout, "wait for the deployment after a restart")

	b.str("archive.endpoint", "s3-endpoint", d.Archive.Endpoint, "archive S3 endpoint; archive checks are skipped when empty")
	b.str("archive.region", "s3-region", d.Archive.Region, "archive S3 region")
	b.str("archive.bucket", "s3-bucket", d.Archive.Bucket, "archive S3 bucket")
	b.str("archive.access-key", "s3-access-key", d.Archive.AccessKey, "archive S3 access key; defaults to the trace file")
	b.str("archive.secret-key", "s3-secret-key", d.Archive.SecretKey, "archive S3 secret key; defaults to the trace file")

	b.str("infra.mode", "infra-mode", d.Infra.Mode, "infrastructure mode: 'container' (Podman) or 'external'")
	b.str("infra.podman-socket", "podman-socket", d.Infra.PodmanSocket, "Podman socket path")
	b.str("infra.containers.keys", "container-keys", d.Infra.Containers.Keys, "keyserver container")
	b.str("infra.containers.db", "container-db", d.Infra.Containers.DB, "database container")
	b.str("infra.containers.mq", "container-mq", d.Infra.Containers.MQ, "local broker container")
	b.str("infra.containers.inbox", "container-inbox", d.Infra.Containers.Inbox, "inbox container")
	b.str("infra.containers.ingest", "container-ingest", d.Infra.Containers.Ingest, "ingestion worker container")
	b.str("infra.containers.vault", "container-vault", d.Infra.Containers.Vault, "archive container")

	b.str("report.server-mode", "server-mode", d.Report.ServerMode, "report server mode: 'dev' or 'prod'")
	b.integer("report.http-port", "http-port", d.Report.HTTPPort, "report server port")

	b.str("trace-file", "trace-file", d.TraceFile, "trace file holding generated credentials")
	b.str("results-db", "results-db", d.ResultsDB, "DuckDB results journal")
	b.str("log-format", "log-format", d.LogFormat, "log format: 'console' or 'json'")
	b.str("log-level", "log-level", d.LogLevel, "log level")

	if len(b.errs) > 0 {
		return b.errs[0]
	}
	return nil
}

// loadConfig merges defaults, the optional config file and flags.
func loadConfig(v *viper.Viper, cfgFile string) (*config.Configuration, error) {
	cfg, err := config.NewConfigurationWithDefaults()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
