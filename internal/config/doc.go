// Package config defines the configuration of the lega-e2e harness.
//
// Values come from flags, LEGA_E2E_* environment variables or a config
// file, merged by viper in the cli package. Defaults are declared with
// `default` struct tags and applied by NewConfigurationWithDefaults.
//
// # Configuration Structure
//
//	Configuration
//	├── Instance, User  - deployment instance and submitting user
//	├── Broker          - CentralEGA broker connection
//	├── Database        - LocalEGA database holding file records
//	├── Ingest          - polling budget and concurrency
//	├── Archive         - S3 archive to verify ingested files
//	├── Infra           - container control
//	├── Report          - report server
//	├── TraceFile       - generated credentials of the instance
//	├── ResultsDB       - DuckDB results journal
//	├── LogFormat       - console or json
//	└── LogLevel        - logging verbosity
//
// # Ingest Configuration
//
//	┌─────────────────────┬─────────┬──────────────────────────────────────────┐
//	│ Field               │ Default │ Description                              │
//	├─────────────────────┼─────────┼──────────────────────────────────────────┤
//	│ MaxTimeout          │ 60s     │ Budget for reaching a terminal status    │
//	│ PollInterval        │ 1s      │ Sleep between status queries             │
//	│ SettleDelay         │ 1s      │ Extra wait after a terminal status       │
//	│ ArchivedIsTransient │ false   │ Keep polling while the status is Archived│
//	│ Workers             │ 4       │ Scenarios run concurrently               │
//	│ ReadyTimeout        │ 2m      │ Wait for the deployment after a restart  │
//	└─────────────────────┴─────────┴──────────────────────────────────────────┘
//
// # Infra Configuration
//
// Mode "external" leaves the deployment alone; scenarios that stop or
// restart containers then fail. Mode "container" drives Podman through
// PodmanSocket, using the container names under Containers.
//
// # Debug Logging
//
// Fields tagged `debugmap:"hidden"` (URLs and DSNs that may embed
// passwords, S3 keys) are masked by DebugMap:
//
//	zap.S().Debugw("configuration loaded", "config", cfg.DebugMap())
package config
