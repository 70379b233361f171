// Package cli implements the lega-e2e command line.
package cli

import (
	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nbisweden/lega-e2e/internal/config"
)

const envPrefix = "LEGA_E2E"

// rootOptions carries the resolved configuration to subcommands.
type rootOptions struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Configuration
	logger  *zap.Logger
}

func NewRootCommand() (*cobra.Command, error) {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "lega-e2e",
		Short:         "End-to-end ingestion tests for a LocalEGA deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: cobrautil.CommandStack(
			cobrautil.SyncViperPreRunE(envPrefix),
			opts.load,
		),
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	defaults, err := config.NewConfigurationWithDefaults()
	if err != nil {
		return nil, err
	}
	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (yaml, json or toml)")
	if err := registerConfigFlags(cmd.PersistentFlags(), opts.v, defaults); err != nil {
		return nil, err
	}

	cmd.AddCommand(
		newIngestCommand(opts),
		newStatusCommand(opts),
		newRunCommand(opts),
		newScenariosCommand(opts),
		newReportCommand(opts),
		newAttemptsCommand(opts),
		newTraceCommand(opts),
	)
	return cmd, nil
}

func (o *rootOptions) load(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(o.v, o.cfgFile)
	if err != nil {
		return err
	}
	o.cfg = cfg

	logger, err := newLogger(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	o.logger = logger
	zap.ReplaceGlobals(logger)
	zap.S().Named("cli").Debugw("configuration loaded", "config", cfg.DebugMap())
	return nil
}
