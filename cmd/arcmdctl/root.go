package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/config"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/logging"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/observability"
)

type rootOptions struct {
	configPath   string
	overridePath string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "arcmdctl",
		Short:         "Decode, encode and watch ARSDK command frames",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			observability.InitLogger("arcmdctl")
			if opts.logLevel != "" {
				lvl, ok := logging.ParseLevel(opts.logLevel)
				if !ok {
					return fmt.Errorf("unknown log level %q", opts.logLevel)
				}
				zerolog.SetGlobalLevel(lvl)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	root.PersistentFlags().StringVar(&opts.overridePath, "override", "", "flat TOML file applied after --config")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "trace|debug|info|warn|error")

	root.AddCommand(
		newTableCmd(),
		newDecodeCmd(),
		newEncodeCmd(),
		newListenCmd(opts),
		newMonitorCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// loadConfig applies --config, ARCMD_* and then --override.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.overridePath == "" {
		return cfg, nil
	}
	return applyOverride(cfg, o.overridePath)
}
