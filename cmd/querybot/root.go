package main

import (
	"github.com/spf13/cobra"

	"github.com/randalmurphal/querybot/internal/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "querybot",
		Short: "Product query bot",
		Long: `querybot routes shopper questions either straight to an answer model or
through product retrieval first, and remembers the last answer per session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: search for querybot.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newAskCommand(opts))
	cmd.AddCommand(newStatsCommand())

	return cmd
}

// load reads configuration and applies flag overrides.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
