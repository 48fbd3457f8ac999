package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/latoulicious/wavbot/internal/config"
	"github.com/latoulicious/wavbot/pkg/pipeline"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *pipeline.StructuredLogger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.LoadConfig(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() pipeline.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil || cfg == nil {
			c.logger = pipeline.NewStructuredLogger(pipeline.LoggingConfig{Level: "info", Output: "stderr"})
			return
		}
		logging := cfg.Logging
		if logging.Output == "" {
			logging.Output = "stderr"
		}
		c.logger = pipeline.NewStructuredLogger(logging)
	})
	return c.logger
}

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "wavbot",
		Short:         "YouTube to WAV Discord bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (defaults to $WAVBOT_CONFIG)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newCommandsCommand(ctx))
	rootCmd.AddCommand(newConvertCommand(ctx))
	rootCmd.AddCommand(newBinCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))

	return rootCmd
}
