package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/piwi3910/slabnest/internal/model"
	"github.com/piwi3910/slabnest/internal/project"
	"github.com/piwi3910/slabnest/internal/telemetry"
)

// rootOptions holds the persistent flags and what PersistentPreRunE builds
// from them.
type rootOptions struct {
	configPath string
	logLevel   string
	trace      bool

	config model.AppConfig
	log    *logrus.Logger
	tp     *sdktrace.TracerProvider
}

// Execute runs the CLI, cancelling the context on SIGINT or SIGTERM.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "slabnest",
		Short:        "Nest 2D objects onto one or more sheets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return telemetry.ShutdownTracing(context.WithoutCancel(cmd.Context()), opts.tp)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", project.DefaultConfigPath(), "Path to the application config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.PersistentFlags().BoolVar(&opts.trace, "trace", false, "Log finished trace spans at debug level")

	cmd.AddCommand(
		newNestCmd(opts),
		newCompareCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// setup loads the app config and configures logging. The config's log level
// applies unless --log is given.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := project.LoadAppConfig(o.configPath)
	if err != nil {
		return err
	}
	o.config = cfg

	level := o.logLevel
	if !cmd.Flags().Changed("log") && cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	log, err := telemetry.NewLogger(cmd.ErrOrStderr(), level)
	if err != nil {
		return err
	}
	o.log = log

	if o.trace {
		o.tp = telemetry.InitTracing(log.WithField("component", "trace"))
	}
	return nil
}

// component returns a log entry tagged with a component name.
func (o *rootOptions) component(name string) *logrus.Entry {
	return o.log.WithField("component", name)
}
