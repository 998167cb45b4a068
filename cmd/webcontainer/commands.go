package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/janmbaco/go-webcontainer/internal/application/startup"
	"github.com/spf13/cobra"
)

type options struct {
	configFile   string
	topologyFile string
}

func newRootCommand(bootstrapper *ServerBootstrapper) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "webcontainer",
		Short:         "Run web applications declared in an HCL topology file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "application config file")
	root.PersistentFlags().StringVar(&opts.topologyFile, "topology", "", "topology file overriding the one in the config")
	_ = root.MarkPersistentFlagRequired("config")

	root.AddCommand(newRunCommand(bootstrapper, opts), newValidateCommand(bootstrapper, opts))
	return root
}

func newRunCommand(bootstrapper *ServerBootstrapper, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build the topology and serve until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner := startup.NewApplicationRunner(opts.configFile, opts.topologyFile, bootstrapper.CreateDefaultConfig())
			return runner.Run(ctx, bootstrapper.BuildContainer())
		},
	}
}

func newValidateCommand(bootstrapper *ServerBootstrapper, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and its topology without serving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			validator := startup.NewConfigValidator()
			if err := validator.Validate(bootstrapper.BuildContainer(), opts.configFile, opts.topologyFile, bootstrapper.CreateDefaultConfig()); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return err
		},
	}
}

func execute(ctx context.Context, bootstrapper *ServerBootstrapper, args []string) error {
	root := newRootCommand(bootstrapper)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
