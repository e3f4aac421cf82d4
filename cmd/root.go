package cmd

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nektos/cache-multi/pkg/actionscore"
	"github.com/nektos/cache-multi/pkg/common"
)

// Execute is the entry point to running the CLI
func Execute(ctx context.Context, version string) {
	input := new(Input)
	rootCmd := createRootCommand(ctx, input, version)
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func createRootCommand(ctx context.Context, input *Input, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "cache-multi",
		Short:             "Restore several GitHub Actions cache entries in one step.",
		Args:              cobra.NoArgs,
		PersistentPreRunE: setup(input),
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	rootCmd.PersistentFlags().BoolVarP(&input.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&input.jsonLogger, "json", false, "Output logs in json format")
	rootCmd.PersistentFlags().StringVar(&input.envFile, "env-file", "", "environment file to read and use as env in the step")
	rootCmd.PersistentFlags().StringVarP(&input.configPath, "config", "c", "", "config file, defaults to ./cache-multi.yaml")

	restoreFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&input.actionPath, "action", "", "action.yml to take input defaults from, defaults to $GITHUB_ACTION_PATH/action.yml")
		cmd.Flags().IntVarP(&input.parallel, "parallel", "p", 0, "number of keys restored concurrently, defaults to all of them")
	}

	restoreOnlyCmd := &cobra.Command{
		Use:   "restore-only",
		Short: "Restore caches and publish the keys as step outputs",
		Args:  cobra.NoArgs,
		RunE:  newRestoreCommand(ctx, input, false),
	}
	restoreFlags(restoreOnlyCmd)

	restoreCmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore caches and save the keys as state for the post step",
		Args:  cobra.NoArgs,
		RunE:  newRestoreCommand(ctx, input, true),
	}
	restoreFlags(restoreCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the actions cache protocol from a local directory",
		Args:  cobra.NoArgs,
		RunE:  newServeCommand(ctx, input),
	}
	serveCmd.Flags().StringVar(&input.cacheServerPath, "cache-server-path", "", "Defines the path where the cache server stores caches.")
	serveCmd.Flags().StringVar(&input.cacheServerAddr, "cache-server-addr", "", "Defines the address to which the cache server binds.")
	serveCmd.Flags().Uint16Var(&input.cacheServerPort, "cache-server-port", 0, "Defines the port where the cache server listens. 0 means a randomly available port.")
	serveCmd.Flags().BoolVar(&input.cacheServerPrintAuth, "print-token", false, "print an ACTIONS_RUNTIME_TOKEN accepted by the server")

	rootCmd.AddCommand(restoreOnlyCmd, restoreCmd, serveCmd)
	return rootCmd
}

func setup(input *Input) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		// the formatter comes first so setup errors reach the runner as ::error::
		switch {
		case os.Getenv("GITHUB_ACTIONS") == "true":
			// the runner hides ::debug:: lines unless step debugging is on
			log.SetOutput(cmd.OutOrStdout())
			log.SetFormatter(&actionscore.CommandFormatter{PrefixField: "key"})
			log.SetLevel(log.DebugLevel)
		case input.jsonLogger:
			log.SetFormatter(&log.JSONFormatter{})
		default:
			log.SetFormatter(&log.TextFormatter{
				ForceColors:   common.CheckIfColorable(os.Stderr),
				FullTimestamp: true,
			})
		}
		if input.verbose {
			log.SetLevel(log.DebugLevel)
		}

		if input.envFile != "" {
			if err := godotenv.Load(input.envFile); err != nil {
				return err
			}
		}
		return nil
	}
}
