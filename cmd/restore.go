package cmd

import (
	"context"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nektos/cache-multi/pkg/actionscore"
	"github.com/nektos/cache-multi/pkg/cache"
	"github.com/nektos/cache-multi/pkg/common"
	"github.com/nektos/cache-multi/pkg/config"
	"github.com/nektos/cache-multi/pkg/restore"
)

func newRestoreCommand(ctx context.Context, input *Input, persistState bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(input.configPath)
		if err != nil {
			return err
		}

		defaults, err := input.InputDefaults()
		if err != nil {
			return err
		}
		core := actionscore.New(os.Getenv, cmd.OutOrStdout()).WithInputDefaults(defaults)

		getenv := func(key string) string {
			if v := os.Getenv(key); v != "" {
				return v
			}
			if key == "SEGMENT_DOWNLOAD_TIMEOUT_MINS" && cfg.SegmentDownloadTimeoutMins > 0 {
				return strconv.Itoa(cfg.SegmentDownloadTimeoutMins)
			}
			return ""
		}
		c := cache.New(cache.Options{
			BaseURL:   cfg.CacheURL,
			Token:     cfg.RuntimeToken,
			Workspace: cfg.Workspace,
			TempDir:   cfg.RunnerTemp,
			Getenv:    getenv,
			Masker:    core,
		})

		var provider restore.StateProvider = restore.NewNullStateProvider(core)
		if persistState {
			provider = restore.NewPersistentStateProvider(core)
		}

		parallel := input.parallel
		if parallel == 0 {
			parallel = cfg.Parallel
		}

		return restore.Run(common.WithLogger(ctx, log.StandardLogger()), restore.Config{
			Core:      core,
			Cache:     c,
			Parallel:  parallel,
			ServerURL: cfg.ServerURL,
		}, provider)
	}
}
