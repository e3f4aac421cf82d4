package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nektos/cache-multi/pkg/artifactcache"
	"github.com/nektos/cache-multi/pkg/common"
	"github.com/nektos/cache-multi/pkg/config"
)

func newServeCommand(ctx context.Context, input *Input) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(input.configPath)
		if err != nil {
			return err
		}
		server := cfg.CacheServer
		if input.cacheServerPath != "" {
			server.Path = input.cacheServerPath
		}
		if input.cacheServerAddr != "" {
			server.Addr = input.cacheServerAddr
		}
		if input.cacheServerPort != 0 {
			server.Port = input.cacheServerPort
		}

		var opts []artifactcache.Option
		if server.Secret != "" {
			opts = append(opts, artifactcache.WithSecret([]byte(server.Secret)), artifactcache.WithRequireJWT(server.RequireJWT))
		} else if server.RequireJWT {
			return fmt.Errorf("cache_server.require_jwt needs cache_server.secret")
		}

		handler, err := artifactcache.StartHandler(server.Path, server.Addr, server.Port, log.StandardLogger(), opts...)
		if err != nil {
			return err
		}
		defer handler.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "ACTIONS_CACHE_URL=%s\n", handler.CacheURL())
		if input.cacheServerPrintAuth {
			if server.Secret == "" {
				return fmt.Errorf("--print-token needs cache_server.secret")
			}
			token, err := common.CreateAuthorizationToken(0, 0, "refs/heads/main", []byte(server.Secret))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ACTIONS_RUNTIME_TOKEN=%s\n", token)
		}

		<-ctx.Done()
		log.Infof("Shutting down cache server")
		return nil
	}
}
