package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/nektos/cache-multi/pkg/common"
)

// Config is the environment the restore runs in plus the settings of the
// local cache server. Every key can be set from the environment (upper-cased,
// dots replaced by underscores) or from a config file.
type Config struct {
	CacheURL                   string `mapstructure:"actions_cache_url"`
	RuntimeToken               string `mapstructure:"actions_runtime_token"`
	Workspace                  string `mapstructure:"github_workspace"`
	RunnerTemp                 string `mapstructure:"runner_temp"`
	ServerURL                  string `mapstructure:"github_server_url"`
	SegmentDownloadTimeoutMins int    `mapstructure:"segment_download_timeout_mins"`
	Parallel                   int    `mapstructure:"parallel"`

	CacheServer CacheServerConfig `mapstructure:"cache_server"`
}

// CacheServerConfig configures `cache-multi serve`.
type CacheServerConfig struct {
	Path       string `mapstructure:"path"`
	Addr       string `mapstructure:"addr"`
	Port       uint16 `mapstructure:"port"`
	Secret     string `mapstructure:"secret"`
	RequireJWT bool   `mapstructure:"require_jwt"`
}

// LoadConfig reads the config file at configPath, or ./cache-multi.yaml when
// configPath is empty, and applies environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("actions_cache_url", "")
	v.SetDefault("actions_runtime_token", "")
	v.SetDefault("github_workspace", "")
	v.SetDefault("runner_temp", "")
	v.SetDefault("github_server_url", "https://github.com")
	v.SetDefault("segment_download_timeout_mins", 0)
	v.SetDefault("parallel", 0)
	v.SetDefault("cache_server.path", filepath.Join(xdg.CacheHome, "actcache"))
	v.SetDefault("cache_server.addr", "")
	v.SetDefault("cache_server.port", 0)
	v.SetDefault("cache_server.secret", "")
	v.SetDefault("cache_server.require_jwt", false)

	// Env overrides
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("cache-multi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.RunnerTemp == "" {
		cfg.RunnerTemp = common.LookupDefaultEnv("RUNNER_TEMP")
	}
	if cfg.Workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		cfg.Workspace = wd
	}

	return &cfg, nil
}
