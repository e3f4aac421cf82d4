package common

import (
	"os"
)

var defaultEnvironment = map[string][]string{
	"RUNNER_TEMP":      {"$XDG_CACHE_HOME", "$HOME/.cache", "/tmp"},
	"GITHUB_WORKSPACE": {"$PWD", "."},
}

// LookupDefaultEnv returns the value of envKey, or the first existing
// directory from its fallback list when the runner did not set it.
func LookupDefaultEnv(envKey string) string {
	return lookupDefaultEnv(os.Getenv, envKey)
}

func lookupDefaultEnv(getenv func(string) string, envKey string) string {
	if envValue := getenv(envKey); envValue != "" {
		return envValue
	}

	// defaulting to the last element in the list
	env := ""
	for _, v := range defaultEnvironment[envKey] {
		env = os.Expand(v, getenv)
		if env == "" {
			continue
		}
		if _, err := os.Stat(env); err == nil {
			return env
		}
	}
	return env
}
