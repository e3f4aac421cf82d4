package cmd

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/nektos/cache-multi/pkg/model"
)

// Input contains the input for the root command
type Input struct {
	verbose    bool
	jsonLogger bool
	envFile    string
	configPath string
	actionPath string
	parallel   int

	cacheServerPath      string
	cacheServerAddr      string
	cacheServerPort      uint16
	cacheServerPrintAuth bool
}

// ActionPath returns the action.yml whose input defaults apply, or "" when
// there is none.
func (i *Input) ActionPath() string {
	if i.actionPath != "" {
		return i.actionPath
	}
	if dir := os.Getenv("GITHUB_ACTION_PATH"); dir != "" {
		return filepath.Join(dir, "action.yml")
	}
	return ""
}

// InputDefaults reads the defaults declared in action.yml. A missing default
// action.yml is not an error.
func (i *Input) InputDefaults() (map[string]string, error) {
	path := i.ActionPath()
	if path == "" {
		return nil, nil
	}
	action, err := model.ReadActionFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && i.actionPath == "" {
			log.Debugf("No action metadata at %s", path)
			return nil, nil
		}
		return nil, err
	}
	return action.InputDefaults(), nil
}
