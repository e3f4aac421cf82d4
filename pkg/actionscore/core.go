// Package actionscore speaks the runner side of the GitHub Actions step
// protocol: inputs arrive as INPUT_* environment variables, outputs and
// state leave through file commands or workflow commands on stdout.
package actionscore

import (
	"io"
	"os"
	"strings"
	"sync"
)

// Core reads inputs and writes outputs, state and masks for one step.
type Core struct {
	getenv   func(string) string
	stdout   io.Writer
	defaults map[string]string

	mu sync.Mutex
}

// New returns a Core bound to the given environment lookup and stdout.
func New(getenv func(string) string, stdout io.Writer) *Core {
	if getenv == nil {
		getenv = os.Getenv
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Core{
		getenv:   getenv,
		stdout:   stdout,
		defaults: map[string]string{},
	}
}

// WithInputDefaults registers values used for inputs the runner did not set,
// typically the defaults declared in action.yml.
func (c *Core) WithInputDefaults(defaults map[string]string) *Core {
	for k, v := range defaults {
		c.defaults[strings.ToLower(k)] = v
	}
	return c
}

// Getenv looks up a variable in the step environment.
func (c *Core) Getenv(name string) string {
	return c.getenv(name)
}

// SetOutput sets a step output.
func (c *Core) SetOutput(name, value string) error {
	if path := c.getenv("GITHUB_OUTPUT"); path != "" {
		message, err := prepareKeyValueMessage(name, value)
		if err != nil {
			return err
		}
		return c.issueFileCommand(path, message)
	}
	return c.issueCommand("set-output", map[string]string{"name": name}, value)
}

// SaveState saves a value for the post step of this action. It is exposed to
// that step as STATE_<name>.
func (c *Core) SaveState(name, value string) error {
	if path := c.getenv("GITHUB_STATE"); path != "" {
		message, err := prepareKeyValueMessage(name, value)
		if err != nil {
			return err
		}
		return c.issueFileCommand(path, message)
	}
	return c.issueCommand("save-state", map[string]string{"name": name}, value)
}

// GetState returns a value saved by SaveState in an earlier step.
func (c *Core) GetState(name string) string {
	return c.getenv("STATE_" + name)
}

// SetSecret registers a value to be masked in the job log.
func (c *Core) SetSecret(secret string) {
	if secret == "" {
		return
	}
	_ = c.issueCommand("add-mask", nil, secret)
}

// IsDebug reports whether step debug logging is enabled.
func (c *Core) IsDebug() bool {
	return c.getenv("RUNNER_DEBUG") == "1"
}

func (c *Core) issueCommand(command string, properties map[string]string, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := io.WriteString(c.stdout, FormatCommand(command, properties, message)+"\n")
	return err
}
