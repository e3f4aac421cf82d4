package model

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ActionRunsUsing is the type of runner for the action
type ActionRunsUsing string

func (a *ActionRunsUsing) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var using string
	if err := unmarshal(&using); err != nil {
		return err
	}

	// Force input to lowercase for case insensitive comparison
	format := ActionRunsUsing(strings.ToLower(using))
	switch format {
	case ActionRunsUsingNode20, ActionRunsUsingDocker, ActionRunsUsingComposite:
		*a = format
	default:
		return fmt.Errorf("the runs.using key in action.yml must be one of: %v, got %s", []string{
			ActionRunsUsingComposite,
			ActionRunsUsingDocker,
			ActionRunsUsingNode20,
		}, format)
	}
	return nil
}

const (
	// ActionRunsUsingNode20 for running with node20
	ActionRunsUsingNode20 = "node20"
	// ActionRunsUsingDocker for running with docker
	ActionRunsUsingDocker = "docker"
	// ActionRunsUsingComposite for running composite
	ActionRunsUsingComposite = "composite"
)

// ActionRuns are a field in Action
type ActionRuns struct {
	Using      ActionRunsUsing   `yaml:"using"`
	Env        map[string]string `yaml:"env"`
	Main       string            `yaml:"main"`
	Post       string            `yaml:"post"`
	PostIf     string            `yaml:"post-if"`
	Image      string            `yaml:"image"`
	Entrypoint string            `yaml:"entrypoint"`
	Args       []string          `yaml:"args"`
}

// Action describes the action.yml metadata file: the inputs the action reads,
// the outputs it sets and how the runner starts it.
type Action struct {
	Name        string            `yaml:"name"`
	Author      string            `yaml:"author"`
	Description string            `yaml:"description"`
	Inputs      map[string]Input  `yaml:"inputs"`
	Outputs     map[string]Output `yaml:"outputs"`
	Runs        ActionRuns        `yaml:"runs"`
	Branding    struct {
		Color string `yaml:"color"`
		Icon  string `yaml:"icon"`
	} `yaml:"branding"`
}

// Input parameters are exposed to the action as INPUT_<NAME> environment
// variables. Input ids are case insensitive.
type Input struct {
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	Default     string `yaml:"default"`
}

// Output parameters are the values an action sets for later steps.
type Output struct {
	Description string `yaml:"description"`
	Value       string `yaml:"value"`
}

// ReadAction reads an action from a reader. Anchors and aliases are expanded
// before decoding, recursive aliases are rejected.
func ReadAction(in io.Reader) (*Action, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(in).Decode(&node); err != nil {
		return nil, err
	}
	if err := resolveAliases(&node); err != nil {
		return nil, err
	}
	a := new(Action)
	if err := node.Decode(a); err != nil {
		return nil, err
	}
	return a, nil
}

// ReadActionFile reads the action metadata at path
func ReadActionFile(path string) (*Action, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := ReadAction(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return a, nil
}

// InputDefaults returns the declared default of every input that has one,
// keyed by lower-cased input id.
func (a *Action) InputDefaults() map[string]string {
	defaults := make(map[string]string, len(a.Inputs))
	for name, input := range a.Inputs {
		if input.Default != "" {
			defaults[strings.ToLower(name)] = input.Default
		}
	}
	return defaults
}
