package actionscore

import (
	"fmt"
	"strings"
)

// InputOptions control how an input is read.
type InputOptions struct {
	// Required makes a missing or empty input an error.
	Required bool
	// KeepWhitespace disables trimming of leading and trailing whitespace.
	KeepWhitespace bool
}

var (
	trueValues  = []string{"true", "True", "TRUE"}
	falseValues = []string{"false", "False", "FALSE"}
)

func inputEnvName(name string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}

// GetInput returns the value of the named input.
func (c *Core) GetInput(name string, opts InputOptions) (string, error) {
	val := c.getenv(inputEnvName(name))
	if val == "" {
		val = c.defaults[strings.ToLower(name)]
	}
	if opts.Required && val == "" {
		return "", fmt.Errorf("Input required and not supplied: %s", name)
	}
	if opts.KeepWhitespace {
		return val, nil
	}
	return strings.TrimSpace(val), nil
}

// GetMultilineInput returns the non-empty lines of the named input.
func (c *Core) GetMultilineInput(name string, opts InputOptions) ([]string, error) {
	val, err := c.GetInput(name, opts)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(val, "\n") {
		if !opts.KeepWhitespace {
			line = strings.TrimSpace(line)
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// GetBooleanInput parses the named input following the YAML 1.2 core schema
// booleans.
func (c *Core) GetBooleanInput(name string, opts InputOptions) (bool, error) {
	val, err := c.GetInput(name, opts)
	if err != nil {
		return false, err
	}
	for _, v := range trueValues {
		if val == v {
			return true, nil
		}
	}
	for _, v := range falseValues {
		if val == v {
			return false, nil
		}
	}
	return false, fmt.Errorf("Input does not meet YAML 1.2 \"Core Schema\" specification: %s\n"+
		"Support boolean input list: `true | True | TRUE | false | False | FALSE`", name)
}
