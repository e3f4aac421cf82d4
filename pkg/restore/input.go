package restore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Inputs are the parsed, validated inputs of one restore.
type Inputs struct {
	Keys        []string
	Paths       [][]string
	RestoreKeys [][]string

	EnableCrossOsArchive bool
	FailOnCacheMiss      bool
	LookupOnly           bool
}

func (in *Inputs) restoreKeys(i int) []string {
	if i < len(in.RestoreKeys) {
		return in.RestoreKeys[i]
	}
	return nil
}

func (in *Inputs) validate() error {
	if len(in.Keys) == 0 {
		return fmt.Errorf("Input Validation Error: at least one key is required")
	}
	if len(in.Paths) != len(in.Keys) {
		return fmt.Errorf("Input Validation Error: expected %d path lists, one per key, got %d", len(in.Keys), len(in.Paths))
	}
	if len(in.RestoreKeys) > len(in.Keys) {
		return fmt.Errorf("Input Validation Error: expected at most %d restore key lists, got %d", len(in.Keys), len(in.RestoreKeys))
	}
	return nil
}

// stringToArray splits a newline separated list, dropping blank lines.
func stringToArray(s string) []string {
	var ret []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ret = append(ret, line)
		}
	}
	return ret
}

// parseList reads a JSON array of strings or a newline separated list.
func parseList(name, s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return stringToArray(s), nil
	}
	var ret []string
	if err := json.Unmarshal([]byte(s), &ret); err != nil {
		return nil, fmt.Errorf("Input Validation Error: %s: %w", name, err)
	}
	return ret, nil
}

// parseListOfLists reads a JSON array whose elements are each a JSON array
// of strings or a newline separated string. A value that is not a JSON array
// is a single newline separated list.
func parseListOfLists(name, s string) ([][]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "[") {
		return [][]string{stringToArray(s)}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("Input Validation Error: %s: %w", name, err)
	}
	ret := make([][]string, 0, len(raw))
	for i, elem := range raw {
		var list []string
		if err := json.Unmarshal(elem, &list); err == nil {
			ret = append(ret, list)
			continue
		}
		var str string
		if err := json.Unmarshal(elem, &str); err != nil {
			return nil, fmt.Errorf("Input Validation Error: %s[%d] must be a list of strings or a string", name, i)
		}
		ret = append(ret, stringToArray(str))
	}
	return ret, nil
}

// toJSON encodes v the way JSON.stringify does, without HTML escaping.
func toJSON(v any) (string, error) {
	sb := &strings.Builder{}
	enc := json.NewEncoder(sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(sb.String(), "\n"), nil
}
