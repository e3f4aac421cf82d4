package actionscore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T, env map[string]string) (*Core, *bytes.Buffer) {
	t.Helper()
	stdout := &bytes.Buffer{}
	return New(func(key string) string { return env[key] }, stdout), stdout
}

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func TestGetInput(t *testing.T) {
	core, _ := newTestCore(t, map[string]string{
		"INPUT_KEYS":                 "  node-test  ",
		"INPUT_MY_INPUT":             "spaces",
		"INPUT_FAIL-ON-CACHE-MISS":   "true",
		"INPUT_ENABLECROSSOSARCHIVE": "False",
		"INPUT_LOOKUP-ONLY":          "yes",
		"INPUT_PATHS":                "a\n\n  b  \n",
	})
	core.WithInputDefaults(map[string]string{"Restore-Keys": "fallback"})

	val, err := core.GetInput("keys", InputOptions{})
	require.NoError(t, err)
	assert.Equal(t, "node-test", val)

	val, err = core.GetInput("keys", InputOptions{KeepWhitespace: true})
	require.NoError(t, err)
	assert.Equal(t, "  node-test  ", val)

	val, err = core.GetInput("my input", InputOptions{})
	require.NoError(t, err)
	assert.Equal(t, "spaces", val)

	val, err = core.GetInput("restore-keys", InputOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", val)

	_, err = core.GetInput("missing", InputOptions{Required: true})
	assert.EqualError(t, err, "Input required and not supplied: missing")

	b, err := core.GetBooleanInput("fail-on-cache-miss", InputOptions{})
	require.NoError(t, err)
	assert.True(t, b)

	b, err = core.GetBooleanInput("enableCrossOsArchive", InputOptions{})
	require.NoError(t, err)
	assert.False(t, b)

	_, err = core.GetBooleanInput("lookup-only", InputOptions{})
	assert.ErrorContains(t, err, `Input does not meet YAML 1.2 "Core Schema" specification: lookup-only`)

	lines, err := core.GetMultilineInput("paths", InputOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)
}

func TestSetOutputFileCommand(t *testing.T) {
	outputPath := touch(t, "output")
	statePath := touch(t, "state")
	core, stdout := newTestCore(t, map[string]string{
		"GITHUB_OUTPUT": outputPath,
		"GITHUB_STATE":  statePath,
	})

	require.NoError(t, core.SetOutput("cache-hits", "[true,false]"))
	require.NoError(t, core.SetOutput("multi", "line1\nline2"))
	require.NoError(t, core.SaveState("CACHE_KEYS", `["a","b"]`))
	assert.Empty(t, stdout.String())

	outputs, err := ReadFileCommand(outputPath)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"cache-hits": "[true,false]",
		"multi":      "line1\nline2",
	}, outputs)

	state, err := ReadFileCommand(statePath)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"CACHE_KEYS": `["a","b"]`}, state)
}

func TestSetOutputMissingFile(t *testing.T) {
	core, _ := newTestCore(t, map[string]string{
		"GITHUB_OUTPUT": filepath.Join(t.TempDir(), "missing"),
	})
	err := core.SetOutput("x", "y")
	assert.ErrorContains(t, err, "Missing file at path")
}

func TestSetOutputLegacyCommand(t *testing.T) {
	core, stdout := newTestCore(t, nil)

	require.NoError(t, core.SetOutput("cache-hits", "[true]"))
	require.NoError(t, core.SaveState("CACHE_KEYS", "a\nb"))
	core.SetSecret("https://cache/artifacts/1")
	core.SetSecret("")

	assert.Equal(t, strings.Join([]string{
		"::set-output name=cache-hits::[true]",
		"::save-state name=CACHE_KEYS::a%0Ab",
		"::add-mask::https://cache/artifacts/1",
		"",
	}, "\n"), stdout.String())
}

func TestGetState(t *testing.T) {
	core, _ := newTestCore(t, map[string]string{
		"STATE_CACHE_RESULTS": `["node-test"]`,
		"RUNNER_DEBUG":        "1",
	})
	assert.Equal(t, `["node-test"]`, core.GetState("CACHE_RESULTS"))
	assert.Equal(t, "", core.GetState("CACHE_KEYS"))
	assert.True(t, core.IsDebug())
}

func TestFormatCommand(t *testing.T) {
	assert.Equal(t, "::warning::100%25 done%0D%0A", FormatCommand("warning", nil, "100% done\r\n"))
	assert.Equal(t, "::set-output name=a%3Ab%2Cc::v", FormatCommand("set-output", map[string]string{"name": "a:b,c"}, "v"))
	assert.Equal(t, "::error file=x.go,line=3::boom", FormatCommand("error", map[string]string{
		"line": "3",
		"file": "x.go",
		"col":  "",
	}, "boom"))
}

func TestParseFileCommandErrors(t *testing.T) {
	_, err := ParseFileCommand(strings.NewReader("name<<EOF\nvalue\n"))
	assert.EqualError(t, err, "invalid format delimiter 'EOF' not found before end of file")

	_, err = ParseFileCommand(strings.NewReader("garbage\n"))
	assert.EqualError(t, err, "invalid format 'garbage', expected a line with '=' or '<<'")

	values, err := ParseFileCommand(strings.NewReader("a=1\na=2\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "2"}, values)
}

func TestCommandFormatter(t *testing.T) {
	out := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&CommandFormatter{PrefixField: "key"})

	logger.Debug("lookup")
	logger.Info("Cache restored successfully")
	logger.WithField("key", "node-test").Info("Cache Size: ~0 MB (10 B)")
	logger.Warn("Failed to restore: boom")
	logger.Error("Key Validation Error: a,b cannot contain commas.")

	assert.Equal(t, strings.Join([]string{
		"::debug::lookup",
		"Cache restored successfully",
		"[node-test] Cache Size: ~0 MB (10 B)",
		"::warning::Failed to restore: boom",
		"::error::Key Validation Error: a,b cannot contain commas.",
		"",
	}, "\n"), out.String())
}
