package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDownloadOptions(t *testing.T) {
	env := map[string]string{}
	getenv := func(key string) string { return env[key] }

	t.Run("defaults", func(t *testing.T) {
		got, err := GetDownloadOptions(nil, getenv)
		require.NoError(t, err)
		assert.Equal(t, DownloadOptions{TimeoutInMs: 30000, SegmentTimeoutInMs: 600000}, got)
	})

	t.Run("overrides", func(t *testing.T) {
		opts := &DownloadOptions{TimeoutInMs: 5, LookupOnly: true}
		got, err := GetDownloadOptions(opts, getenv)
		require.NoError(t, err)
		assert.Equal(t, DownloadOptions{TimeoutInMs: 5, SegmentTimeoutInMs: 600000, LookupOnly: true}, got)
		// the input is not modified
		assert.Equal(t, 0, opts.SegmentTimeoutInMs)
	})

	t.Run("segment timeout from env", func(t *testing.T) {
		env["SEGMENT_DOWNLOAD_TIMEOUT_MINS"] = "2"
		defer delete(env, "SEGMENT_DOWNLOAD_TIMEOUT_MINS")

		got, err := GetDownloadOptions(&DownloadOptions{SegmentTimeoutInMs: 10}, getenv)
		require.NoError(t, err)
		assert.Equal(t, 120000, got.SegmentTimeoutInMs)
	})

	t.Run("invalid segment timeout is ignored", func(t *testing.T) {
		for _, v := range []string{"abc", "0", "-3"} {
			env["SEGMENT_DOWNLOAD_TIMEOUT_MINS"] = v
			got, err := GetDownloadOptions(nil, getenv)
			require.NoError(t, err)
			assert.Equal(t, 600000, got.SegmentTimeoutInMs, v)
		}
		delete(env, "SEGMENT_DOWNLOAD_TIMEOUT_MINS")
	})
}
