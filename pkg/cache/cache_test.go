package cache

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nektos/cache-multi/pkg/artifactcache"
	"github.com/nektos/cache-multi/pkg/common"
)

type recordingMasker struct {
	secrets []string
}

func (m *recordingMasker) SetSecret(secret string) {
	m.secrets = append(m.secrets, secret)
}

func startCacheServer(t *testing.T) string {
	t.Helper()
	handler, err := artifactcache.StartHandler(t.TempDir(), "127.0.0.1", 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = handler.Close()
	})
	return handler.CacheURL()
}

func archive(t *testing.T, compression CompressionMethod, files map[string]string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	var w io.WriteCloser
	if compression == CompressionGzip {
		w = gzip.NewWriter(buf)
	} else {
		enc, err := zstd.NewWriter(buf)
		require.NoError(t, err)
		w = enc
	}
	tw := tar.NewWriter(w)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
			ModTime:  time.Unix(1700000000, 0),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func saveEntry(t *testing.T, cacheURL, key, version string, content []byte) {
	t.Helper()
	base := cacheURL + "_apis/artifactcache"

	body, err := json.Marshal(map[string]any{"key": key, "version": version, "cacheSize": len(content)})
	require.NoError(t, err)
	resp, err := http.Post(base+"/caches", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	got := struct {
		CacheID uint64 `json:"cacheId"`
	}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	req, err := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/caches/%d", base, got.CacheID), bytes.NewReader(content))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes 0-%d/*", len(content)-1))
	patchResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = patchResp.Body.Close()
	require.Equal(t, 200, patchResp.StatusCode)

	commitResp, err := http.Post(fmt.Sprintf("%s/caches/%d", base, got.CacheID), "", nil)
	require.NoError(t, err)
	_ = commitResp.Body.Close()
	require.Equal(t, 200, commitResp.StatusCode)
}

func TestCache_RestoreCache(t *testing.T) {
	cacheURL := startCacheServer(t)
	paths := []string{"node_modules"}
	v := Version(paths, CompressionZstd, false)

	saveEntry(t, cacheURL, "node-linux-1", v, archive(t, CompressionZstd, map[string]string{
		"node_modules/a.txt": "exact",
	}))
	time.Sleep(time.Second) // ensure CreatedAt of caches are different
	saveEntry(t, cacheURL, "node-linux-2", v, archive(t, CompressionZstd, map[string]string{
		"node_modules/a.txt": "newest",
	}))

	newCache := func(t *testing.T) (*Cache, string, *recordingMasker) {
		workspace := t.TempDir()
		masker := &recordingMasker{}
		c := New(Options{
			BaseURL:   cacheURL,
			Workspace: workspace,
			TempDir:   t.TempDir(),
			Getenv:    func(string) string { return "" },
			Masker:    masker,
		})
		return c, workspace, masker
	}

	t.Run("exact match", func(t *testing.T) {
		c, workspace, masker := newCache(t)
		key, err := c.RestoreCache(context.Background(), paths, "node-linux-1", nil, nil, false)
		require.NoError(t, err)
		assert.Equal(t, "node-linux-1", key)

		got, err := os.ReadFile(filepath.Join(workspace, "node_modules", "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "exact", string(got))
		assert.Len(t, masker.secrets, 1)
	})

	t.Run("restore key", func(t *testing.T) {
		c, workspace, _ := newCache(t)
		key, err := c.RestoreCache(context.Background(), paths, "node-linux-3", []string{"node-linux-"}, nil, false)
		require.NoError(t, err)
		assert.Equal(t, "node-linux-2", key)

		got, err := os.ReadFile(filepath.Join(workspace, "node_modules", "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "newest", string(got))
	})

	t.Run("lookup only", func(t *testing.T) {
		c, workspace, _ := newCache(t)
		key, err := c.RestoreCache(context.Background(), paths, "node-linux-1", nil, &DownloadOptions{LookupOnly: true}, false)
		require.NoError(t, err)
		assert.Equal(t, "node-linux-1", key)

		assert.NoFileExists(t, filepath.Join(workspace, "node_modules", "a.txt"))
	})

	t.Run("miss", func(t *testing.T) {
		c, _, masker := newCache(t)
		key, err := c.RestoreCache(context.Background(), paths, "node-darwin", []string{"node-darwin-"}, nil, false)
		require.NoError(t, err)
		assert.Empty(t, key)
		assert.Empty(t, masker.secrets)
	})

	t.Run("other paths", func(t *testing.T) {
		c, _, _ := newCache(t)
		key, err := c.RestoreCache(context.Background(), []string{"vendor"}, "node-linux-1", nil, nil, false)
		require.NoError(t, err)
		assert.Empty(t, key)
	})

	t.Run("validation error", func(t *testing.T) {
		c, _, _ := newCache(t)
		_, err := c.RestoreCache(context.Background(), paths, "node,linux", nil, nil, false)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		_, err = c.RestoreCache(context.Background(), nil, "node-linux-1", nil, nil, false)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestCache_RestoreCacheWindowsGzipFallback(t *testing.T) {
	cacheURL := startCacheServer(t)
	paths := []string{"node_modules"}

	saveEntry(t, cacheURL, "node-windows", version(paths, CompressionGzip, false, "windows"), archive(t, CompressionGzip, map[string]string{
		"node_modules/a.txt": "gzip",
	}))

	workspace := t.TempDir()
	c := New(Options{
		BaseURL:   cacheURL,
		Workspace: workspace,
		TempDir:   t.TempDir(),
	})
	c.goos = "windows"

	key, err := c.RestoreCache(context.Background(), paths, "node-windows", nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "node-windows", key)

	got, err := os.ReadFile(filepath.Join(workspace, "node_modules", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "gzip", string(got))
}

func TestCache_RestoreCacheServiceDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	cacheURL := server.URL
	server.Close()

	logger, hook := logtest.NewNullLogger()
	ctx := common.WithLogger(context.Background(), logger)

	c := New(Options{
		BaseURL:   cacheURL,
		Workspace: t.TempDir(),
		TempDir:   t.TempDir(),
	})
	key, err := c.RestoreCache(ctx, []string{"node_modules"}, "node-linux", nil, nil, false)
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "Failed to restore: ")
}

func TestCache_IsFeatureAvailable(t *testing.T) {
	assert.True(t, New(Options{BaseURL: "http://localhost/"}).IsFeatureAvailable())
	assert.False(t, New(Options{}).IsFeatureAvailable())
}
