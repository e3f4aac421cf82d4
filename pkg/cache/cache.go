// Package cache restores entries of the GitHub Actions cache service into the
// workspace. It is the client counterpart of pkg/artifactcache.
package cache

import (
	"context"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/nektos/cache-multi/pkg/common"
)

// Restorer restores the first entry matching primaryKey, or else the newest
// entry matching one of the restoreKeys prefixes, and returns the key of the
// restored entry. An empty key means nothing matched.
type Restorer interface {
	RestoreCache(ctx context.Context, paths []string, primaryKey string, restoreKeys []string, opts *DownloadOptions, enableCrossOsArchive bool) (string, error)
}

// SecretMasker hides values from the job log.
type SecretMasker interface {
	SetSecret(secret string)
}

// Options configure a Cache.
type Options struct {
	// BaseURL of the cache service, usually ACTIONS_CACHE_URL.
	BaseURL string
	// Token is sent as bearer token, usually ACTIONS_RUNTIME_TOKEN.
	Token string
	// Workspace is the directory archives are extracted into.
	Workspace string
	// TempDir holds downloaded archives until they are extracted.
	TempDir string

	Getenv     func(string) string
	Masker     SecretMasker
	HTTPClient *http.Client
}

// Cache is a Restorer backed by the actions cache service.
type Cache struct {
	opts        Options
	client      *serviceClient
	compression CompressionMethod
	goos        string
}

// New returns a Cache for opts.
func New(opts Options) *Cache {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Cache{
		opts:        opts,
		client:      newServiceClient(opts.BaseURL, opts.Token, opts.HTTPClient),
		compression: CompressionZstd,
		goos:        runtime.GOOS,
	}
}

// IsFeatureAvailable reports whether a cache service is configured.
func (c *Cache) IsFeatureAvailable() bool {
	return c.opts.BaseURL != ""
}

// RestoreCache implements Restorer. Invalid paths or keys are returned as
// *ValidationError; any other failure is logged as a warning and reported as
// a miss.
func (c *Cache) RestoreCache(ctx context.Context, paths []string, primaryKey string, restoreKeys []string, opts *DownloadOptions, enableCrossOsArchive bool) (string, error) {
	logger := common.Logger(ctx)

	if err := checkPaths(paths); err != nil {
		return "", err
	}

	keys := append([]string{primaryKey}, restoreKeys...)
	logger.Debugf("Resolved Keys: %q", keys)
	if err := checkKeys(keys); err != nil {
		return "", err
	}

	downloadOptions, err := GetDownloadOptions(opts, c.opts.Getenv)
	if err != nil {
		return "", err
	}

	key, err := c.restore(ctx, paths, keys, downloadOptions, enableCrossOsArchive)
	if err != nil {
		if IsValidationError(err) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warnf("Failed to restore: %v", err)
		return "", nil
	}
	return key, nil
}

func (c *Cache) restore(ctx context.Context, paths, keys []string, opts DownloadOptions, enableCrossOsArchive bool) (string, error) {
	logger := common.Logger(ctx)

	compression := c.compression
	entry, err := c.client.getCacheEntry(ctx, keys, version(paths, compression, enableCrossOsArchive, c.goos))
	if err != nil {
		return "", err
	}
	if entry == nil && c.goos == "windows" && compression != CompressionGzip {
		// entries saved by older clients on windows are gzip archives
		compression = CompressionGzip
		entry, err = c.client.getCacheEntry(ctx, keys, version(paths, compression, enableCrossOsArchive, c.goos))
		if err != nil {
			return "", err
		}
		if entry != nil {
			logger.Debugf("Couldn't find cache entry with zstd compression, falling back to gzip compression.")
		}
	}
	if entry == nil {
		return "", nil
	}

	if c.opts.Masker != nil {
		c.opts.Masker.SetSecret(entry.ArchiveLocation)
	}

	if opts.LookupOnly {
		logger.Info("Lookup only - skipping download")
		return entry.CacheKey, nil
	}

	if err := os.MkdirAll(c.opts.TempDir, 0o755); err != nil {
		return "", err
	}
	tempDir, err := os.MkdirTemp(c.opts.TempDir, "cache-")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			logger.Debugf("Failed to delete archive: %v", err)
		}
	}()

	archivePath := filepath.Join(tempDir, compression.FileName())
	logger.Debugf("Archive Path: %s", archivePath)

	size, err := c.client.downloadCache(ctx, entry.ArchiveLocation, archivePath, opts)
	if err != nil {
		return "", err
	}
	logger.Infof("Cache Size: ~%d MB (%d B)", int64(math.Round(float64(size)/(1024*1024))), size)

	if err := extractTar(archivePath, compression, c.opts.Workspace); err != nil {
		return "", err
	}
	logger.Info("Cache restored successfully")

	return entry.CacheKey, nil
}
