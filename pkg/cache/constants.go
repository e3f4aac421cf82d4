package cache

// CompressionMethod is the archive compression, part of the cache version.
type CompressionMethod string

const (
	CompressionGzip            CompressionMethod = "gzip"
	CompressionZstdWithoutLong CompressionMethod = "zstd-without-long"
	CompressionZstd            CompressionMethod = "zstd"
)

// FileName is the archive name used for the compression method.
func (c CompressionMethod) FileName() string {
	if c == CompressionGzip {
		return "cache.tgz"
	}
	return "cache.tzst"
}

const (
	maxKeys      = 10
	maxKeyLength = 512

	versionSalt = "1.0"

	apiVersion = "6.0-preview.1"
	apiPath    = "_apis/artifactcache/"

	maxRetryAttempts = 2
)
