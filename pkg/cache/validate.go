package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"runtime"
	"strings"
)

func checkPaths(paths []string) error {
	if len(paths) == 0 {
		return validationErrorf("Path Validation Error: At least one directory or file path is required")
	}
	return nil
}

func checkKeys(keys []string) error {
	if len(keys) > maxKeys {
		return validationErrorf("Key Validation Error: Keys are limited to a maximum of %d.", maxKeys)
	}
	for _, key := range keys {
		if len(key) > maxKeyLength {
			return validationErrorf("Key Validation Error: %s cannot be larger than %d characters.", key, maxKeyLength)
		}
		if strings.Contains(key, ",") {
			return validationErrorf("Key Validation Error: %s cannot contain commas.", key)
		}
	}
	return nil
}

// Version identifies what a cache entry holds: the same keys saved for other
// paths, another compression or another OS family never match.
func Version(paths []string, compression CompressionMethod, enableCrossOsArchive bool) string {
	return version(paths, compression, enableCrossOsArchive, runtime.GOOS)
}

func version(paths []string, compression CompressionMethod, enableCrossOsArchive bool, goos string) string {
	components := append([]string{}, paths...)
	if compression != "" {
		components = append(components, string(compression))
	}
	if goos == "windows" && !enableCrossOsArchive {
		components = append(components, "windows-only")
	}
	components = append(components, versionSalt)

	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(sum[:])
}
