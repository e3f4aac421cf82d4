package cache

import (
	"strconv"

	"dario.cat/mergo"
)

// DownloadOptions tune how an archive is fetched.
type DownloadOptions struct {
	// TimeoutInMs bounds the wait for the download response headers.
	TimeoutInMs int
	// SegmentTimeoutInMs bounds the transfer of each 128 MiB segment of the
	// archive. The clock restarts whenever a segment completes.
	SegmentTimeoutInMs int
	// LookupOnly resolves the matching key without downloading.
	LookupOnly bool
}

var defaultDownloadOptions = DownloadOptions{
	TimeoutInMs:        30000,
	SegmentTimeoutInMs: 600000,
	LookupOnly:         false,
}

// GetDownloadOptions returns a copy of opts with unset fields taken from the
// defaults. SEGMENT_DOWNLOAD_TIMEOUT_MINS, when set to a positive number of
// minutes, replaces the segment timeout.
func GetDownloadOptions(opts *DownloadOptions, getenv func(string) string) (DownloadOptions, error) {
	result := DownloadOptions{}
	if opts != nil {
		result = *opts
	}
	if err := mergo.Merge(&result, defaultDownloadOptions); err != nil {
		return DownloadOptions{}, err
	}

	if getenv != nil {
		if mins, err := strconv.Atoi(getenv("SEGMENT_DOWNLOAD_TIMEOUT_MINS")); err == nil && mins > 0 {
			result.SegmentTimeoutInMs = mins * 60 * 1000
		}
	}
	return result, nil
}
