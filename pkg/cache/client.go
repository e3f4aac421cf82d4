package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nektos/cache-multi/pkg/common"
)

type cacheEntry struct {
	CacheKey        string `json:"cacheKey"`
	Scope           string `json:"scope"`
	CreationTime    string `json:"creationTime"`
	ArchiveLocation string `json:"archiveLocation"`
}

// downloadSegmentSize is how many archive bytes share one segment timeout.
const downloadSegmentSize = 128 * 1024 * 1024

// serviceClient talks to the actions cache service rooted at baseURL.
type serviceClient struct {
	baseURL     string
	token       string
	http        *http.Client
	segmentSize int64
}

// newServiceClient uses httpClient for lookups and downloads. Without one,
// a client with its own connection pool is built.
func newServiceClient(baseURL, token string, httpClient *http.Client) *serviceClient {
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
		if transport, ok := http.DefaultTransport.(*http.Transport); ok {
			httpClient.Transport = transport.Clone()
		}
	}
	return &serviceClient{
		baseURL:     baseURL,
		token:       token,
		http:        httpClient,
		segmentSize: downloadSegmentSize,
	}
}

func (c *serviceClient) resourceURL(resource string) string {
	return c.baseURL + apiPath + resource
}

// getCacheEntry returns (nil, nil) when no entry matches.
func (c *serviceClient) getCacheEntry(ctx context.Context, keys []string, version string) (*cacheEntry, error) {
	logger := common.Logger(ctx)
	resource := fmt.Sprintf("cache?keys=%s&version=%s", url.QueryEscape(strings.Join(keys, ",")), version)

	resp, err := c.getWithRetry(ctx, c.resourceURL(resource))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		logger.Debugf("No cache entry for keys %v and version %s", keys, version)
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("Cache service responded with %d", resp.StatusCode)
	}

	entry := &cacheEntry{}
	if err := json.NewDecoder(resp.Body).Decode(entry); err != nil {
		return nil, errors.Wrap(err, "decode cache entry")
	}
	if entry.ArchiveLocation == "" {
		return nil, nil
	}
	logger.Debugf("Cache Result: %s (scope %q, created %s)", entry.CacheKey, entry.Scope, entry.CreationTime)
	return entry, nil
}

func (c *serviceClient) getWithRetry(ctx context.Context, u string) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json;api-version="+apiVersion)
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		switch {
		case err != nil:
			lastErr = errors.Wrap(err, "get cache entry")
		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = errors.Errorf("Cache service responded with %d", resp.StatusCode)
		default:
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		common.Logger(ctx).Debugf("get cache entry, attempt %d of %d failed: %v", attempt, maxRetryAttempts, lastErr)
	}
	return nil, lastErr
}

var (
	errResponseTimeout = errors.New("response timeout")
	errSegmentTimeout  = errors.New("segment timeout")
)

// downloadCache writes the archive at archiveLocation to archivePath and
// returns its size. TimeoutInMs bounds the wait for the response headers,
// SegmentTimeoutInMs the transfer of every segmentSize bytes of the body.
func (c *serviceClient) downloadCache(ctx context.Context, archiveLocation, archivePath string, opts DownloadOptions) (int64, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveLocation, nil)
	if err != nil {
		return 0, err
	}

	responseTimer := afterFunc(opts.TimeoutInMs, func() { cancel(errResponseTimeout) })
	resp, err := c.http.Do(req)
	stopTimer(responseTimer)
	if err != nil {
		if context.Cause(ctx) == errResponseTimeout {
			return 0, errors.Errorf("Aborting cache download as the server did not respond within %d ms", opts.TimeoutInMs)
		}
		return 0, errors.Wrap(err, "download cache")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("Unexpected HTTP response from blob storage: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	f, err := os.Create(archivePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	body := &segmentReader{
		r:       resp.Body,
		size:    c.segmentSize,
		left:    c.segmentSize,
		timeout: opts.SegmentTimeoutInMs,
		timer:   afterFunc(opts.SegmentTimeoutInMs, func() { cancel(errSegmentTimeout) }),
	}
	defer stopTimer(body.timer)

	written, err := io.Copy(f, body)
	if err != nil {
		if context.Cause(ctx) == errSegmentTimeout {
			return written, errors.Errorf("Aborting cache download as the download time exceeded the timeout of %d ms", opts.SegmentTimeoutInMs)
		}
		return written, errors.Wrap(err, "download cache")
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return written, errors.Errorf("Incomplete download. Expected file size: %d, actual file size: %d", resp.ContentLength, written)
	}
	return written, nil
}

// afterFunc returns nil when ms is not positive, no timeout applies then.
func afterFunc(ms int, f func()) *time.Timer {
	if ms <= 0 {
		return nil
	}
	return time.AfterFunc(time.Duration(ms)*time.Millisecond, f)
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// segmentReader restarts timer every time size bytes have been read.
type segmentReader struct {
	r       io.Reader
	size    int64
	left    int64
	timeout int
	timer   *time.Timer
}

func (s *segmentReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.left -= int64(n)
	if s.left <= 0 {
		s.left = s.size
		if s.timer != nil {
			s.timer.Reset(time.Duration(s.timeout) * time.Millisecond)
		}
	}
	return n, err
}
