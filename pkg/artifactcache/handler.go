package artifactcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/adrg/xdg"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"

	"github.com/nektos/cache-multi/pkg/common"
)

const (
	urlBase = "/_apis/artifactcache"
)

type Handler struct {
	dir      string
	storage  *Storage
	router   *httprouter.Router
	listener net.Listener
	server   *http.Server
	logger   logrus.FieldLogger
	metrics  *metrics

	secret     []byte
	requireJWT bool

	gcing atomic.Bool
	gcAt  time.Time

	outboundIP string
}

// Option configures a Handler.
type Option func(h *Handler)

// WithSecret verifies bearer tokens with secret. Requests carrying a token
// must be granted the cache permission of the route they call.
func WithSecret(secret []byte) Option {
	return func(h *Handler) {
		h.secret = secret
	}
}

// WithRequireJWT rejects requests without a bearer token.
func WithRequireJWT(require bool) Option {
	return func(h *Handler) {
		h.requireJWT = require
	}
}

func StartHandler(dir, outboundIP string, port uint16, logger logrus.FieldLogger, opts ...Option) (*Handler, error) {
	h := &Handler{}
	for _, opt := range opts {
		opt(h)
	}

	if logger == nil {
		discard := logrus.New()
		discard.Out = io.Discard
		logger = discard
	}
	logger = logger.WithField("module", "artifactcache")
	h.logger = logger

	if dir == "" {
		dir = filepath.Join(xdg.CacheHome, "actcache")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	h.dir = dir

	storage, err := NewStorage(filepath.Join(dir, "cache"))
	if err != nil {
		return nil, err
	}
	h.storage = storage

	if outboundIP != "" {
		h.outboundIP = outboundIP
	} else if ip := common.GetOutboundIP(); ip == nil {
		return nil, fmt.Errorf("unable to determine outbound IP address")
	} else {
		h.outboundIP = ip.String()
	}

	h.metrics = newMetrics()

	router := httprouter.New()
	router.GET(urlBase+"/cache", h.middleware("find", common.CachePermissionRead, h.find))
	router.POST(urlBase+"/caches", h.middleware("reserve", common.CachePermissionWrite, h.reserve))
	router.PATCH(urlBase+"/caches/:id", h.middleware("upload", common.CachePermissionWrite, h.upload))
	router.POST(urlBase+"/caches/:id", h.middleware("commit", common.CachePermissionWrite, h.commit))
	router.GET(urlBase+"/artifacts/:id", h.middleware("get", 0, h.get))
	router.POST(urlBase+"/clean", h.middleware("clean", common.CachePermissionWrite, h.clean))
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(h.metrics.registry, promhttp.HandlerOpts{}))

	h.router = router

	h.gcCache()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port)) // listen on all interfaces
	if err != nil {
		return nil, err
	}
	server := &http.Server{
		ReadHeaderTimeout: 2 * time.Second,
		Handler:           router,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http serve: %v", err)
		}
	}()
	h.listener = listener
	h.server = server

	return h, nil
}

func (h *Handler) ExternalURL() string {
	return fmt.Sprintf("http://%s:%d",
		h.outboundIP,
		h.listener.Addr().(*net.TCPAddr).Port)
}

// CacheURL is the value runners expect in ACTIONS_CACHE_URL.
func (h *Handler) CacheURL() string {
	return h.ExternalURL() + "/"
}

func (h *Handler) Close() error {
	if h == nil {
		return nil
	}
	var retErr error
	if h.server != nil {
		err := h.server.Close()
		if err != nil {
			retErr = err
		}
		h.server = nil
	}
	if h.listener != nil {
		err := h.listener.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
		if err != nil {
			retErr = err
		}
		h.listener = nil
	}
	return retErr
}

func (h *Handler) openDB() (*bolthold.Store, error) {
	return bolthold.Open(filepath.Join(h.dir, "bolt.db"), 0o644, &bolthold.Options{
		Encoder: json.Marshal,
		Decoder: json.Unmarshal,
		Options: &bbolt.Options{
			Timeout:      5 * time.Second,
			NoGrowSync:   bbolt.DefaultOptions.NoGrowSync,
			FreelistType: bbolt.DefaultOptions.FreelistType,
		},
	})
}

// GET /_apis/artifactcache/cache
func (h *Handler) find(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	keys := strings.Split(r.URL.Query().Get("keys"), ",")
	// cache keys are case insensitive
	for i, key := range keys {
		keys[i] = strings.ToLower(key)
	}
	version := r.URL.Query().Get("version")

	db, err := h.openDB()
	if err != nil {
		h.responseJSON(w, r, 500, err)
		return
	}
	defer db.Close()

	entry, err := findCache(db, keys, version)
	if err != nil {
		h.responseJSON(w, r, 500, err)
		return
	}
	if entry == nil {
		h.metrics.lookups.WithLabelValues("miss").Inc()
		h.responseJSON(w, r, 204)
		return
	}

	if ok, err := h.storage.Exist(entry.ID); err != nil {
		h.responseJSON(w, r, 500, err)
		return
	} else if !ok {
		_ = db.Delete(entry.ID, entry)
		h.metrics.lookups.WithLabelValues("miss").Inc()
		h.responseJSON(w, r, 204)
		return
	}
	h.metrics.lookups.WithLabelValues("hit").Inc()
	h.responseJSON(w, r, 200, &lookupResponse{
		Result:          "hit",
		ArchiveLocation: fmt.Sprintf("%s%s/artifacts/%d", h.ExternalURL(), urlBase, entry.ID),
		CacheKey:        entry.Key,
		CreationTime:    time.Unix(entry.CreatedAt, 0).UTC().Format(time.RFC3339),
	})
}

// POST /_apis/artifactcache/caches
func (h *Handler) reserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	api := &ReserveRequest{}
	if err := json.NewDecoder(r.Body).Decode(api); err != nil {
		h.responseJSON(w, r, 400, err)
		return
	}
	// cache keys are case insensitive
	api.Key = strings.ToLower(api.Key)

	entry := api.ToEntry()
	db, err := h.openDB()
	if err != nil {
		h.responseJSON(w, r, 500, err)
		return
	}
	defer db.Close()

	now := time.Now().Unix()
	entry.CreatedAt = now
	entry.UsedAt = now
	if err := insertEntry(db, entry); err != nil {
		h.responseJSON(w, r, 500, err)
		return
	}
	h.responseJSON(w, r, 200, map[string]any{
		"cacheId": entry.ID,
	})
}

// PATCH /_apis/artifactcache/caches/:id
func (h *Handler) upload(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := strconv.ParseUint(params.ByName("id"), 10, 64)
	if err != nil {
		h.responseJSON(w, r, 400, err)
		return
	}

	entry, code, err := h.reservedEntry(id)
	if err != nil {
		h.responseJSON(w, r, code, err)
		return
	}

	start, _, err := parseContentRange(r.Header.Get("Content-Range"))
	if err != nil {
		h.responseJSON(w, r, 400, err)
		return
	}
	if err := h.storage.Write(entry.ID, start, r.Body); err != nil {
		h.responseJSON(w, r, 500, err)
		return
	}
	h.useCache(id)
	h.responseJSON(w, r, 200)
}

// POST /_apis/artifactcache/caches/:id
func (h *Handler) commit(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := strconv.ParseUint(params.ByName("id"), 10, 64)
	if err != nil {
		h.responseJSON(w, r, 400, err)
		return
	}

	entry, code, err := h.reservedEntry(id)
	if err != nil {
		h.responseJSON(w, r, code, err)
		return
	}

	size, err := h.storage.Commit(entry.ID, entry.Size)
	if err != nil {
		h.responseJSON(w, r, 500, err)
		return
	}
	// the reserved size is -1 when the client didn't send one
	entry.Size = size
	entry.Complete = true

	db, err := h.openDB()
	if err != nil {
		h.responseJSON(w, r, 500, err)
		return
	}
	defer db.Close()

	if err := db.Update(entry.ID, entry); err != nil {
		h.responseJSON(w, r, 500, err)
		return
	}
	h.metrics.committedBytes.Add(float64(size))

	h.responseJSON(w, r, 200)
}

// GET /_apis/artifactcache/artifacts/:id
func (h *Handler) get(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := strconv.ParseUint(params.ByName("id"), 10, 64)
	if err != nil {
		h.responseJSON(w, r, 400, err)
		return
	}
	h.useCache(id)
	h.storage.Serve(w, r, id)
}

// POST /_apis/artifactcache/clean
func (h *Handler) clean(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.responseJSON(w, r, 200)
}

func (h *Handler) middleware(route string, permission int, handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		h.logger.Debugf("%s %s", r.Method, r.RequestURI)
		rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		if h.authorize(rw, r, permission) {
			handler(rw, r, params)
		}
		h.metrics.requests.WithLabelValues(route, strconv.Itoa(rw.code)).Inc()
		go h.gcCache()
	}
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, permission int) bool {
	if permission == 0 || len(h.secret) == 0 {
		return true
	}
	scopes, err := common.ParseAuthorizationToken(r, h.secret)
	if err != nil {
		h.responseJSON(w, r, http.StatusUnauthorized, err)
		return false
	}
	if scopes == nil && r.Header.Get("Authorization") == "" {
		if h.requireJWT {
			h.responseJSON(w, r, http.StatusUnauthorized, fmt.Errorf("missing authorization header"))
			return false
		}
		return true
	}
	if !common.HasCachePermission(scopes, permission) {
		h.responseJSON(w, r, http.StatusForbidden, fmt.Errorf("token lacks cache permission %d", permission))
		return false
	}
	return true
}

// reservedEntry loads an incomplete entry, returning the HTTP status to
// answer with on failure.
func (h *Handler) reservedEntry(id uint64) (*Entry, int, error) {
	db, err := h.openDB()
	if err != nil {
		return nil, 500, err
	}
	defer db.Close()

	entry := &Entry{}
	if err := db.Get(id, entry); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return nil, 400, fmt.Errorf("cache %d: not reserved", id)
		}
		return nil, 500, err
	}
	if entry.Complete {
		return nil, 400, fmt.Errorf("cache %v %q: already complete", entry.ID, entry.Key)
	}
	return entry, 0, nil
}

func (h *Handler) useCache(id uint64) {
	db, err := h.openDB()
	if err != nil {
		return
	}
	defer db.Close()
	entry := &Entry{}
	if err := db.Get(id, entry); err != nil {
		return
	}
	entry.UsedAt = time.Now().Unix()
	_ = db.Update(entry.ID, entry)
}

// findCache returns the complete entry whose key equals keys[0], or else the
// newest complete entry whose key starts with one of keys[1:], tried in
// order. It returns (nil, nil) when nothing matches.
func findCache(db *bolthold.Store, keys []string, version string) (*Entry, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	key := keys[0] // the first key is for exact match.

	var entries []*Entry
	if err := db.Find(&entries, bolthold.Where("Key").Eq(key).
		And("Version").Eq(version).
		And("Complete").Eq(true).
		SortBy("CreatedAt", "ID").Reverse().Limit(1)); err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return entries[0], nil
	}

	for _, prefix := range keys[1:] {
		var found *Entry
		if err := db.ForEach(bolthold.Where("Version").Eq(version).
			And("Complete").Eq(true).
			SortBy("CreatedAt", "ID").Reverse(), func(v *Entry) error {
			if found == nil && strings.HasPrefix(v.Key, prefix) {
				found = v
			}
			return nil
		}); err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, nil
}

func insertEntry(db *bolthold.Store, entry *Entry) error {
	if err := db.Insert(bolthold.NextSequence(), entry); err != nil {
		return fmt.Errorf("insert cache: %w", err)
	}
	// write back id to db
	if err := db.Update(entry.ID, entry); err != nil {
		return fmt.Errorf("write back id to db: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}
