package artifactcache

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// responseJSON writes v as the response body. An error value is logged and
// sent as {"error": ...}, no value at all as {}.
func (h *Handler) responseJSON(w http.ResponseWriter, r *http.Request, code int, v ...any) {
	var body any = struct{}{}
	if len(v) > 0 && v[0] != nil {
		body = v[0]
	}
	if err, ok := body.(error); ok {
		h.logger.Errorf("%v %v: %v", r.Method, r.RequestURI, err)
		body = map[string]string{"error": err.Error()}
	}

	data, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func parseContentRange(s string) (int64, int64, error) {
	// support the format like "bytes 11-22/*" only
	s, _, _ = strings.Cut(strings.TrimPrefix(s, "bytes "), "/")
	s1, s2, _ := strings.Cut(s, "-")

	start, err := strconv.ParseInt(s1, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", s, err)
	}
	stop, err := strconv.ParseInt(s2, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return start, stop, nil
}
