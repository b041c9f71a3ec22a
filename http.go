package moinmoin

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/escapewindow/ep-moinmoin-export/internal/logging"
	"github.com/escapewindow/ep-moinmoin-export/padstore"
)

const requestIDHeader = "X-Request-Id"

// Handler serves MoinMoin exports on the paths Etherpad uses for its own
// export formats:
//
//	GET /p/{pad}/export/moinmoin
//	GET /p/{pad}/{rev}/export/moinmoin
//
// Requests get an X-Request-Id (kept from the request when present) and a
// strong ETag of the rendered document.
func Handler(store Store, opts ...Option) http.Handler {
	h := &exportHandler{store: store, opts: opts, logger: buildConfig(opts).logger}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /p/{pad}/export/moinmoin", h.serve)
	mux.HandleFunc("GET /p/{pad}/{rev}/export/moinmoin", h.serve)
	return mux
}

type exportHandler struct {
	store  Store
	opts   []Option
	logger *slog.Logger
}

func (h *exportHandler) serve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)
	ctx := logging.WithRequestID(logging.WithLogger(r.Context(), h.logger), requestID)
	logger := logging.FromContext(ctx)

	req := ExportRequest{
		Store:   h.store,
		PadID:   r.PathValue("pad"),
		Options: append(h.opts[:len(h.opts):len(h.opts)], WithLogger(logger)),
	}
	if raw := r.PathValue("rev"); raw != "" {
		rev, err := strconv.Atoi(raw)
		if err != nil || rev < 0 {
			h.fail(w, r, start, requestID, http.StatusBadRequest, ErrInvalidRevision)
			return
		}
		req.Revision = &rev
	}
	out, err := Export(ctx, req)
	if err != nil {
		h.fail(w, r, start, requestID, statusOf(err), err)
		return
	}

	sum := blake3.Sum256([]byte(out))
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		h.logRequest(r, start, requestID, http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(out))
	}
	h.logRequest(r, start, requestID, http.StatusOK)
}

func (h *exportHandler) fail(w http.ResponseWriter, r *http.Request, start time.Time, requestID string, status int, err error) {
	msg := http.StatusText(status)
	if status == http.StatusBadRequest || status == http.StatusNotFound {
		msg = err.Error()
	}
	http.Error(w, msg, status)
	h.logRequest(r, start, requestID, status, "error", err.Error())
}

func (h *exportHandler) logRequest(r *http.Request, start time.Time, requestID string, status int, args ...any) {
	allArgs := []any{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	h.logger.Info("http_request", append(allArgs, args...)...)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrInvalidPadID), errors.Is(err, ErrInvalidRevision):
		return http.StatusBadRequest
	case errors.Is(err, padstore.ErrNotFound), errors.Is(err, padstore.ErrRevisionUnavailable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
