package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yorukot/videolink/internal/storage"
)

// MediaSource opens blobs for signed media URLs. LocalStorage implements it.
type MediaSource interface {
	Verify(objectPath, token string) error
	Get(ctx context.Context, objectPath string) (io.ReadCloser, error)
}

// MediaHandler streams blobs from the local storage backend
type MediaHandler struct {
	store  MediaSource
	prefix string
	logger *slog.Logger
}

// NewMediaHandler serves objects whose path starts with prefix. Anything else
// under the storage root (such as the sqlite database) stays private.
func NewMediaHandler(store MediaSource, prefix string, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		store:  store,
		prefix: strings.Trim(prefix, "/") + "/",
		logger: logger,
	}
}

// Serve handles GET /media/*. The request must carry the token from the
// locator the access gate handed out.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	objectPath := path.Clean("/" + chi.URLParam(r, "*"))[1:]
	if !strings.HasPrefix(objectPath, h.prefix) {
		http.NotFound(w, r)
		return
	}

	if err := h.store.Verify(objectPath, r.URL.Query().Get("token")); err != nil {
		h.logger.Debug("media token rejected", "path", objectPath, "error", err)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	rc, err := h.store.Get(r.Context(), objectPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to open media", "path", objectPath, "error", err)
		http.Error(w, "Failed to read media", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(path.Ext(objectPath)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}

	// Seekable content gets range support, which video players rely on
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(objectPath), time.Time{}, rs)
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Debug("media copy aborted", "path", objectPath, "error", err)
	}
}
