package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yorukot/videolink/internal/models"
	"github.com/yorukot/videolink/internal/services"
	"github.com/yorukot/videolink/internal/slug"
)

// multipart parts above this size are spooled to disk
const multipartMemory = 32 << 20

// APIHandler handles API requests
type APIHandler struct {
	uploads        *services.UploadService
	access         *services.AccessService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(uploads *services.UploadService, access *services.AccessService, maxUploadBytes int64, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		uploads:        uploads,
		access:         access,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// UploadResponse is returned once an upload completes
type UploadResponse struct {
	Slug              string     `json:"slug"`
	ShareURL          string     `json:"share_url"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	PasswordProtected bool       `json:"password_protected"`
}

// VideoResponse describes a video the caller may play
type VideoResponse struct {
	Slug         string     `json:"slug"`
	OriginalName string     `json:"original_name"`
	MimeType     string     `json:"mime_type"`
	SizeBytes    int64      `json:"size_bytes"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Locator      string     `json:"locator"`
}

// ProgressEvent is streamed while an upload is in flight
type ProgressEvent struct {
	Percent int `json:"percent"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadFile handles video upload. With "Accept: text/event-stream" progress
// is streamed as server-sent events followed by a complete or error event.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "File is too large", http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		respondError(w, "File is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	expiresIn, err := models.ParseExpirationPolicy(r.FormValue("expires_in"))
	if err != nil {
		respondError(w, "Invalid expires_in (use unlimited, 1h, 24h, 7d or 30d)", http.StatusBadRequest)
		return
	}

	upload := services.UploadFile{
		OriginalName: fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		SizeBytes:    fileHeader.Size,
		Content:      file,
	}
	cfg := services.UploadConfig{
		ExpiresIn: expiresIn,
		Password:  r.FormValue("password"),
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		h.streamUpload(w, r, upload, cfg)
		return
	}

	result, err := h.uploads.BeginUpload(r.Context(), upload, cfg, nil)
	if err != nil {
		h.logUploadError(err)
		respondError(w, uploadErrorMessage(err), uploadErrorStatus(err))
		return
	}

	respondJSON(w, newUploadResponse(result), http.StatusCreated)
}

func (h *APIHandler) streamUpload(w http.ResponseWriter, r *http.Request, upload services.UploadFile, cfg services.UploadConfig) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var mu sync.Mutex
	send := func(event string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			h.logger.Debug("failed to flush event stream", "error", err)
		}
	}

	result, err := h.uploads.BeginUpload(r.Context(), upload, cfg, func(percent int) {
		send("progress", ProgressEvent{Percent: percent})
	})
	if err != nil {
		h.logUploadError(err)
		send("error", ErrorResponse{Error: uploadErrorMessage(err)})
		return
	}
	send("complete", newUploadResponse(result))
}

// GetVideo resolves a slug for playback. The password, if any, is read from
// the X-Video-Password header.
func (h *APIHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	videoSlug := chi.URLParam(r, "slug")
	if !slug.Valid(videoSlug) {
		respondError(w, "Video not found", http.StatusNotFound)
		return
	}

	var password *string
	if pw := r.Header.Get("X-Video-Password"); pw != "" {
		password = &pw
	}

	decision, err := h.access.Resolve(r.Context(), videoSlug, password)
	if err != nil {
		h.logger.Error("failed to resolve video", "slug", videoSlug, "error", err)
		respondError(w, "Failed to load video", http.StatusInternalServerError)
		return
	}

	if !decision.Granted() {
		denied := decision.Err()
		if errors.Is(denied, services.ErrPasswordRequired) {
			w.Header().Set("WWW-Authenticate", `Password realm="video"`)
		}
		respondError(w, deniedMessage(denied), deniedStatus(denied))
		return
	}

	v := decision.Video
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, VideoResponse{
		Slug:         v.Slug,
		OriginalName: v.OriginalName,
		MimeType:     v.MimeType,
		SizeBytes:    v.SizeBytes,
		ExpiresAt:    v.ExpiresAt,
		Locator:      decision.Locator,
	}, http.StatusOK)
}

func deniedStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrExpired):
		return http.StatusGone
	case errors.Is(err, services.ErrPasswordRequired):
		return http.StatusUnauthorized
	default:
		return http.StatusNotFound
	}
}

func deniedMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrExpired):
		return "This video has expired"
	case errors.Is(err, services.ErrPasswordRequired):
		return "Password required"
	default:
		return "Video not found"
	}
}

func newUploadResponse(result *services.ShareResult) UploadResponse {
	return UploadResponse{
		Slug:              result.Slug,
		ShareURL:          result.ShareURL,
		ExpiresAt:         result.ExpiresAt,
		PasswordProtected: result.Video != nil && result.Video.HasPassword(),
	}
}

func uploadErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrStorage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// uploadErrorMessage only echoes validation errors. Storage and database
// causes stay in the logs.
func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrValidation):
		return err.Error()
	case errors.Is(err, services.ErrStorage):
		return "Failed to store video"
	default:
		return "Failed to save video"
	}
}

func (h *APIHandler) logUploadError(err error) {
	if errors.Is(err, services.ErrValidation) {
		h.logger.Info("upload rejected", "error", err)
		return
	}
	h.logger.Error("upload failed", "error", err)
}

// Helper functions

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, ErrorResponse{Error: message}, status)
}
