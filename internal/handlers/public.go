package handlers

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yorukot/videolink/internal/models"
	"github.com/yorukot/videolink/internal/services"
	"github.com/yorukot/videolink/internal/slug"
)

// PublicHandler serves the share page (no API key required)
type PublicHandler struct {
	access *services.AccessService
	logger *slog.Logger
	page   *template.Template
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(access *services.AccessService, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		access: access,
		logger: logger,
		page:   template.Must(template.New("share").Parse(sharePageHTML)),
	}
}

type sharePage struct {
	Title     string
	Message   string
	AskPass   bool
	WrongPass bool
	Video     *models.Video
	Locator   string
}

// SharePage renders the player for a slug. A POST carries the password
// from the form; nothing is remembered between requests.
func (h *PublicHandler) SharePage(w http.ResponseWriter, r *http.Request) {
	videoSlug := chi.URLParam(r, "slug")
	if !slug.Valid(videoSlug) {
		h.render(w, http.StatusNotFound, sharePage{Title: "Not found", Message: "This video does not exist."})
		return
	}

	var password *string
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			h.render(w, http.StatusBadRequest, sharePage{Title: "Bad request", Message: "Could not read the form."})
			return
		}
		pw := r.PostFormValue("password")
		password = &pw
	}

	decision, err := h.access.Resolve(r.Context(), videoSlug, password)
	if err != nil {
		h.logger.Error("failed to resolve share page", "slug", videoSlug, "error", err)
		h.render(w, http.StatusInternalServerError, sharePage{Title: "Error", Message: "Failed to load video."})
		return
	}

	if decision.Granted() {
		w.Header().Set("Cache-Control", "no-store")
		h.render(w, http.StatusOK, sharePage{
			Title:   decision.Video.OriginalName,
			Video:   decision.Video,
			Locator: decision.Locator,
		})
		return
	}

	denied := decision.Err()
	switch {
	case errors.Is(denied, services.ErrExpired):
		h.render(w, http.StatusGone, sharePage{Title: "Expired", Message: "This video has expired."})
	case errors.Is(denied, services.ErrPasswordRequired):
		h.render(w, http.StatusUnauthorized, sharePage{
			Title:     "Password required",
			AskPass:   true,
			WrongPass: password != nil && *password != "",
		})
	default:
		h.render(w, http.StatusNotFound, sharePage{Title: "Not found", Message: "This video does not exist."})
	}
}

func (h *PublicHandler) render(w http.ResponseWriter, status int, data sharePage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.page.Execute(w, data); err != nil {
		h.logger.Error("failed to render share page", "error", err)
	}
}

const sharePageHTML = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>{{.Title}}</title>
	<style>
		body {
			font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
			display: flex;
			align-items: center;
			justify-content: center;
			min-height: 100vh;
			margin: 0;
			background: #111;
			color: #eee;
		}
		.box { background: #1d1d1d; padding: 32px; border-radius: 12px; max-width: 960px; width: 100%; }
		video { width: 100%; border-radius: 8px; background: #000; }
		input[type=password] { padding: 10px; border-radius: 6px; border: 1px solid #444; width: 100%; box-sizing: border-box; }
		button { margin-top: 12px; padding: 10px 20px; border: 0; border-radius: 6px; background: #667eea; color: #fff; cursor: pointer; }
		.error { color: #f66; }
	</style>
</head>
<body>
	<div class="box">
	{{- if .Video}}
		<h1>{{.Video.OriginalName}}</h1>
		<video controls preload="metadata" src="{{.Locator}}">
			<source src="{{.Locator}}" type="{{.Video.MimeType}}">
		</video>
	{{- else if .AskPass}}
		<h1>Password required</h1>
		{{- if .WrongPass}}
		<p class="error">Incorrect password.</p>
		{{- end}}
		<form method="POST">
			<input type="password" name="password" placeholder="Password" autofocus required>
			<button type="submit">Watch</button>
		</form>
	{{- else}}
		<h1>{{.Title}}</h1>
		<p>{{.Message}}</p>
	{{- end}}
	</div>
</body>
</html>
`
