package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/quillworks/quill/internal/blog/domain"
	"github.com/quillworks/quill/internal/blog/service"
	"github.com/quillworks/quill/pkg/httpx"
	"github.com/quillworks/quill/pkg/imagex"
	"github.com/quillworks/quill/pkg/slogx"
)

// PostResponse is the wire shape of a post.
type PostResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Author    string         `json:"author"`
	Tags      []TagResponse  `json:"tags"`
	Files     []FileResponse `json:"files"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type TagResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FileResponse struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
}

func toPostResponse(p domain.Post) PostResponse {
	resp := PostResponse{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Author:    p.OwnerUsername,
		Tags:      make([]TagResponse, 0, len(p.Tags)),
		Files:     make([]FileResponse, 0, len(p.Attachments)),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	for _, t := range p.Tags {
		resp.Tags = append(resp.Tags, TagResponse{ID: t.ID, Name: t.Name})
	}
	for _, a := range p.Attachments {
		resp.Files = append(resp.Files, FileResponse{Name: a.Name, MIMEType: a.MIMEType})
	}
	return resp
}

func toPostResponses(posts []domain.Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	return out
}

// writeServiceError maps service and pipeline errors onto HTTP statuses.
// Anything unrecognized becomes a logged 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrTagNotFound),
		errors.Is(err, service.ErrAttachmentNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrTagNameTaken):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, imagex.ErrInvalidParameter),
		errors.Is(err, imagex.ErrUnsupportedFormat),
		errors.Is(err, imagex.ErrDecode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())

	default:
		slogx.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
	}
}

// principal pulls the authenticated username out of the request context.
// Routes behind AuthnMiddleware always have one.
func principal(w http.ResponseWriter, r *http.Request) (string, bool) {
	username, ok := httpx.PrincipalFromContext(r.Context())
	if !ok || username == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "no principal")
		return "", false
	}
	return username, true
}
