package http

import (
	"encoding/json"
	"net/http"

	"github.com/quillworks/quill/internal/blog/service"
	"github.com/quillworks/quill/pkg/httpx"
)

// PostsHandler serves the post CRUD surface. Reads are open to any
// authenticated user; writes act only on the caller's own posts.
type PostsHandler struct {
	PostService *service.PostService
}

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *PostsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, ok := principal(w, r)
	if !ok {
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	post, err := h.PostService.CreatePost(r.Context(), owner, req.Title, req.Content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPostResponse(post))
}

func (h *PostsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.PostService.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPostResponse(post))
}

func (h *PostsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := principal(w, r)
	if !ok {
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	post, err := h.PostService.UpdatePost(r.Context(), r.PathValue("id"), owner, req.Title, req.Content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPostResponse(post))
}

func (h *PostsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.PostService.DeletePost(r.Context(), r.PathValue("id"), owner); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PostsHandler) HandleListByAuthor(w http.ResponseWriter, r *http.Request) {
	summarize := r.URL.Query().Get("summary") == "true"

	posts, err := h.PostService.ListByAuthor(r.Context(), r.PathValue("username"), summarize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPostResponses(posts))
}

func (h *PostsHandler) HandleListByTag(w http.ResponseWriter, r *http.Request) {
	posts, err := h.PostService.ListByTag(r.Context(), r.PathValue("tagID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPostResponses(posts))
}
