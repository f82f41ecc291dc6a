package http

import (
	"encoding/json"
	"net/http"

	"github.com/quillworks/quill/internal/blog/service"
	"github.com/quillworks/quill/pkg/httpx"
)

// TagsHandler serves the tag catalogue and tag/post associations.
type TagsHandler struct {
	TagService *service.TagService
}

type tagRequest struct {
	Name string `json:"name"`
}

func (h *TagsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	tag, err := h.TagService.CreateTag(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, TagResponse{ID: tag.ID, Name: tag.Name})
}

func (h *TagsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tags, err := h.TagService.ListTags(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagResponse{ID: t.ID, Name: t.Name})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *TagsHandler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	owner, ok := principal(w, r)
	if !ok {
		return
	}

	err := h.TagService.AttachTag(r.Context(), r.PathValue("id"), r.PathValue("tagID"), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TagsHandler) HandleDetach(w http.ResponseWriter, r *http.Request) {
	owner, ok := principal(w, r)
	if !ok {
		return
	}

	err := h.TagService.DetachTag(r.Context(), r.PathValue("id"), r.PathValue("tagID"), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
