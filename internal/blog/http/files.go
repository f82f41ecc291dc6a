package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/quillworks/quill/internal/blog/service"
	"github.com/quillworks/quill/pkg/httpx"
)

// maxUploadBytes caps a single attachment upload.
const maxUploadBytes = 32 << 20

// FilesHandler serves attachment upload, download and deletion.
type FilesHandler struct {
	FileService *service.FileService
}

func (h *FilesHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	owner, ok := principal(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed multipart body")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", `missing "image" part`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unreadable upload")
		return
	}

	scale, ok := parseOptionalFloat(w, r.FormValue("scale"), "scale")
	if !ok {
		return
	}
	quality, ok := parseOptionalFloat(w, r.FormValue("quality"), "quality")
	if !ok {
		return
	}

	att, err := h.FileService.Upload(r.Context(), service.UploadInput{
		PostID:   r.PathValue("id"),
		Owner:    owner,
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
		Scale:    scale,
		Quality:  quality,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, FileResponse{
		Name:     att.Name,
		MIMEType: att.MIMEType,
	})
}

func (h *FilesHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	owner, ok := principal(w, r)
	if !ok {
		return
	}

	data, mimeType, err := h.FileService.Download(r.Context(), r.PathValue("id"), owner, r.PathValue("fileName"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *FilesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := principal(w, r)
	if !ok {
		return
	}

	err := h.FileService.Delete(r.Context(), r.PathValue("id"), owner, r.PathValue("fileName"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseOptionalFloat parses a form value into an optional float. Empty
// means absent; anything unparsable answers 400 and returns ok=false.
func parseOptionalFloat(w http.ResponseWriter, raw, name string) (*float64, bool) {
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", name+" must be a number")
		return nil, false
	}
	return &v, true
}
