package api

import (
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/outline/internal/nodeservice"
)

const maxUploadBytes = 4 << 20

// ListExports handles GET /api/exports.
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListExports()
	if err != nil {
		writeError(w, "list exports", err)
		return
	}
	writeJSON(w, http.StatusOK, ExportListResponse{Files: files})
}

// Export handles POST /api/exports.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req nodeservice.ExportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Export(r.Context(), req)
	if err != nil {
		writeError(w, "export", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// DownloadExport handles GET /api/exports/*, returning the raw Markdown.
// Encoded slashes (sub%2Fplan.md) are accepted.
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	p, err := url.PathUnescape(raw)
	if err != nil {
		p = raw
	}
	data, err := h.svc.ReadExport(p)
	if err != nil {
		writeError(w, "download export", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import handles POST /api/imports for a file already in the vault.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req nodeservice.ImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Import(r.Context(), req)
	if err != nil {
		writeError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// UploadImport handles POST /api/imports/upload (multipart/form-data, field
// "file"). The file is stored in the vault under uploads/ and imported.
// Optional form fields: parent_id, author, source.
func (h *Handler) UploadImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name := path.Base(strings.ReplaceAll(header.Filename, `\`, "/"))
	if name == "." || name == "/" || strings.HasPrefix(name, ".") {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid filename"))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	dest := "uploads/" + name
	if _, err := h.svc.SaveExport(dest, data); err != nil {
		writeError(w, "upload", err)
		return
	}
	res, err := h.svc.Import(r.Context(), nodeservice.ImportRequest{
		Path:     dest,
		ParentID: r.FormValue("parent_id"),
		Author:   r.FormValue("author"),
		Source:   r.FormValue("source"),
	})
	if err != nil {
		writeError(w, "import upload", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
