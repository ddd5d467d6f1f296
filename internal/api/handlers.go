package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/outline/internal/nodeservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *nodeservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *nodeservice.Service) *Handler {
	return &Handler{svc: svc}
}

// nodeID parses the {id} URL parameter, writing a 400 when it is malformed.
func nodeID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid node id"))
		return uuid.Nil, false
	}
	return id, true
}

func quoteETag(tag string) string { return `"` + tag + `"` }

// ListNodes handles GET /api/nodes.
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.ListNodes(r.Context())
	if err != nil {
		writeError(w, "list nodes", err)
		return
	}
	out := make([]NodeResponse, len(nodes))
	for i := range nodes {
		out[i] = nodeResponse(&nodes[i])
	}
	writeJSON(w, http.StatusOK, NodeListResponse{Nodes: out, Total: len(out)})
}

// GetNode handles GET /api/nodes/{id}.
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r)
	if !ok {
		return
	}
	n, err := h.svc.GetNode(r.Context(), id)
	if err != nil {
		writeError(w, "get node", err)
		return
	}
	w.Header().Set("ETag", quoteETag(n.ETag()))
	writeJSON(w, http.StatusOK, nodeResponse(n))
}

// CreateNode handles POST /api/nodes.
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.svc.CreateNode(r.Context(), req)
	if err != nil {
		writeError(w, "create node", err)
		return
	}
	w.Header().Set("ETag", quoteETag(n.ETag()))
	w.Header().Set("Location", "/api/nodes/"+n.ID.String())
	writeJSON(w, http.StatusCreated, nodeResponse(n))
}

// UpdateNode handles PUT /api/nodes/{id}. An If-Match header makes the
// update conditional on the node's current ETag.
func (h *Handler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r)
	if !ok {
		return
	}
	var req UpdateNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	n, err := h.svc.UpdateNodeText(r.Context(), id, req.Text, ifMatch)
	if err != nil {
		writeError(w, "update node", err)
		return
	}
	w.Header().Set("ETag", quoteETag(n.ETag()))
	writeJSON(w, http.StatusOK, nodeResponse(n))
}

// MoveNode handles POST /api/nodes/{id}/move.
func (h *Handler) MoveNode(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r)
	if !ok {
		return
	}
	var req MoveNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.svc.MoveNode(r.Context(), id, req)
	if err != nil {
		writeError(w, "move node", err)
		return
	}
	w.Header().Set("ETag", quoteETag(n.ETag()))
	writeJSON(w, http.StatusOK, nodeResponse(n))
}

// DeleteNode handles DELETE /api/nodes/{id}.
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteNode(r.Context(), id); err != nil {
		writeError(w, "delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Forest handles GET /api/forest. The ETag is the forest fingerprint, so a
// matching If-None-Match yields 304.
func (h *Handler) Forest(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Forest(r.Context())
	if err != nil {
		writeError(w, "forest", err)
		return
	}
	fp := f.Fingerprint()
	w.Header().Set("ETag", quoteETag(fp))
	if strings.Trim(r.Header.Get("If-None-Match"), `"`) == fp {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, ForestResponse{Forest: f, Fingerprint: fp, Count: f.Len()})
}

// Search handles GET /api/search?q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: searchResults(results)})
}
