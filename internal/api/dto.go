package api

import (
	"github.com/starford/outline/internal/forest"
	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/nodeservice"
	"github.com/starford/outline/internal/storage"
	"github.com/starford/outline/internal/store"
)

// CreateNodeRequest is the request body for creating a node (aliased from the domain layer).
type CreateNodeRequest = nodeservice.CreateNodeRequest

// MoveNodeRequest is the request body for moving a node (aliased from the domain layer).
type MoveNodeRequest = nodeservice.MoveNodeRequest

// UpdateNodeRequest is the request body for replacing a node's text.
type UpdateNodeRequest struct {
	Text string `json:"text"`
}

// NodeResponse is a node plus its current ETag.
type NodeResponse struct {
	models.Node
	ETag string `json:"etag"`
}

func nodeResponse(n *models.Node) NodeResponse {
	return NodeResponse{Node: *n, ETag: n.ETag()}
}

// NodeListResponse wraps a node listing.
type NodeListResponse struct {
	Nodes []NodeResponse `json:"nodes"`
	Total int            `json:"total"`
}

// ForestResponse is the materialized outline.
type ForestResponse struct {
	*forest.Forest
	Fingerprint string `json:"fingerprint"`
	Count       int    `json:"count"`
}

// SearchResult is a single search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Snippet string `json:"snippet"`
}

func searchResults(in []store.SearchResult) []SearchResult {
	out := make([]SearchResult, len(in))
	for i, r := range in {
		out[i] = SearchResult{ID: r.Node.ID.String(), Text: r.Node.Text, Snippet: r.Snippet}
	}
	return out
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// ExportListResponse lists vault files.
type ExportListResponse struct {
	Files []storage.FileInfo `json:"files"`
}
