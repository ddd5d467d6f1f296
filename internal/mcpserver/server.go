// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes outline tools to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/nodeservice"
)

// DefaultAuthor is recorded on nodes created without an explicit author.
const DefaultAuthor = "agent"

// Server wraps the MCP server with outline tools.
type Server struct {
	mcp *server.MCPServer
	svc *nodeservice.Service
}

// New creates an MCP server with every outline tool registered.
func New(svc *nodeservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Outline",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_forest",
		mcp.WithDescription("Return the whole outline as nested trees. Siblings are ordered by rank_key; "+
			"each element carries its depth. Nodes whose parent is missing are listed under dropped."),
	), s.getForest)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Read one node, including its etag."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node UUID")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Create a node. Without rank_key or position it is appended after its last sibling. "+
			"Read the rank contract via get_rank_contract or the outline://rank-format resource first."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Node text")),
		mcp.WithString("parent_id", mcp.Description("Parent node UUID; omit for a top-level node")),
		mcp.WithString("rank_key", mcp.Description("Explicit 12-character base-36 rank")),
		mcp.WithString("position", mcp.Description("Explicit rank as a decimal number")),
		mcp.WithString("node_type", mcp.Description("Standard, Todo, InProgress or Done")),
		mcp.WithString("author", mcp.Description("Author name (defaults to agent)")),
	), s.addNode)

	s.mcp.AddTool(mcp.NewTool("update_node",
		mcp.WithDescription("Replace the text of a node. Pass the etag from get_node to avoid overwriting a concurrent edit."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node UUID")),
		mcp.WithString("text", mcp.Required(), mcp.Description("New text")),
		mcp.WithString("etag", mcp.Description("Expected current etag")),
	), s.updateNode)

	s.mcp.AddTool(mcp.NewTool("move_node",
		mcp.WithDescription("Move a node under a new parent (or to the top level) at a new rank."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node UUID")),
		mcp.WithString("parent_id", mcp.Description("New parent UUID; omit for top level")),
		mcp.WithString("rank_key", mcp.Description("Explicit 12-character base-36 rank")),
		mcp.WithString("position", mcp.Description("Explicit rank as a decimal number")),
	), s.moveNode)

	s.mcp.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete one node. Its children remain stored but disappear from the forest."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node UUID")),
	), s.deleteNode)

	s.mcp.AddTool(mcp.NewTool("search_nodes",
		mcp.WithDescription("Full-text search through node text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNodes)

	s.mcp.AddTool(mcp.NewTool("export_outline",
		mcp.WithDescription("Write the forest as a Markdown outline into the export vault."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path ending in .md")),
		mcp.WithString("title", mcp.Description("Title for the frontmatter")),
	), s.exportOutline)

	s.mcp.AddTool(mcp.NewTool("import_outline",
		mcp.WithDescription("Create nodes from a Markdown outline already in the export vault."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path ending in .md")),
		mcp.WithString("parent_id", mcp.Description("Attach imported top-level items under this node")),
	), s.importOutline)

	s.mcp.AddTool(mcp.NewTool("fetch_outline",
		mcp.WithDescription("Download a Markdown outline from an http(s) URL or a base64 data URI, "+
			"store it in the vault under fetched/ and import it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:text/markdown;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name to store under fetched/")),
		mcp.WithString("parent_id", mcp.Description("Attach imported top-level items under this node")),
	), s.fetchOutline)

	s.mcp.AddTool(mcp.NewTool("get_rank_contract",
		mcp.WithDescription("Returns the rank key and outline format contract."),
	), s.getRankContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Rank Format Contract",
			mcp.WithResourceDescription("How sibling order is encoded and how outlines are written as Markdown."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func optional(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func requireID(req mcp.CallToolRequest) (uuid.UUID, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func optionalPosition(req mcp.CallToolRequest) (*uint64, error) {
	raw := optional(req, "position")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid position %q", raw)
	}
	return &v, nil
}

type nodeResult struct {
	models.Node
	ETag string `json:"etag"`
}

func (s *Server) getForest(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := s.svc.Forest(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(f)
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.GetNode(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nodeResult{Node: *n, ETag: n.ETag()})
}

func (s *Server) addNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos, err := optionalPosition(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author := optional(req, "author")
	if author == "" {
		author = DefaultAuthor
	}

	n, err := s.svc.CreateNode(ctx, nodeservice.CreateNodeRequest{
		ParentID: optional(req, "parent_id"),
		Rank:     optional(req, "rank_key"),
		Position: pos,
		Type:     optional(req, "node_type"),
		Text:     text,
		Author:   author,
		Source:   models.SourceAgent.String(),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nodeResult{Node: *n, ETag: n.ETag()})
}

func (s *Server) updateNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.UpdateNodeText(ctx, id, text, optional(req, "etag"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nodeResult{Node: *n, ETag: n.ETag()})
}

func (s *Server) moveNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos, err := optionalPosition(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.MoveNode(ctx, id, nodeservice.MoveNodeRequest{
		ParentID: optional(req, "parent_id"),
		Rank:     optional(req, "rank_key"),
		Position: pos,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nodeResult{Node: *n, ETag: n.ETag()})
}

func (s *Server) deleteNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteNode(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) searchNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

func (s *Server) exportOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Export(ctx, nodeservice.ExportRequest{Path: path, Title: optional(req, "title"), Author: DefaultAuthor})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) importOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.runImport(ctx, path, optional(req, "parent_id"))
}

func (s *Server) runImport(ctx context.Context, path, parentID string) (*mcp.CallToolResult, error) {
	res, err := s.svc.Import(ctx, nodeservice.ImportRequest{
		Path:     path,
		ParentID: parentID,
		Source:   models.SourceAgent.String(),
	})
	if err != nil {
		if errors.Is(err, nodeservice.ErrNoVault) {
			return mcp.NewToolResultError("export vault not configured"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getRankContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RankFormatContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     RankFormatContract,
		},
	}, nil
}
