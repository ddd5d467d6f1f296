package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/outline/internal/forest"
	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/nodeservice"
	"github.com/starford/outline/internal/storage"
	"github.com/starford/outline/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	db := testutil.TestDB(t)
	_, vault := testutil.TestVault(t)
	svc := nodeservice.NewService(db, nodeservice.WithVault(vault))
	return New(svc, "test"), vault
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_forest":
		result, err = srv.getForest(ctx, req)
	case "get_node":
		result, err = srv.getNode(ctx, req)
	case "add_node":
		result, err = srv.addNode(ctx, req)
	case "update_node":
		result, err = srv.updateNode(ctx, req)
	case "move_node":
		result, err = srv.moveNode(ctx, req)
	case "delete_node":
		result, err = srv.deleteNode(ctx, req)
	case "search_nodes":
		result, err = srv.searchNodes(ctx, req)
	case "export_outline":
		result, err = srv.exportOutline(ctx, req)
	case "import_outline":
		result, err = srv.importOutline(ctx, req)
	case "fetch_outline":
		result, err = srv.fetchOutline(ctx, req)
	case "get_rank_contract":
		result, err = srv.getRankContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeNode(t *testing.T, r *mcp.CallToolResult) nodeResult {
	t.Helper()
	require.False(t, r.IsError, resultText(r))
	var n nodeResult
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &n))
	return n
}

func addNode(t *testing.T, srv *Server, args map[string]interface{}) nodeResult {
	t.Helper()
	return decodeNode(t, callTool(t, srv, "add_node", args))
}

func TestAddAndGetNode(t *testing.T) {
	srv, _ := testServer(t)

	created := addNode(t, srv, map[string]interface{}{"text": "ship it", "node_type": "todo"})
	assert.Equal(t, "ship it", created.Text)
	assert.Equal(t, models.TypeTodo, created.Type)
	assert.Equal(t, DefaultAuthor, created.Author)
	assert.Equal(t, models.SourceAgent, created.Source)
	assert.Equal(t, "000000010000", created.Rank.String())
	assert.NotEmpty(t, created.ETag)

	got := decodeNode(t, callTool(t, srv, "get_node", map[string]interface{}{"id": created.ID.String()}))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.ETag, got.ETag)
}

func TestAddNodeInvalidArguments(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing text", map[string]interface{}{}},
		{"bad position", map[string]interface{}{"text": "a", "position": "-1"}},
		{"bad rank", map[string]interface{}{"text": "a", "rank_key": "short"}},
		{"rank and position", map[string]interface{}{"text": "a", "rank_key": "000000000001", "position": "1"}},
		{"unknown parent", map[string]interface{}{"text": "a", "parent_id": "6f1c1c0e-8d38-4f7b-9a51-0d7e0f7d2b11"}},
		{"bad type", map[string]interface{}{"text": "a", "node_type": "urgent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := callTool(t, srv, "add_node", tt.args)
			assert.True(t, r.IsError)
		})
	}
}

func TestGetNodeMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_node", map[string]interface{}{"id": "6f1c1c0e-8d38-4f7b-9a51-0d7e0f7d2b11"})
	assert.True(t, r.IsError)

	r = callTool(t, srv, "get_node", map[string]interface{}{"id": "nope"})
	assert.True(t, r.IsError)
}

func TestUpdateNodeETag(t *testing.T) {
	srv, _ := testServer(t)
	n := addNode(t, srv, map[string]interface{}{"text": "draft"})

	updated := decodeNode(t, callTool(t, srv, "update_node", map[string]interface{}{
		"id": n.ID.String(), "text": "final", "etag": n.ETag,
	}))
	assert.Equal(t, "final", updated.Text)
	assert.NotEqual(t, n.ETag, updated.ETag)

	r := callTool(t, srv, "update_node", map[string]interface{}{
		"id": n.ID.String(), "text": "stale", "etag": n.ETag,
	})
	assert.True(t, r.IsError)
}

func TestMoveAndForest(t *testing.T) {
	srv, _ := testServer(t)
	a := addNode(t, srv, map[string]interface{}{"text": "a"})
	b := addNode(t, srv, map[string]interface{}{"text": "b"})

	moved := decodeNode(t, callTool(t, srv, "move_node", map[string]interface{}{
		"id": b.ID.String(), "parent_id": a.ID.String(), "position": "5",
	}))
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, a.ID, *moved.ParentID)
	assert.Equal(t, uint64(5), moved.Rank.Value())

	r := callTool(t, srv, "move_node", map[string]interface{}{
		"id": a.ID.String(), "parent_id": b.ID.String(),
	})
	assert.True(t, r.IsError, "moving a node under its own child must fail")

	r = callTool(t, srv, "get_forest", map[string]interface{}{})
	require.False(t, r.IsError)
	var f forest.Forest
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &f))
	require.Len(t, f.Roots, 1)
	assert.Equal(t, "a", f.Roots[0].Text)
	require.Len(t, f.Roots[0].Children, 1)
	assert.Equal(t, "b", f.Roots[0].Children[0].Text)
	assert.Equal(t, 1, f.Roots[0].Children[0].Depth)
}

func TestDeleteNode(t *testing.T) {
	srv, _ := testServer(t)
	n := addNode(t, srv, map[string]interface{}{"text": "gone"})

	r := callTool(t, srv, "delete_node", map[string]interface{}{"id": n.ID.String()})
	assert.Equal(t, "deleted: "+n.ID.String(), resultText(r))

	r = callTool(t, srv, "delete_node", map[string]interface{}{"id": n.ID.String()})
	assert.True(t, r.IsError)
}

func TestSearchNodes(t *testing.T) {
	srv, _ := testServer(t)
	addNode(t, srv, map[string]interface{}{"text": "buy oat milk"})
	addNode(t, srv, map[string]interface{}{"text": "call the bank"})

	r := callTool(t, srv, "search_nodes", map[string]interface{}{"query": "milk"})
	require.False(t, r.IsError, resultText(r))
	assert.Contains(t, resultText(r), "buy oat milk")
	assert.NotContains(t, resultText(r), "call the bank")

	r = callTool(t, srv, "search_nodes", map[string]interface{}{"query": "zebra"})
	assert.Equal(t, "no matches", resultText(r))
}

func TestExportImportOutline(t *testing.T) {
	srv, vault := testServer(t)
	root := addNode(t, srv, map[string]interface{}{"text": "plan"})
	addNode(t, srv, map[string]interface{}{"text": "step", "parent_id": root.ID.String(), "node_type": "done"})

	r := callTool(t, srv, "export_outline", map[string]interface{}{"path": "plan.md", "title": "Plan"})
	require.False(t, r.IsError, resultText(r))

	data, err := vault.Read("plan.md")
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: Plan\nauthor: agent\n---\n\n- plan\n  - [x] step\n", string(data))

	r = callTool(t, srv, "import_outline", map[string]interface{}{"path": "plan.md", "parent_id": root.ID.String()})
	require.False(t, r.IsError, resultText(r))
	var res nodeservice.ImportResult
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &res))
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, "Plan", res.Title)

	r = callTool(t, srv, "import_outline", map[string]interface{}{"path": "missing.md"})
	assert.True(t, r.IsError)
}

func TestFetchOutlineDataURI(t *testing.T) {
	srv, vault := testServer(t)
	body := "# Groceries\n\n- [ ] milk\n- [ ] eggs\n"
	uri := "data:text/markdown;base64," + base64.StdEncoding.EncodeToString([]byte(body))

	r := callTool(t, srv, "fetch_outline", map[string]interface{}{"url": uri, "filename": "../groceries"})
	require.False(t, r.IsError, resultText(r))
	var res nodeservice.ImportResult
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &res))
	assert.Equal(t, "fetched/groceries.md", res.Path)
	assert.Equal(t, "Groceries", res.Title)
	assert.Equal(t, 2, res.Created)

	data, err := vault.Read("fetched/groceries.md")
	require.NoError(t, err)
	assert.Equal(t, body, string(data))

	r = callTool(t, srv, "fetch_outline", map[string]interface{}{"url": uri, "filename": "groceries.md"})
	assert.True(t, r.IsError, "second fetch to the same name must not overwrite")
}

func TestFetchOutlineRejects(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		url  string
	}{
		{"image data", "data:image/png;base64,iVBORw0KGgo="},
		{"not base64", "data:text/markdown,- a"},
		{"binary", "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte{0xff, 0x00, 0x01})},
		{"scheme", "ftp://example.com/a.md"},
		{"loopback", "http://127.0.0.1/a.md"},
		{"metadata", "http://169.254.169.254/latest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := callTool(t, srv, "fetch_outline", map[string]interface{}{"url": tt.url})
			assert.True(t, r.IsError)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "notes.md", sanitizeFilename("a/b/notes.md"))
	assert.Equal(t, "my_list.md", sanitizeFilename("my list.md"))
	assert.Equal(t, "evil.md", sanitizeFilename(`..\evil.md`))
	assert.NotEqual(t, ".hidden", sanitizeFilename(".hidden"))
}

func TestRankContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_rank_contract", map[string]interface{}{})
	text := resultText(r)
	assert.True(t, strings.HasPrefix(text, "# Outline Rank Format Contract"))

	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, contractURI, tc.URI)
	assert.Equal(t, RankFormatContract, tc.Text)
}
