package nodeservice

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/outline/internal/apperr"
	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/storage"
)

func withVault(t *testing.T) (Option, *storage.FS) {
	t.Helper()
	vault, err := storage.NewFS(t.TempDir(), false)
	require.NoError(t, err)
	return WithVault(vault), vault
}

func TestExport(t *testing.T) {
	opt, vault := withVault(t)
	f := newFixture(t, opt)
	ctx := context.Background()
	root := f.add(t, "plan", nil)
	f.add(t, "step one", root)

	res, err := f.svc.Export(ctx, ExportRequest{Path: "out/plan.md", Title: "Plan"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Nodes)
	assert.Zero(t, res.Dropped)

	data, err := vault.Read("out/plan.md")
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: Plan\n---\n\n- plan\n  - step one\n", string(data))
}

func TestExport_Invalid(t *testing.T) {
	opt, _ := withVault(t)
	f := newFixture(t, opt)
	ctx := context.Background()

	_, err := f.svc.Export(ctx, ExportRequest{Path: "plan.txt"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = f.svc.Export(ctx, ExportRequest{Path: "../escape.md"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = newFixture(t).svc.Export(ctx, ExportRequest{Path: "plan.md"})
	assert.ErrorIs(t, err, ErrNoVault)
}

func TestImport(t *testing.T) {
	opt, vault := withVault(t)
	f := newFixture(t, opt, WithRankStep(100))
	ctx := context.Background()
	existing := f.add(t, "existing", nil)

	doc := strings.Join([]string{
		"---",
		"title: Trip",
		"author: grace",
		"---",
		"- [ ] pack",
		"  - [x] passport",
		"  - charger",
		"- [~] book hotel",
		"",
	}, "\n")
	require.NoError(t, vault.Write("trip.md", []byte(doc)))

	res, err := f.svc.Import(ctx, ImportRequest{Path: "trip.md"})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Created)
	assert.Equal(t, "Trip", res.Title)
	require.Len(t, res.Roots, 2)

	forest, err := f.svc.Forest(ctx)
	require.NoError(t, err)
	require.Len(t, forest.Roots, 3)
	assert.Equal(t, existing.ID, forest.Roots[0].ID)

	pack := forest.Roots[1]
	assert.Equal(t, "pack", pack.Text)
	assert.Equal(t, models.TypeTodo, pack.Type)
	assert.Equal(t, uint64(200), pack.Rank.Value())
	require.Len(t, pack.Children, 2)
	assert.Equal(t, "passport", pack.Children[0].Text)
	assert.Equal(t, models.TypeDone, pack.Children[0].Type)
	assert.Equal(t, uint64(100), pack.Children[0].Rank.Value())
	assert.Equal(t, uint64(200), pack.Children[1].Rank.Value())
	assert.Equal(t, uint64(300), forest.Roots[2].Rank.Value())

	n, err := f.svc.GetNode(ctx, res.Roots[0])
	require.NoError(t, err)
	assert.Equal(t, "grace", n.Author)
	assert.Equal(t, models.SourceApplication, n.Source)
}

func TestImport_UnderParent(t *testing.T) {
	opt, vault := withVault(t)
	f := newFixture(t, opt, WithRankStep(10))
	ctx := context.Background()
	parent := f.add(t, "inbox", nil)
	f.add(t, "old", parent)
	require.NoError(t, vault.Write("more.md", []byte("- new\n")))

	res, err := f.svc.Import(ctx, ImportRequest{Path: "more.md", ParentID: parent.ID.String(), Author: "ada", Source: "user"})
	require.NoError(t, err)

	n, err := f.svc.GetNode(ctx, res.Roots[0])
	require.NoError(t, err)
	require.NotNil(t, n.ParentID)
	assert.Equal(t, parent.ID, *n.ParentID)
	assert.Equal(t, uint64(20), n.Rank.Value())
	assert.Equal(t, "ada", n.Author)
	assert.Equal(t, models.SourceUser, n.Source)
}

func TestImport_Errors(t *testing.T) {
	opt, vault := withVault(t)
	f := newFixture(t, opt)
	ctx := context.Background()
	require.NoError(t, vault.Write("broken.md", []byte("- ok\n- [ ]\n")))

	_, err := f.svc.Import(ctx, ImportRequest{Path: "missing.md"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Import(ctx, ImportRequest{Path: "broken.md"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.svc.Import(ctx, ImportRequest{Path: "broken.md", ParentID: "x"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	nodes, err := f.svc.ListNodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestSaveListReadExport(t *testing.T) {
	opt, _ := withVault(t)
	f := newFixture(t, opt)

	info, err := f.svc.SaveExport("up/list.md", []byte("- one\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.Size)

	_, err = f.svc.SaveExport("bad.md", []byte("- \n"))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = f.svc.SaveExport("list.txt", []byte("- one\n"))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	files, err := f.svc.ListExports()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "up/list.md", files[0].Path)
	assert.Equal(t, info.Checksum, files[0].Checksum)

	data, err := f.svc.ReadExport("up/list.md")
	require.NoError(t, err)
	assert.Equal(t, "- one\n", string(data))

	_, err = f.svc.ReadExport("nope.md")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
