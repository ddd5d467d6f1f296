package forest

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/rank"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func node(tb testing.TB, text string, parent *models.Node, pos uint64) models.Node {
	tb.Helper()
	key, err := rank.FromValue(pos)
	require.NoError(tb, err)
	d := models.Draft{Rank: key, Text: text}
	if parent != nil {
		d.ParentID = &parent.ID
	}
	return models.New(d, t0)
}

func texts(els []*Element) []string {
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = el.Text
	}
	return out
}

func TestBuild_OrdersSiblingsByRank(t *testing.T) {
	a := node(t, "A", nil, 0)
	b := node(t, "B", &a, 100)
	c := node(t, "C", &a, 200)
	d := node(t, "D", &a, 50)

	f := Build([]models.Node{b, c, a, d})

	require.Len(t, f.Roots, 1)
	root := f.Roots[0]
	assert.Equal(t, a.ID, root.ID)
	assert.Equal(t, []string{"D", "B", "C"}, texts(root.Children))
	assert.Empty(t, f.Dropped)
}

func TestBuild_Depth(t *testing.T) {
	a := node(t, "A", nil, 0)
	b := node(t, "B", &a, 100)
	c := node(t, "C", &a, 200)
	d := node(t, "D", &a, 50)
	g := node(t, "G", &b, 1)

	f := Build([]models.Node{g, d, c, b, a})

	root := f.Roots[0]
	assert.Equal(t, 0, root.Depth)
	for _, child := range root.Children {
		assert.Equal(t, 1, child.Depth, child.Text)
	}
	bEl := f.Find(b.ID)
	require.NotNil(t, bEl)
	require.Len(t, bEl.Children, 1)
	assert.Equal(t, "G", bEl.Children[0].Text)
	assert.Equal(t, 2, bEl.Children[0].Depth)

	f.Walk(func(el *Element) bool {
		for _, child := range el.Children {
			assert.Equal(t, el.Depth+1, child.Depth)
			require.NotNil(t, child.ParentID)
			assert.Equal(t, el.ID, *child.ParentID)
		}
		return true
	})
}

func TestBuild_DropsDanglingNodes(t *testing.T) {
	a := node(t, "A", nil, 0)
	b := node(t, "B", &a, 1)
	ghost := node(t, "ghost", nil, 0)
	e := node(t, "E", &ghost, 1)
	eChild := node(t, "E1", &e, 1)

	f := Build([]models.Node{a, e, b, eChild})

	assert.Equal(t, 2, f.Len())
	assert.Nil(t, f.Find(e.ID))
	assert.Nil(t, f.Find(eChild.ID))
	assert.Equal(t, []uuid.UUID{e.ID, eChild.ID}, f.Dropped)
}

func TestBuild_ParentCycleIsDropped(t *testing.T) {
	x := node(t, "X", nil, 1)
	y := node(t, "Y", &x, 1)
	x.ParentID = &y.ID

	f := Build([]models.Node{x, y})

	assert.Empty(t, f.Roots)
	assert.ElementsMatch(t, []uuid.UUID{x.ID, y.ID}, f.Dropped)
}

func TestBuild_RootsKeepInputOrder(t *testing.T) {
	r1 := node(t, "r1", nil, 900)
	r2 := node(t, "r2", nil, 5)
	r3 := node(t, "r3", nil, 300)

	f := Build([]models.Node{r1, r2, r3})
	assert.Equal(t, []string{"r1", "r2", "r3"}, texts(f.Roots))
}

func TestBuild_EqualRanksKeepInputOrder(t *testing.T) {
	a := node(t, "A", nil, 0)
	first := node(t, "first", &a, 7)
	second := node(t, "second", &a, 7)
	third := node(t, "third", &a, 7)

	f := Build([]models.Node{second, a, third, first})
	assert.Equal(t, []string{"second", "third", "first"}, texts(f.Roots[0].Children))
}

func TestBuild_UpperCaseRanksOrderByValue(t *testing.T) {
	a := node(t, "A", nil, 0)
	lower := node(t, "lower", &a, 0)
	lower.Rank = rank.MustParse("00000000000b")
	upper := node(t, "upper", &a, 0)
	upper.Rank = rank.MustParse("00000000000A")

	f := Build([]models.Node{lower, upper, a})
	// "A" sorts before "b" as a byte string and as a value (10 < 11).
	assert.Equal(t, []string{"upper", "lower"}, texts(f.Roots[0].Children))
}

func TestBuild_Empty(t *testing.T) {
	f := Build(nil)
	assert.Empty(t, f.Roots)
	assert.Empty(t, f.Dropped)
	assert.Equal(t, 0, f.Len())
}

func TestBuild_LeafHasEmptyChildren(t *testing.T) {
	a := node(t, "A", nil, 0)
	f := Build([]models.Node{a})
	require.NotNil(t, f.Roots[0].Children)
	assert.Empty(t, f.Roots[0].Children)
}

func TestBuild_DoesNotModifyInput(t *testing.T) {
	a := node(t, "A", nil, 0)
	b := node(t, "B", &a, 2)
	c := node(t, "C", &a, 1)
	in := []models.Node{a, b, c}

	Build(in)
	assert.Equal(t, []string{"A", "B", "C"}, []string{in[0].Text, in[1].Text, in[2].Text})
}

func TestBuild_Idempotent(t *testing.T) {
	nodes := randomOutline(t, 300, 42)

	f1 := Build(nodes)
	f2 := Build(nodes)

	assert.Equal(t, f1, f2)
	assert.Equal(t, f1.Fingerprint(), f2.Fingerprint())
}

func TestBuild_InputOrderDoesNotChangeStructure(t *testing.T) {
	nodes := randomOutline(t, 300, 7)
	shuffled := append([]models.Node(nil), nodes...)
	rng := rand.New(rand.NewPCG(1, 2))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	// A single root makes root order irrelevant; ranks are unique.
	assert.Equal(t, Build(nodes).Fingerprint(), Build(shuffled).Fingerprint())
}

func TestBuild_ElementsDoNotAliasInput(t *testing.T) {
	a := node(t, "A", nil, 0)
	b := node(t, "B", &a, 1)
	in := []models.Node{a, b}

	f := Build(in)
	*in[1].ParentID = uuid.Nil
	assert.Equal(t, a.ID, *f.Roots[0].Children[0].ParentID)
}

func TestFingerprint_ChangesWithText(t *testing.T) {
	a := node(t, "A", nil, 0)
	before := Build([]models.Node{a}).Fingerprint()
	a.Text = "A2"
	assert.NotEqual(t, before, Build([]models.Node{a}).Fingerprint())
}

func TestWalk_SkipSubtree(t *testing.T) {
	a := node(t, "A", nil, 0)
	b := node(t, "B", &a, 1)
	c := node(t, "C", &b, 1)

	var seen []string
	Build([]models.Node{a, b, c}).Walk(func(el *Element) bool {
		seen = append(seen, el.Text)
		return el.Text != "B"
	})
	assert.Equal(t, []string{"A", "B"}, seen)
}

// randomOutline builds a single-rooted outline with unique sibling ranks.
func randomOutline(tb testing.TB, n int, seed uint64) []models.Node {
	tb.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	nodes := []models.Node{node(tb, "root", nil, 0)}
	for i := 1; i < n; i++ {
		parent := &nodes[rng.IntN(len(nodes))]
		nodes = append(nodes, node(tb, fmt.Sprintf("n%d", i), parent, uint64(i)*37))
	}
	return nodes
}

func BenchmarkBuild(b *testing.B) {
	nodes := randomOutline(b, 10_000, 1)
	b.ResetTimer()
	for b.Loop() {
		Build(nodes)
	}
}
