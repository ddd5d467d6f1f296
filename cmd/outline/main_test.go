package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type cliEnv struct {
	config string
	vault  string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	vault := filepath.Join(dir, "vault")
	config := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("app:\n  log_level: error\n  http:\n    port: 8080\nsqlite:\n  path: %s\nvault:\n  path: %s\nrank:\n  step: 100\n",
		filepath.Join(dir, "outline.db"), vault)
	require.NoError(t, os.WriteFile(config, []byte(body), 0o644))
	return cliEnv{config: config, vault: vault}
}

func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(context.Background(), append([]string{"outline", "--config", e.config}, args...))
	return out.String(), err
}

func (e cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "outline %v", args)
	return out
}

func idOf(t *testing.T, line string) string {
	t.Helper()
	fields := strings.Fields(line)
	require.NotEmpty(t, fields)
	return fields[0]
}

func TestAddTreeEditRemove(t *testing.T) {
	env := newCLIEnv(t)

	root := idOf(t, env.mustRun(t, "add", "weekly", "plan"))
	child := idOf(t, env.mustRun(t, "add", "--parent", root, "--type", "todo", "groceries"))
	env.mustRun(t, "add", "inbox")

	assert.Equal(t, "- weekly plan\n  - [ ] groceries\n- inbox\n", env.mustRun(t, "tree"))

	out := env.mustRun(t, "edit", child, "oat", "milk")
	assert.Contains(t, out, "oat milk")

	out = env.mustRun(t, "rm", root)
	assert.Equal(t, "deleted "+root+"\n", out)

	assert.Equal(t, "- inbox\n(1 unreachable nodes hidden)\n", env.mustRun(t, "tree"))
	assert.Len(t, strings.Split(strings.TrimSpace(env.mustRun(t, "list")), "\n"), 2)
}

func TestAddUsesConfiguredStep(t *testing.T) {
	env := newCLIEnv(t)
	first := env.mustRun(t, "add", "a")
	second := env.mustRun(t, "add", "b")
	assert.Equal(t, "00000000002s", strings.Fields(first)[1])
	assert.Equal(t, "00000000005k", strings.Fields(second)[1])
}

func TestMoveAndTreeIDs(t *testing.T) {
	env := newCLIEnv(t)
	a := idOf(t, env.mustRun(t, "add", "a"))
	b := idOf(t, env.mustRun(t, "add", "b"))

	env.mustRun(t, "move", "--parent", a, "--position", "7", b)
	out := env.mustRun(t, "tree", "--ids")
	assert.Contains(t, out, "  - b  ("+b+" 000000000007)")

	_, err := env.run(t, "move", "--parent", b, a)
	assert.Error(t, err)
}

func TestSearchCommand(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "add", "buy", "oat", "milk")
	env.mustRun(t, "add", "call", "the", "bank")

	out := env.mustRun(t, "search", "milk")
	assert.Contains(t, out, "buy oat milk")
	assert.NotContains(t, out, "bank")
}

func TestExportImport(t *testing.T) {
	env := newCLIEnv(t)
	root := idOf(t, env.mustRun(t, "add", "plan"))
	env.mustRun(t, "add", "--parent", root, "--type", "done", "ship")

	out := env.mustRun(t, "export", "--title", "Plan", "plan.md")
	assert.Contains(t, out, "exported 2 nodes to plan.md")

	data, err := os.ReadFile(filepath.Join(env.vault, "plan.md"))
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: Plan\n---\n\n- plan\n  - [x] ship\n", string(data))

	out = env.mustRun(t, "import", "plan.md")
	assert.Equal(t, "imported 2 nodes from plan.md\n", out)
	assert.Equal(t, "- plan\n  - [x] ship\n- plan\n  - [x] ship\n", env.mustRun(t, "tree"))
}

func TestHashToken(t *testing.T) {
	env := newCLIEnv(t)
	out := strings.TrimSpace(env.mustRun(t, "hash-token", "s3cret"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(out), []byte("s3cret")))
}

func TestCommandErrors(t *testing.T) {
	env := newCLIEnv(t)

	tests := [][]string{
		{"add"},
		{"add", "--type", "urgent", "x"},
		{"add", "--position", "abc", "x"},
		{"edit"},
		{"edit", "not-a-uuid", "x"},
		{"rm", "6f1c1c0e-8d38-4f7b-9a51-0d7e0f7d2b11"},
		{"import", "missing.md"},
		{"search", "--limit", "x", "a"},
		{"hash-token"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := env.run(t, args...)
			assert.Error(t, err)
		})
	}
}
