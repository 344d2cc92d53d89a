package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nickyhof/TableDB"
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

func setupTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{Registry: "test", Identity: testIdentity}
	instance, err := TableDB.Open(context.Background(), cfg, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	return NewCLI(instance, testIdentity, &out), &out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const script = `# users and orders
{"op":"create_table","table":"users","schema":{"columns":[
  {"name":"id","type":"int","primary_key":true,"nullable":false},
  {"name":"name","type":"string"}]}}
{"op":"insert","table":"users","fields":{"id":1,"name":"Alice # not a comment"}}
{"op":"insert","table":"users","fields":{"id":2,"name":"Bob \"the\" builder"}}

{"op":"insert","table":"users","fields":{"id":"three"}}
{"op":"count","table":"users"}
`

func TestSplitRequests(t *testing.T) {
	requests := splitRequests(script)
	require.Len(t, requests, 5)
	assert.True(t, strings.HasPrefix(requests[0], `{"op":"create_table"`))
	assert.Contains(t, requests[0], `"nullable":false}`)
	assert.Contains(t, requests[1], "Alice # not a comment")
	assert.Contains(t, requests[2], `Bob \"the\" builder`)
	assert.Equal(t, `{"op":"count","table":"users"}`, requests[4])
}

func TestSplitRequestsKeepsGarbage(t *testing.T) {
	requests := splitRequests("SELECT 1\n{\"op\":\"tables\"} {\"op\":\"tables\"}\n")
	assert.Equal(t, []string{"SELECT 1", `{"op":"tables"}`, `{"op":"tables"}`}, requests)
}

func TestRequestComplete(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`{"op":"tables"}`, true},
		{`{"op":"insert","fields":{`, false},
		{`{"op":"insert","fields":{"name":"}"`, false},
		{`{"op":"insert","fields":{"name":"}"}}`, true},
		{`{"op":"x","s":"\"`, false},
		{`not json`, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, requestComplete(tt.input), tt.input)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n  b\tc", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestImportScript(t *testing.T) {
	cli, out := setupTestCLI(t)

	summary, err := cli.ImportScript(context.Background(), writeFile(t, "seed.jsonl", script))
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 5, summary.Total())

	output := out.String()
	assert.Contains(t, output, "[1] ✓")
	assert.Contains(t, output, "1 table created")
	assert.Contains(t, output, "[4] ✗")
	assert.Contains(t, output, "invalid value for column users.id")
	assert.Contains(t, output, "count = 2")
	assert.Contains(t, output, "4 succeeded, 1 failed")

	_, err = cli.ImportScript(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestHandleCommands(t *testing.T) {
	cli, out := setupTestCLI(t)
	ctx := context.Background()

	cli.execute(ctx, `{"op":"create_table","table":"users","schema":{"columns":[{"name":"id","type":"int","primary_key":true}]}}`)
	out.Reset()

	assert.False(t, cli.handleCommand(ctx, ".tables"))
	assert.Contains(t, out.String(), "users")
	out.Reset()

	assert.False(t, cli.handleCommand(ctx, ".schema users"))
	assert.Contains(t, out.String(), "PK")
	out.Reset()

	assert.False(t, cli.handleCommand(ctx, ".schema"))
	assert.Contains(t, out.String(), "Usage: .schema <table>")
	out.Reset()

	assert.False(t, cli.handleCommand(ctx, ".schema missing"))
	assert.Contains(t, out.String(), "unknown table")
	out.Reset()

	assert.False(t, cli.handleCommand(ctx, ".snapshot First Snapshot"))
	assert.Contains(t, out.String(), "snapshot ")
	out.Reset()

	assert.False(t, cli.handleCommand(ctx, ".history"))
	assert.Contains(t, out.String(), "First Snapshot")
	out.Reset()

	assert.False(t, cli.handleCommand(ctx, ".help"))
	assert.Contains(t, out.String(), ".snapshot [message]")
	out.Reset()

	assert.False(t, cli.handleCommand(ctx, ".bogus"))
	assert.Contains(t, out.String(), "Unknown command: .bogus")
	out.Reset()

	assert.True(t, cli.handleCommand(ctx, ".quit"))
	assert.True(t, cli.handleCommand(ctx, ".EXIT"))
}

func TestApplyAndImportCommands(t *testing.T) {
	cli, out := setupTestCLI(t)
	ctx := context.Background()

	schema := writeFile(t, "schema.yaml", `tables:
  - name: notes
    columns:
      - {name: body, type: string, max_length: 5}
`)
	cli.handleCommand(ctx, ".apply "+schema)
	assert.Contains(t, out.String(), "Schema applied")
	out.Reset()

	requests := writeFile(t, "notes.jsonl", `{"op":"insert","table":"notes","fields":{"body":"hi"}}
{"op":"insert","table":"notes","fields":{"body":"too long"}}
`)
	cli.handleCommand(ctx, ".import "+requests)
	assert.Contains(t, out.String(), "1 succeeded, 1 failed")
	out.Reset()

	cli.execute(ctx, `{"op":"select","table":"notes"}`)
	assert.Contains(t, out.String(), "1 rows")
}

func TestPushWithoutRemote(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.handleCommand(context.Background(), ".push")
	assert.Contains(t, out.String(), "Error")
}

func TestRemoteCommand(t *testing.T) {
	cli, out := setupTestCLI(t)
	ctx := context.Background()

	cli.handleCommand(ctx, ".remote")
	assert.Contains(t, out.String(), "No remotes configured")
	out.Reset()

	cli.handleCommand(ctx, ".remote add origin https://example.com/tables.git")
	assert.Contains(t, out.String(), "Remote 'origin' added")
	out.Reset()

	cli.handleCommand(ctx, ".remote add origin https://example.com/other.git")
	assert.Contains(t, out.String(), "failed to add remote 'origin'")
	out.Reset()

	cli.handleCommand(ctx, ".remote")
	assert.Contains(t, out.String(), "origin\thttps://example.com/tables.git")
	out.Reset()

	cli.handleCommand(ctx, ".remote drop origin")
	assert.Contains(t, out.String(), "Usage: .remote")
}
