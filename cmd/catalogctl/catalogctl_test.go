package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogmatch/backend/internal/infrastructure/catalog"
)

const testSeed = `{"items": [
  {"id": "lamp-1", "title": "Brass Floor Lamp", "category": "lighting", "price": 180, "tags": ["brass"]},
  {"id": "lamp-2", "title": "Paper Pendant", "category": "lighting", "price": 60, "tags": ["paper"]}
]}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile, verbose, importPublish, reindexAll = "", false, false, false
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImport_IntoSQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db")
	cfgPath := writeFile(t, dir, "config.yaml", "catalog:\n  backend: sqlite\n  sqlite_path: "+dbPath+"\n")
	seedPath := writeFile(t, dir, "items.json", testSeed)

	out, err := execute(t, "import", "--config", cfgPath, seedPath)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 items into the sqlite catalog")

	store, err := catalog.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	items, err := store.FindByCategory(context.Background(), "Lighting")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "lamp-1", items[0].ID)
}

func TestImport_InvalidSeed(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "catalog:\n  backend: memory\n")
	seedPath := writeFile(t, dir, "items.json", `{"items": [{"id": "", "title": "x"}]}`)

	_, err := execute(t, "import", "--config", cfgPath, seedPath)
	assert.Error(t, err)
}

func TestImport_PublishRequiresNATS(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "catalog:\n  backend: memory\n")
	seedPath := writeFile(t, dir, "items.json", testSeed)

	_, err := execute(t, "import", "--publish", "--config", cfgPath, seedPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nats_url")
}

func TestReindex_RequiresEmbeddingProvider(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "llm:\n  provider: none\n")

	_, err := execute(t, "reindex", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding provider")
}
