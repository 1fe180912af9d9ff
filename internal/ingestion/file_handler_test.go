package ingestion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHandler_SaveUploadedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	fh := NewFileHandler(dir, nil)

	path, err := fh.SaveUploadedFile("../../escape_Response.txt", strings.NewReader("content"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape_Response.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestFileHandler_LoadResponses(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"Acme_Response.txt":   "Acme proposes a workflow\r\n\r\n\r\n\r\nwith retry",
		"Globex_Proposal.txt": "Globex process",
		"Globex_Appendix.txt": "Globex appendix",
		"standalone.txt":      "standalone text",
		"empty_Response.txt":  "   ",
		"image_Response.png":  "not a document",
		"binary_Response.txt": "%PDF-1.4 fake",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	docs, err := NewFileHandler(dir, nil).LoadResponses()
	require.NoError(t, err)

	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Acme", "Globex", "Globex (2)", "standalone"}, names)
	assert.Equal(t, "Acme proposes a workflow\n\nwith retry", docs[0].Content)
	assert.Equal(t, filepath.Join(dir, "Acme_Response.txt"), docs[0].Path)
}

func TestFileHandler_LoadResponsesMissingDir(t *testing.T) {
	docs, err := NewFileHandler(filepath.Join(t.TempDir(), "missing"), nil).LoadResponses()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFileHandler_ClearUploads(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0600))

	fh := NewFileHandler(dir, nil)
	require.NoError(t, fh.ClearUploads())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResponseName(t *testing.T) {
	assert.Equal(t, "Acme", responseName("Acme_Response.pdf"))
	assert.Equal(t, "Acme", responseName("Acme_Final_Response.docx"))
	assert.Equal(t, "proposal", responseName("proposal.txt"))
	assert.Equal(t, "_leading", responseName("_leading.txt"))
}
