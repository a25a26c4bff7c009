package candidates

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
}

func TestFolderSourceList(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"zoe.txt":    "z",
		"adam.md":    "a",
		"mia.PDF":    "m",
		"notes.json": "{}",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.txt"), 0o700))

	docs, err := NewFolderSource(dir).List(context.Background())
	require.NoError(t, err)

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"adam.md", "mia.PDF", "zoe.txt"}, names)
	assert.Equal(t, "mia", docs[1].ID)
	assert.Equal(t, filepath.Join(dir, "mia.PDF"), docs[1].Path)
}

func TestFolderSourceErrors(t *testing.T) {
	_, err := NewFolderSource(" ").List(context.Background())
	assert.EqualError(t, err, "resume folder is not configured")

	_, err = NewFolderSource(filepath.Join(t.TempDir(), "missing")).List(context.Background())
	assert.ErrorContains(t, err, "read resume folder")
}

func TestFileExtractorPlainText(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"jane.txt": "  Jane\x00 Doe\n\tGo developer\r\n"})

	text, err := FileExtractor{}.Extract(context.Background(), NewDocument(filepath.Join(dir, "jane.txt")))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\n\tGo developer", text)
}

func TestFileExtractorBrokenPDF(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"broken.pdf": "this is not a pdf"})

	_, err := FileExtractor{}.Extract(context.Background(), NewDocument(filepath.Join(dir, "broken.pdf")))
	assert.Error(t, err)
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ligature", in: "certiﬁcation", want: "certification"},
		{name: "fullwidth", in: "Ｇｏ", want: "Go"},
		{name: "controls", in: "a\x07b\x1bc", want: "abc"},
		{name: "keeps layout", in: "line one\nline\ttwo", want: "line one\nline\ttwo"},
		{name: "trims", in: "\n  padded  \n", want: "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument("/data/resumes/john.smith.pdf")
	assert.Equal(t, Document{ID: "john.smith", Name: "john.smith.pdf", Path: "/data/resumes/john.smith.pdf"}, doc)
}
