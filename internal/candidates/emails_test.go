package candidates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const responsesCSV = "\ufeffTimestamp, Email Address ,Full Name,File Upload\n" +
	"2024-03-01,alice@example.com,Alice,https://drive.example.com/u/alice_cv.pdf\n" +
	"2024-03-01,,Bob,https://drive.example.com/u/bob.pdf\n" +
	"2024-03-02,carol@example.com,Carol,\n" +
	"2024-03-02,dave@example.com,Dave,https://drive.example.com/u/dave.docx\n" +
	"2024-03-03, erin@example.com ,Erin,https://drive.example.com/u/files/erin.pdf\n"

func TestReadEmailMapping(t *testing.T) {
	mapping, err := ReadEmailMapping(strings.NewReader(responsesCSV))
	require.NoError(t, err)

	assert.Equal(t, EmailMapping{
		"alice_cv": "alice@example.com",
		"erin":     "erin@example.com",
	}, mapping)
	assert.Equal(t, "", mapping.Get("bob"))
}

func TestReadEmailMappingEmpty(t *testing.T) {
	mapping, err := ReadEmailMapping(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, mapping)

	var nilMapping EmailMapping
	assert.Equal(t, "", nilMapping.Get("anyone"))
}

func TestReadEmailMappingShortRows(t *testing.T) {
	data := "Email Address,File Upload\nonly@example.com\n"
	mapping, err := ReadEmailMapping(strings.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, mapping)
}

func TestLoadEmailMapping(t *testing.T) {
	mapping, err := LoadEmailMapping("")
	require.NoError(t, err)
	assert.Empty(t, mapping)

	path := filepath.Join(t.TempDir(), "responses.csv")
	require.NoError(t, os.WriteFile(path, []byte(responsesCSV), 0o600))

	mapping, err = LoadEmailMapping(path)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", mapping.Get("alice_cv"))

	_, err = LoadEmailMapping(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "open responses file")
}
