package markdown

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcatenate(t *testing.T) {
	dir := t.TempDir()
	file1 := filepath.Join(dir, "file1.md")
	file2 := filepath.Join(dir, "file2.md")
	writeFile(t, file1, "Content 1")
	writeFile(t, file2, "Content 2")

	output := filepath.Join(dir, "output.md")
	require.NoError(t, Concatenate([]string{file1, file2}, output))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	result := string(data)
	assert.Equal(t, "Content 1\n\nContent 2\n\n", result)
	assert.Less(t, strings.Index(result, "Content 1"), strings.Index(result, "Content 2"))
}

func TestConcatenateEmptyAndOverwrite(t *testing.T) {
	output := filepath.Join(t.TempDir(), "nested", "llms.txt")
	writeFile(t, output, "stale content")

	require.NoError(t, Concatenate(nil, output))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestConcatenateMissingInput(t *testing.T) {
	dir := t.TempDir()
	err := Concatenate([]string{filepath.Join(dir, "missing.md")}, filepath.Join(dir, "out.txt"))
	require.Error(t, err)
}

func TestRemoveFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.md")
	writeFile(t, a, "a")

	err := RemoveFiles([]string{a, filepath.Join(dir, "missing.md")})
	require.Error(t, err)
	assert.NoFileExists(t, a)
	require.NoError(t, RemoveFiles(nil))
}
