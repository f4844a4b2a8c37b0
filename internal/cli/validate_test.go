package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func runValidate(t *testing.T, path string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidate_GoodSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.cue")
	writeFile(t, path, "maxValueLength: 500\nchildrenBatchSize: 50\n")

	output, err := runValidate(t, path)
	require.NoError(t, err)
	assert.Contains(t, output, "ok:")
	assert.Contains(t, output, "maxValueLength=500")
	assert.Contains(t, output, "childrenBatchSize=50")
}

func TestValidate_BadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.cue")
	writeFile(t, path, "maxValueLength: -1\n")

	_, err := runValidate(t, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxValueLength")
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := runValidate(t, filepath.Join(t.TempDir(), "nope.cue"))
	assert.Error(t, err)
}
