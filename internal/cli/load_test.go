package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		flag string
		path string
	}{
		{"sqlite", "--db", filepath.Join(dir, "quads.db")},
		{"badger", "--kv", filepath.Join(dir, "quads")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, "", "load", tt.flag, tt.path, testPeople)
			require.NoError(t, err)
			assert.Equal(t, "✓ Loaded 5 quad(s) from 1 file(s), 5 new\n", stdout)

			// Reloading the same file from stdin adds nothing.
			data, err := os.ReadFile(testPeople)
			require.NoError(t, err)
			stdout, _, err = execute(t, string(data), "--format", "json", "load", tt.flag, tt.path, "-")
			require.NoError(t, err)

			var resp struct {
				Status string     `json:"status"`
				Data   LoadResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
			assert.Equal(t, LoadResult{Files: 1, Read: 5, Added: 0}, resp.Data)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.nq")
	require.NoError(t, os.WriteFile(bad, []byte("not a quad\n"), 0o644))

	t.Run("unparseable file", func(t *testing.T) {
		stdout, _, err := execute(t, "", "load", "--db", filepath.Join(dir, "q.db"), bad)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, stdout, "Error ["+ErrCodeInvalidInput+"]")
	})

	t.Run("missing file", func(t *testing.T) {
		stdout, _, err := execute(t, "", "load", "--db", filepath.Join(dir, "q.db"), filepath.Join(dir, "none.nq"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, stdout, "Error ["+ErrCodeNotFound+"]")
	})

	t.Run("no database", func(t *testing.T) {
		_, _, err := execute(t, "", "load", testPeople)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db kv")
	})

	t.Run("both databases", func(t *testing.T) {
		_, _, err := execute(t, "", "load", "--db", filepath.Join(dir, "a.db"), "--kv", filepath.Join(dir, "kv"), testPeople)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "none of the others can be")
	})
}
