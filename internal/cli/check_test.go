package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/distill/internal/compiler"
)

func TestCheck_Valid(t *testing.T) {
	stdout, _, err := execute(t, "", "check", testLayouts)
	require.NoError(t, err)
	assert.Contains(t, stdout, `⚠ shape: variants "circle" and "disc" overlap`)
	assert.Contains(t, stdout, "✓ All layouts valid (6 layouts)")
}

func TestCheck_ValidJSON(t *testing.T) {
	stdout, _, err := execute(t, "", "--format", "json", "check", testLayouts)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 6, resp.Data.Layouts)
	assert.Empty(t, resp.Data.Cycles)
	require.Len(t, resp.Data.Overlaps, 1)
	assert.Equal(t, []string{"circle", "disc"}, resp.Data.Overlaps[0].Variants)
}

func TestCheck_Recursive(t *testing.T) {
	stdout, _, err := execute(t, "", "check", filepath.Join("..", "compiler", "testdata", "recursive.cue"))
	require.NoError(t, err, "recursion is a warning")
	assert.Contains(t, stdout, "⚠ Recursive layout: chain → chain")
	assert.Contains(t, stdout, "✓ All layouts valid")
}

func TestCheck_InvalidLayouts(t *testing.T) {
	stdout, _, err := execute(t, "", "check", "testdata/invalid")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 1 error(s)")
	assert.Contains(t, stdout, "✗ Validation failed")
	assert.Contains(t, stdout, compiler.ErrUnknownReference+": card.fields.title.value.layout")
}

func TestCheck_InvalidLayoutsJSON(t *testing.T) {
	stdout, _, err := execute(t, "", "--format", "json", "check", "testdata/invalid")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
		Error  *CLIError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrUnknownReference, resp.Error.Code)
}

func TestCheck_CommandErrors(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(broken, []byte("layouts: {\n"), 0o644))

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing", "/nonexistent/layouts", ErrCodeNotFound},
		{"empty directory", t.TempDir(), ErrCodeNoFiles},
		{"CUE syntax error", broken, ErrCodeLoadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, "", "check", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			assert.Contains(t, stdout, "Error ["+tt.code+"]")
		})
	}
}
