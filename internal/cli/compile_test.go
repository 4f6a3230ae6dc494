package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deltasim/internal/compiler"
)

func TestCompile_Text(t *testing.T) {
	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), modelDir("half_adder"))
	require.NoError(t, err)

	res, err := compiler.LoadDir(modelDir("half_adder"))
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled model half_adder")
	assert.Contains(t, out, "Hash: "+res.Model.Hash())
	assert.Contains(t, out, "Signals: 4, Buses: 1, Processes: 2, Theorems: 2, Stimuli: 2")
}

func TestCompile_JSON(t *testing.T) {
	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), modelDir("latch"))
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sr_latch", resp.Data.Model)
	assert.Equal(t, 1, resp.Data.Files)
	assert.Equal(t, 3, resp.Data.Stimuli)
	assert.NotEmpty(t, resp.Data.ModelHash)
}

func TestCompile_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latch.json")

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), "-o", path, modelDir("latch"))
	require.NoError(t, err)
	assert.Contains(t, out, "Output: "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.Contains(t, string(data), `"sr_latch"`)

	// Output is canonical: compiling again writes the same bytes.
	again := filepath.Join(t.TempDir(), "again.json")
	_, err = execute(NewCompileCommand(&RootOptions{Format: "text"}), "-o", again, modelDir("latch"))
	require.NoError(t, err)
	data2, err := os.ReadFile(again)
	require.NoError(t, err)
	assert.Equal(t, data, data2)
}

func TestCompile_UnwritableOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.json")

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), "-o", path, modelDir("latch"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E015]")
}

func TestCompile_SyntaxError(t *testing.T) {
	dir := writeModel(t, "package bad\n\nmodel: \"bad\"\nsignal: {\n")

	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, []byte(out))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, []string{compiler.ErrCodeLoadFailed, compiler.ErrCodeBuildFailed}, resp.Error.Code)
}
