package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deltasim/internal/netlist"
)

const unknownSignalCUE = `
package broken

model: "broken"
signal: a: initial: 0
process: p: {
	output: "ghost"
	inputs: ["a", "b"]
	expr: {head: "add", args: ["?a", 1]}
	aspect: "simplify"
}
`

func TestValidate_ValidModel(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), modelDir("half_adder"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Model half_adder valid")
	assert.NotContains(t, out, "warning:")
}

func TestValidate_LoopWarning(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), modelDir("latch"))
	require.NoError(t, err, "loops are warnings, not errors")
	assert.Contains(t, out, "warning: zero-delay loop")
	assert.Contains(t, out, "✓ Model sr_latch valid")
}

func TestValidate_ValidModelJSON(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), modelDir("latch"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "sr_latch", resp.Data.Model)
	assert.Len(t, resp.Data.Warnings, 1)
}

func TestValidate_InvalidModel(t *testing.T) {
	dir := writeModel(t, unknownSignalCUE)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E102: processes[0].output")
	assert.Contains(t, out, `unknown signal "b"`)
}

func TestValidate_InvalidModelJSON(t *testing.T) {
	dir := writeModel(t, unknownSignalCUE)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, netlist.ErrUnknownSignal, resp.Error.Code)
	assert.GreaterOrEqual(t, len(resp.Data.Errors), 2)
}

func TestValidate_NonExistentDirectory(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/model")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
	assert.Contains(t, out, "not found")
}

func TestValidate_EmptyDirectory(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestValidate_RequiresOneArg(t *testing.T) {
	_, err := execute(NewValidateCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
