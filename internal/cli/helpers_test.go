package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/testutil"
)

// ringCUE is a zero-delay inverter feeding itself. It never settles.
const ringCUE = `
package ring

model: "ring"
signal: clk: initial: false
process: inv: {
	output: "clk"
	inputs: ["clk"]
	expr: {head: "not", args: ["?clk"]}
	aspect: "simplify"
}
simulation: max_delta_cycles: 20
`

func modelDir(name string) string {
	return filepath.Join("..", "..", "testdata", "models", name)
}

func scenariosDir() string {
	return filepath.Join("..", "harness", "testdata", "scenarios")
}

// writeModel writes src as the only file of a new model directory.
func writeModel(t *testing.T, src string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "model")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.cue"), []byte(src), 0644))
	return dir
}

// copyModel copies a test model, applying replacements to every file.
func copyModel(t *testing.T, name string, oldnew ...string) string {
	t.Helper()
	src := modelDir(name)
	dst := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dst, 0755))

	entries, err := os.ReadDir(src)
	require.NoError(t, err)
	r := strings.NewReplacer(oldnew...)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dst, e.Name()), []byte(r.Replace(string(data))), 0644))
	}
	return dst
}

// execute runs cmd with args and returns its stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// simulateInto simulates dir into dbPath, naming runs with ids.
func simulateInto(dbPath string, ids engine.RunIDGenerator, dir string, args ...string) (string, error) {
	opts := &SimulateOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      ids,
	}
	args = append([]string{"--db", dbPath}, args...)
	return execute(newSimulateCommand(opts), append(args, dir)...)
}

// recordRun records one successful run of dir and returns its id.
func recordRun(t *testing.T, dbPath, dir string, args ...string) string {
	t.Helper()
	ids := testutil.NewSequentialRunIDs(t.Name())
	_, err := simulateInto(dbPath, ids, dir, args...)
	require.NoError(t, err)
	return t.Name() + "-1"
}
