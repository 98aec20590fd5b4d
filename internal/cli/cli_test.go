package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunCommand_SeriesGolden(t *testing.T) {
	out, err := execute(t, "run", "testdata/series.yaml")
	require.NoError(t, err)
	g := goldie.New(t)
	g.Assert(t, "run_series", []byte(out))
}

func TestRunCommand_NodeFilter(t *testing.T) {
	out, err := execute(t, "run", "testdata/series.yaml", "--node", "d")
	require.NoError(t, err)
	assert.Contains(t, out, "[6, 12, 20]")
	assert.NotContains(t, out, "[2, 3, 4]")
}

func TestRunCommand_UnknownNodeFilter(t *testing.T) {
	_, err := execute(t, "run", "testdata/series.yaml", "--node", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestDisasmCommand_Golden(t *testing.T) {
	out, err := execute(t, "disasm", "testdata/financing.yaml")
	require.NoError(t, err)
	g := goldie.New(t)
	g.Assert(t, "disasm_financing", []byte(out))
}

func TestSolveCommand_ConvergesAndRecords(t *testing.T) {
	db := filepath.Join(t.TempDir(), "audit.db")
	out, err := execute(t, "--audit-db", db, "solve", "testdata/financing.yaml", "--label", "fees")
	require.NoError(t, err)
	assert.Contains(t, out, "session ")
	assert.Contains(t, out, "iter")
	assert.Contains(t, out, "financing_fee")
	assert.Contains(t, out, "20.4081632")

	// The recorded session shows up in the listing and can be replayed.
	list, err := execute(t, "--audit-db", db, "trace")
	require.NoError(t, err)
	assert.Contains(t, list, "fees")
	assert.Contains(t, list, "yes")

	id := sessionIDFrom(t, out)
	show, err := execute(t, "--audit-db", db, "trace", id)
	require.NoError(t, err)
	assert.Contains(t, show, "fees")
	assert.Contains(t, show, "total_funds")
}

func sessionIDFrom(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "session "); ok {
			return rest
		}
	}
	t.Fatalf("no session id in output:\n%s", out)
	return ""
}

func TestSolveCommand_Unconverged(t *testing.T) {
	path := writeManifest(t, `
nodes:
  - name: one
    const: [1]
  - name: two
    const: [2]
  - name: x
    solver_var: true
constraints:
  - name: impossible
    equal: [one, two]
`)
	out, err := execute(t, "solve", path, "--max-iter", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_iterations")
	// The trace is still printed for diagnosis.
	assert.Contains(t, out, "iter")
}

func TestValidateCommand_Valid(t *testing.T) {
	out, err := execute(t, "validate", "testdata/financing.yaml")
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)
}

func TestValidateCommand_UnitMismatch(t *testing.T) {
	path := writeManifest(t, `
nodes:
  - name: cash
    const: [5]
    unit: USD
  - name: energy
    const: [3]
    unit: MWh
  - name: oops
    op: add
    args: [cash, energy]
`)
	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "V101")
	assert.Contains(t, err.Error(), "1 validation error")
}

func TestValidateCommand_RequireDeclarations(t *testing.T) {
	path := writeManifest(t, `
nodes:
  - name: bare
    const: [1]
`)
	_, err := execute(t, "validate", path)
	require.NoError(t, err)

	out, err := execute(t, "validate", path, "--require-declarations")
	require.Error(t, err)
	assert.Contains(t, out, "V104")
}

func TestTraceCommand_RequiresAuditDB(t *testing.T) {
	_, err := execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--audit-db")
}
