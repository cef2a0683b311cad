package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ddd/internal/config"
	"git.home.luguber.info/inful/ddd/internal/console"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("ddd"),
		kong.Vars{"version": "test"},
		kong.Writers(&out, &out),
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
		kong.BindTo(t.Context(), (*context.Context)(nil)),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = kctx.Run(&Global{Printer: console.New(&out), Out: &out}, cli)
	return out.String(), err
}

func newProject(t *testing.T, cfg string) config.Layout {
	t.Helper()
	t.Setenv(config.EnvUserFilters, "")
	t.Setenv(config.EnvNATSURL, "")
	t.Setenv(config.EnvMetricsAddr, "")
	layout := config.NewLayout(t.TempDir())
	require.NoError(t, os.MkdirAll(layout.Dir(), 0o755))
	if cfg != "" {
		require.NoError(t, os.WriteFile(layout.ConfigPath(), []byte(cfg), 0o644))
	}
	return layout
}

func TestTriggerCommand(t *testing.T) {
	layout := newProject(t, "")
	out, err := execute(t, "-p", layout.Root, "trigger")
	require.NoError(t, err)
	assert.FileExists(t, layout.TriggerPath())
	assert.Contains(t, out, console.MarkSignal)
}

func TestRunThenStatusAndHistory(t *testing.T) {
	layout := newProject(t, `{"targets":{"dev":{"build":{"cmd":"echo compiled"}}}}`)

	out, err := execute(t, "-p", layout.Root, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "compiled")

	out, err = execute(t, "-p", layout.Root, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "IDLE")
	assert.Contains(t, out, "succeeded")

	out, err = execute(t, "-p", layout.Root, "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"busy": false`)

	out, err = execute(t, "-p", layout.Root, "history", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "STARTED")
	assert.Contains(t, out, "dev")
}

func TestRunCommandFailureExitStatus(t *testing.T) {
	layout := newProject(t, `{"targets":{"dev":{"build":{"cmd":"exit 3"}}}}`)

	_, err := execute(t, "-p", layout.Root, "run", "-q")
	var status ExitStatus
	require.ErrorAs(t, err, &status)
	assert.Equal(t, ExitStatus(3), status)
}

func TestFiltersCommandListsTiers(t *testing.T) {
	layout := newProject(t, "")
	require.NoError(t, os.MkdirAll(layout.FiltersDir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(layout.FiltersDir(), "tidy.yaml"),
		[]byte("name: tidy\ndescription: trims output\nsteps:\n  - trim\n"), 0o644))

	out, err := execute(t, "-p", layout.Root, "filters")
	require.NoError(t, err)
	assert.Contains(t, out, "gcc_json")
	assert.Contains(t, out, "tidy")
	assert.Contains(t, out, "project")
}

func TestHistoryCommandWithoutDatabase(t *testing.T) {
	layout := newProject(t, "")
	out, err := execute(t, "-p", layout.Root, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No run history")
}
