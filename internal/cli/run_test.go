package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/patchbay/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_FramesWritePreviews(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{"patch.yaml": patchYAML})
	outDir := filepath.Join(dir, "out")

	var buf bytes.Buffer
	err := Run(context.Background(), testConfig(), RunOptions{
		Path:   dir,
		Frames: 3,
		OutDir: outDir,
		Nodes:  []string{"noise"},
		Out:    &buf,
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(outDir, "noise.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "out.png"))
	assert.True(t, os.IsNotExist(err), "only the selected node is written")
	assert.Contains(t, buf.String(), "Previews written")
}

func TestRun_ScriptErrorsReachConsole(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{"patch.yaml": `
nodes:
  - id: broken
    def: TEX_NOISE
    script: "error('boom')"
`})

	var buf bytes.Buffer
	err := Run(context.Background(), testConfig(), RunOptions{Path: dir, Frames: 2, Out: &buf})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "boom")
}

func TestRun_InvalidPatch(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{"patch.yaml": `
nodes:
  - id: a
    def: NOPE
`})
	err := Run(context.Background(), testConfig(), RunOptions{Path: dir, Frames: 1, Out: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestRun_UntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, testConfig(), RunOptions{Out: &bytes.Buffer{}})
	assert.NoError(t, err)
}
