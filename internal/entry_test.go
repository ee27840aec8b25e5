package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-synth/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_RequiresConfig(t *testing.T) {
	err := Run(context.Background())
	assert.EqualError(t, err, "config is required")
}

func TestRun_HelloWorld(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Render.Resolution.Width, cfg.Render.Resolution.Height = 32, 32
	cfg.Paths.Output = t.TempDir()

	var logs bytes.Buffer
	require.NoError(t, Run(context.Background(), WithConfig(cfg), WithOutput(&logs)))

	assert.Contains(t, logs.String(), `"msg":"Render completed"`)
	for _, name := range []string{"rgba_00001.png", "depth_00001.tiff", "segmentation_00001.png", "metadata.json"} {
		_, err := os.Stat(filepath.Join(cfg.Paths.Output, name))
		assert.NoError(t, err, name)
	}
}

func TestRun_UnknownChannel(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Render.Channels = []string{"albedo"}
	cfg.Paths.Output = t.TempDir()

	err := Run(context.Background(), WithConfig(cfg), WithOutput(&bytes.Buffer{}))
	assert.Error(t, err)
}
