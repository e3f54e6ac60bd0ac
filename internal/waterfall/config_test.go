package waterfall

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadThresholdConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadThresholdConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultThresholds(), cfg)
}

func TestLoadThresholdConfigEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadThresholdConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultThresholds(), cfg)
}

func TestLoadThresholdConfigAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
waterfall:
  heuristic_accept: 0.55
  external_accept: 0.4
`), 0o644))

	cfg, err := LoadThresholdConfig(path)
	require.NoError(t, err)
	require.Equal(t, 0.55, cfg.HeuristicAccept)
	require.Equal(t, 0.4, cfg.ExternalAccept)
}

func TestLoadThresholdConfigFillsUnsetFieldFromDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
waterfall:
  heuristic_accept: 0.55
`), 0o644))

	cfg, err := LoadThresholdConfig(path)
	require.NoError(t, err)
	require.Equal(t, 0.55, cfg.HeuristicAccept)
	require.Equal(t, externalAcceptThreshold, cfg.ExternalAccept)
}

func TestLoadThresholdConfigRejectsOutOfRangeThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
waterfall:
  heuristic_accept: 1.5
`), 0o644))

	_, err := LoadThresholdConfig(path)
	require.Error(t, err)
}
