// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCfg(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "xga.yml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadFillsDefaults(t *testing.T) {
	cfg, err := Load(writeCfg(t, "output_dir: /data/xga\ncores: 4\n"))
	require.NoError(t, err)
	assert.Equal(t, "/data/xga", cfg.OutputDir)
	assert.Equal(t, 4, cfg.Cores)
	assert.Equal(t, 4, cfg.Workers())
	assert.Equal(t, "xspec", cfg.XSPECBinary)
	assert.Equal(t, "angr", cfg.AbundanceTable)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(writeCfg(t, "output_dir: \"\"\n"))
	assert.Error(t, err)

	_, err = Load(writeCfg(t, "cores: -2\n"))
	assert.Error(t, err)

	_, err = Load(writeCfg(t, "log_level: loud\n"))
	assert.Error(t, err)

	_, err = Load(writeCfg(t, "cores: [broken\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestDefaultWorkersBound(t *testing.T) {
	cfg := Default()
	assert.GreaterOrEqual(t, cfg.Workers(), 1)
}
