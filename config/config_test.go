package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapdb/buffer"
	"heapdb/logger"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heapdb.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.ini")} {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultDataDir, cfg.DataDir)
		assert.Equal(t, buffer.DefaultPages, cfg.PoolPages)
		assert.True(t, cfg.SyncWrites)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Empty(t, cfg.Log.File)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[storage]
data_dir    = /var/lib/heapdb
pool_pages  = 128
sync_writes = false

[logs]
log_level = debug
log_file  = /tmp/heapdb.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/heapdb", cfg.DataDir)
	assert.Equal(t, 128, cfg.PoolPages)
	assert.False(t, cfg.SyncWrites)
	assert.Equal(t, logger.Config{Level: "debug", File: "/tmp/heapdb.log"}, cfg.Log)
}

func TestLoad_InvalidValues(t *testing.T) {
	var out bytes.Buffer
	logger.SetOutput(&out)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	path := writeConfig(t, `
[storage]
pool_pages = -3

[logs]
log_level = loud
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, buffer.DefaultPages, cfg.PoolPages)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Contains(t, out.String(), "invalid pool size")
	assert.Contains(t, out.String(), "unknown log level")
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, "[storage\npool_pages = 3\n")
	_, err := Load(path)
	assert.Error(t, err)
}
