package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr":   "www.example:9000",
		"database_dsn":    "vault.db",
		"bolt_path":       "vault.kv",
		"snapshot_path":   "vault_local.json",
		"remote_endpoint": "http://upstream:8080",
		"session_ttl":     "12h",
		"latency_min":     "50ms",
		"latency_max":     "200ms",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddr)
		assert.Equal(t, "vault.db", cfg.DatabaseDSN)
		assert.Equal(t, "vault.kv", cfg.BoltPath)
		assert.Equal(t, "vault_local.json", cfg.SnapshotPath)
		assert.Equal(t, "http://upstream:8080", cfg.RemoteEndpoint)
		assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
		assert.Equal(t, 50*time.Millisecond, cfg.LatencyMin)
		assert.Equal(t, 200*time.Millisecond, cfg.LatencyMax)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddr: "defaults:1234",
			DatabaseDSN:  "vault.db",
			BoltPath:     "vault.kv",
			SnapshotPath: "vault_local.json",
			SessionTTL:   2 * time.Hour,
			LatencyMin:   time.Millisecond,
			LatencyMax:   2 * time.Millisecond,
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddr)
		assert.Equal(t, "vault.db", cfg.DatabaseDSN)
		assert.Equal(t, "vault.kv", cfg.BoltPath)
		assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	})

	t.Run("partial json keeps other fields", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{
			"bolt_path": "other.kv",
		})
		os.Args = []string{"testbin", "-config", partial}

		cfg := &Config{EndpointAddr: ":8080", SessionTTL: time.Hour}
		parseJson(cfg)

		assert.Equal(t, "other.kv", cfg.BoltPath)
		assert.Equal(t, ":8080", cfg.EndpointAddr)
		assert.Equal(t, time.Hour, cfg.SessionTTL)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
