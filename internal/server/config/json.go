package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/datavault/internal/flagx"
	"github.com/dmitrijs2005/datavault/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. Interval fields use timex.Duration so JSON can
// specify them either as strings ("24h") or as integer nanoseconds.
// After unmarshalling, non-zero fields are copied onto the runtime
// Config.
type JsonConfig struct {
	EndpointAddr   string         `json:"endpoint_addr"`
	DatabaseDSN    string         `json:"database_dsn"`
	BoltPath       string         `json:"bolt_path"`
	SnapshotPath   string         `json:"snapshot_path"`
	RemoteEndpoint string         `json:"remote_endpoint"`
	SessionTTL     timex.Duration `json:"session_ttl"`
	LatencyMin     timex.Duration `json:"latency_min"`
	LatencyMax     timex.Duration `json:"latency_max"`
}

// parseJson loads configuration values from a JSON file into the
// provided Config instance. The file path comes from the -c or -config
// command-line flags; when neither is set, no JSON file is loaded.
// If the file cannot be read or contains invalid JSON, the function
// panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.BoltPath != "" {
		config.BoltPath = c.BoltPath
	}
	if c.SnapshotPath != "" {
		config.SnapshotPath = c.SnapshotPath
	}
	if c.RemoteEndpoint != "" {
		config.RemoteEndpoint = c.RemoteEndpoint
	}
	if c.SessionTTL.Duration != 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.LatencyMin.Duration != 0 {
		config.LatencyMin = c.LatencyMin.Duration
	}
	if c.LatencyMax.Duration != 0 {
		config.LatencyMax = c.LatencyMax.Duration
	}
}
