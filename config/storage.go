package config

// StorageConfig defines the state snapshot location and cadence.
type StorageConfig struct {
	// SnapshotPath is the JSON file holding the persisted state.
	SnapshotPath string `json:"snapshot_path"`
	// SnapshotIntervalSeconds is the background flush cadence.
	SnapshotIntervalSeconds int `json:"snapshot_interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *StorageConfig) SetDefaults() {
	if c.SnapshotPath == "" {
		c.SnapshotPath = "dispatchd_state.json"
	}
	if c.SnapshotIntervalSeconds <= 0 {
		c.SnapshotIntervalSeconds = 30
	}
}
