package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Record stores what the last install did. It is written once per
// run and read by the status and doctor commands.
type Record struct {
	Version     string    `json:"version"`
	InstalledAt time.Time `json:"installed_at"`
	Service     string    `json:"service"`
	User        string    `json:"user"`
	AppDir      string    `json:"app_dir"`
	UnitPath    string    `json:"unit_path"`
	ServiceLog  string    `json:"service_log"`
	FailedSteps []string  `json:"failed_steps,omitempty"`
}

// Healthy returns true if every step of the recorded install succeeded.
func (r *Record) Healthy() bool {
	return len(r.FailedSteps) == 0
}

// LoadRecord reads the install record from disk.
func LoadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	return &rec, nil
}

// SaveRecord writes the install record to disk.
func SaveRecord(path string, rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
