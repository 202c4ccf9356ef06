package keyframes

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// manifest records how a keyframe directory was produced.
type manifest struct {
	IntervalSeconds float64   `json:"interval_seconds"`
	Frames          []string  `json:"frames"`
	CreatedAt       time.Time `json:"created_at"`
}

func readManifest(path string, m *manifest) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("decode %s: %w", manifestName, err)
	}
	return nil
}
