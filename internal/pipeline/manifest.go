package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const manifestFile = ".manifest.json"

// stageRecord is metadata about one completed stage.
type stageRecord struct {
	Name       string    `json:"name"`
	Output     string    `json:"output"`
	Started    time.Time `json:"started"`
	ElapsedSec float64   `json:"elapsed_sec"`
}

// manifest records completed stages in run order, saved in the output
// directory so a finished run is auditable.
type manifest struct {
	Stages []stageRecord `json:"stages"`
}

func (m *manifest) record(name, output string, started time.Time) {
	m.Stages = append(m.Stages, stageRecord{
		Name:       name,
		Output:     output,
		Started:    started,
		ElapsedSec: time.Since(started).Seconds(),
	})
}

// loadManifest reads the manifest from dir. A missing file is an empty
// manifest.
func loadManifest(dir string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if os.IsNotExist(err) {
		return &manifest{}, nil
	}
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// save writes the manifest to dir.
func (m *manifest) save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644)
}
