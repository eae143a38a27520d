package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Persister saves and loads full session snapshots. An absent snapshot
// loads as an empty map, not an error.
type Persister interface {
	Save(snapshot map[string][]Turn) error
	Load() (map[string][]Turn, error)
}

// FilePersister stores the snapshot as a single JSON file, written
// atomically via a temp file and rename.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister writing to the given path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Save writes the snapshot to disk.
func (p *FilePersister) Save(snapshot map[string][]Turn) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}

	tempPath := p.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session snapshot: %w", err)
	}

	if err := os.Rename(tempPath, p.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session snapshot: %w", err)
	}

	return nil
}

// Load reads the snapshot from disk.
func (p *FilePersister) Load() (map[string][]Turn, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]Turn{}, nil
		}
		return nil, fmt.Errorf("failed to read session snapshot: %w", err)
	}

	var snapshot map[string][]Turn
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse session snapshot: %w", err)
	}
	if snapshot == nil {
		snapshot = map[string][]Turn{}
	}

	return snapshot, nil
}
