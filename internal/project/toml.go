package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrNoProject is returned by Load when the project file does not exist.
var ErrNoProject = errors.New("project file not found")

// Save writes the snapshot to path as TOML. The write goes through a
// temp file in the same directory and a rename, so a reader never sees
// a half-written project.
func Save(snap *Snapshot, path string) error {
	data, err := toml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".psengine-*.toml")
	if err != nil {
		return fmt.Errorf("create temp project file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write project file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close project file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace project file: %w", err)
	}
	return nil
}

func encodeSnapshot(snap *Snapshot) ([]byte, error) {
	return toml.Marshal(snap)
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := toml.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Load reads a TOML project file from path.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoProject, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	var snap Snapshot
	if err := toml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse project file %s: %w", path, err)
	}
	return &snap, nil
}
