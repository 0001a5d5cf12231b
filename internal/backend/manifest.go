package backend

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// cargoManifest holds the part of Cargo.toml we care about.
type cargoManifest struct {
	Features map[string][]string `toml:"features"`
}

// ReadCargoFeatures returns the feature names declared in a Cargo.toml,
// sorted by name. A missing manifest declares no features.
func ReadCargoFeatures(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	features := make([]string, 0, len(m.Features))
	for name := range m.Features {
		features = append(features, name)
	}
	slices.Sort(features)
	return features, nil
}
