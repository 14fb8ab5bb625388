package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aqua777/codelens/schema"
)

// manifestStore persists collection manifests as one JSON file per
// collection, so the chosen mode survives restarts.
type manifestStore struct {
	dir string
}

func (m *manifestStore) path(name string) string {
	return filepath.Join(m.dir, name+".json")
}

func (m *manifestStore) load(name string) (schema.CollectionManifest, bool, error) {
	raw, err := os.ReadFile(m.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return schema.CollectionManifest{}, false, nil
		}
		return schema.CollectionManifest{}, false, fmt.Errorf("read manifest %s: %w", name, err)
	}
	var manifest schema.CollectionManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return schema.CollectionManifest{}, false, fmt.Errorf("parse manifest %s: %w", name, err)
	}
	return manifest, true, nil
}

func (m *manifestStore) save(manifest schema.CollectionManifest) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path(manifest.Name), raw, 0o644)
}

func (m *manifestStore) remove(name string) error {
	err := os.Remove(m.path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (m *manifestStore) list() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	return names, nil
}

func newManifest(name string, mode schema.IndexMode, dim int) schema.CollectionManifest {
	return schema.CollectionManifest{
		Name:      name,
		Mode:      mode,
		VectorDim: dim,
		CreatedAt: time.Now().UTC(),
	}
}
