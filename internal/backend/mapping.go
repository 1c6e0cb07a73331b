package backend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DisabledFlag in a mapping entry routes a placeholder away from a backend.
const DisabledFlag = "disabled"

// MappingTable routes placeholder names to backend-specific locators. It is
// persisted as a JSON document independent of any secret's value; the
// resolver only reads and writes through these accessors.
type MappingTable struct {
	path    string
	entries map[string]map[string]string // name -> backend -> path or flag
}

// LoadMappingTable reads the table at path. A missing file yields an empty
// table.
func LoadMappingTable(path string) (*MappingTable, error) {
	t := &MappingTable{path: path, entries: make(map[string]map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("reading mapping table: %w", err)
	}
	if err := json.Unmarshal(data, &t.entries); err != nil {
		return nil, fmt.Errorf("parsing mapping table %s: %w", path, err)
	}
	return t, nil
}

// Save writes the whole table back to its file.
func (t *MappingTable) Save() error {
	data, err := json.MarshalIndent(t.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding mapping table: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(t.path, append(data, '\n'), 0o600)
}

// GetBackendPath returns the locator for name on the given backend. ok is
// false when no mapping exists or the backend is disabled for the name.
func (t *MappingTable) GetBackendPath(name, backendName string) (string, bool) {
	p, ok := t.entries[name][backendName]
	if !ok || p == DisabledFlag {
		return "", false
	}
	return p, true
}

// IsDisabled reports whether name is explicitly disabled for the backend.
func (t *MappingTable) IsDisabled(name, backendName string) bool {
	return t.entries[name][backendName] == DisabledFlag
}

// SetBackendPath records the locator for name on the backend.
func (t *MappingTable) SetBackendPath(name, backendName, path string) {
	if t.entries[name] == nil {
		t.entries[name] = make(map[string]string)
	}
	t.entries[name][backendName] = path
}

// Remove drops every mapping for name.
func (t *MappingTable) Remove(name string) {
	delete(t.entries, name)
}

// ListMappings returns the mapped placeholder names, sorted.
func (t *MappingTable) ListMappings() []string {
	names := make([]string, 0, len(t.entries))
	for n := range t.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
