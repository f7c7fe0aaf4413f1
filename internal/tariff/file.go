package tariff

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tableFile is the on-disk YAML layout:
//
//	categories:
//	  General:
//	    - {up_to: 100, rate: 16.48}
//	    - {up_to: 0, rate: 35.53}
type tableFile struct {
	Categories map[string][]Band `yaml:"categories"`
}

// LoadTableFile reads and validates a YAML tariff table.
func LoadTableFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tariff: read %s: %w", path, err)
	}
	return ParseTableYAML(data)
}

// ParseTableYAML decodes and validates a YAML tariff table.
func ParseTableYAML(data []byte) (Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("tariff: decode yaml: %w", err)
	}
	t := make(Table, len(f.Categories))
	for name, bands := range f.Categories {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		t[c] = Schedule{Category: c, Bands: bands}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// MarshalYAML encodes the table in the LoadTableFile layout.
func (t Table) MarshalYAML() (interface{}, error) {
	f := tableFile{Categories: make(map[string][]Band, len(t))}
	for c, s := range t {
		f.Categories[string(c)] = s.Bands
	}
	return f, nil
}
