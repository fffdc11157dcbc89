package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape of the catalog YAML: a flat list of
// model rows under a top-level `models` key.
type catalogFile struct {
	Models []ModelEntry `yaml:"models"`
}

// LoadCatalog reads the static model catalog from path. A
// missing file is not an error: LoadCatalog then returns an empty
// catalog, which leaves the router with no model to select.
func LoadCatalog(path string) ([]ModelEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return f.Models, nil
}
