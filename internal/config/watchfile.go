package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// watchFile is the on-disk shape of the watch list:
//
//	watches:
//	  - path: ~/incoming
//	    extensions: [.csv, .txt]
//	    recursion_limit: 2
type watchFile struct {
	Watches []WatchConfig `yaml:"watches"`
}

// LoadWatchFile reads and parses the YAML watch list. Watch paths are
// expanded to absolute form; everything else is validated later as part of
// Config.Validate.
func LoadWatchFile(path string) ([]WatchConfig, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- Watch file path from user input is expected
	if err != nil {
		return nil, fmt.Errorf("read watch file %s: %w", path, err)
	}

	var parsed watchFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse watch file %s: %w", path, err)
	}

	for i := range parsed.Watches {
		expanded, err := expandPath(parsed.Watches[i].Path)
		if err != nil {
			return nil, fmt.Errorf("resolve watch path %s: %w", parsed.Watches[i].Path, err)
		}
		parsed.Watches[i].Path = expanded
	}

	return parsed.Watches, nil
}
