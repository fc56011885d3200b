package source

import (
	"fmt"
	"os"

	"github.com/ashureev/vocabook/internal/sheet"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML fixture mapping sheet ids to raw rows, for example:
//
//	noun:
//	  - [term, translation]
//	  - [apple, りんご]
//
// The returned Source serves those rows for offline development.
func LoadFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var raw map[string][][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	s := make(Static, len(raw))
	for id, rows := range raw {
		s[sheet.ID(id)] = rows
	}
	return s, nil
}
