package common

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TradeFile is a user-supplied trade list replacing the built-in one.
// Format:
//
//	branchen:
//	  - Friseur
//	  - Restaurant
//	kategorien:
//	  beauty: [Friseur, Kosmetik]
type TradeFile struct {
	Branchen   []string            `yaml:"branchen"`
	Kategorien map[string][]string `yaml:"kategorien"`
}

// LoadTradeFile parses a YAML trade list
func LoadTradeFile(path string) (*TradeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trade file %s: %w", path, err)
	}

	var tf TradeFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse trade file %s: %w", path, err)
	}
	if len(tf.Branchen) == 0 {
		return nil, fmt.Errorf("trade file %s contains no branchen", path)
	}
	return &tf, nil
}
