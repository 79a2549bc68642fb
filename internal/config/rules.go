package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"stables/internal/game"

	"gopkg.in/yaml.v3"
)

// LoadRules returns the default rules overlaid with the YAML file at path.
// Unknown keys are rejected; keys left out keep their defaults.
func LoadRules(path string) (game.Rules, error) {
	rules := game.DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (game.Rules, error) {
	rules := game.DefaultRules()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&rules); err != nil && !errors.Is(err, io.EOF) {
		return rules, fmt.Errorf("parsing rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return rules, fmt.Errorf("invalid rules: %w", err)
	}
	return rules, nil
}
