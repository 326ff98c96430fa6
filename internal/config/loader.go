package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// decodes it strictly (unknown keys are errors, so typos surface at
// startup instead of silently keeping a default), and fills defaults.
// The result is not yet validated; call Validate before wiring it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, unresolved := expandEnv(string(raw))
	if len(unresolved) > 0 {
		return nil, fmt.Errorf("config: %s: unresolved variables: %s",
			path, strings.Join(unresolved, ", "))
	}

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)

	// An empty file is a valid all-defaults configuration; the decoder
	// reports that as EOF.
	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.Defaults()
	return &cfg, nil
}

// expandEnv substitutes ${VAR} and ${VAR:-default} occurrences. A set
// variable always wins over its default. Variables that are unset and
// carry no default are left in place and reported by name.
func expandEnv(raw string) (string, []string) {
	var unresolved []string

	expanded := envPattern.ReplaceAllStringFunc(raw, func(match string) string {
		subs := envPattern.FindStringSubmatch(match)
		name, fallback := subs[1], subs[2]

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		// A match with ":-" present yields a non-nil (possibly empty)
		// second group; the regexp API flattens that to "", which is
		// indistinguishable from an absent default, so re-check the
		// raw match.
		if fallback != "" || strings.Contains(match, ":-") {
			return fallback
		}

		unresolved = append(unresolved, name)
		return match
	})

	return expanded, unresolved
}
