package core

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var durationConfigKeys = [][]string{
	{"transport", "timeout"},
	{"poll", "initial_wait"},
	{"poll", "max_wait"},
	{"poll", "timeout"},
}

// YAMLFileLoader reads a raw config map from a YAML file. Missing files are
// an error unless Optional is set. Duration strings such as "5s" are decoded
// to time.Duration before the map reaches cfgx.
type YAMLFileLoader struct {
	Path     string
	Optional bool
}

func NewYAMLFileLoader(path string) YAMLFileLoader {
	return YAMLFileLoader{Path: path}
}

func (l YAMLFileLoader) LoadRaw(ctx context.Context) (map[string]any, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return nil, fmt.Errorf("core: config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if l.Optional && os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("core: read config %q: %w", path, err)
	}
	return ParseYAMLConfig(data)
}

// ParseYAMLConfig decodes YAML config bytes into a raw config map.
func ParseYAMLConfig(data []byte) (map[string]any, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("core: decode yaml config: %w", err)
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	for _, path := range durationConfigKeys {
		if err := normalizeDurationKey(raw, path); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func normalizeDurationKey(raw map[string]any, path []string) error {
	current := raw
	for _, segment := range path[:len(path)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	key := path[len(path)-1]
	switch typed := current[key].(type) {
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(typed))
		if err != nil {
			return fmt.Errorf("core: %s is invalid: %w", strings.Join(path, "."), err)
		}
		current[key] = parsed
	case int:
		current[key] = time.Duration(typed)
	}
	return nil
}
