package postprocessors

import (
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/postprocessors/untitled"
)

// DefaultProcessors lists the processors every run applies, in order.
var DefaultProcessors = []string{"untitled"}

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("untitled", buildUntitled)
}

// BuildDefaultPipeline builds a pipeline of DefaultProcessors from r.
// cfg maps processor names to their settings and may be nil.
func BuildDefaultPipeline(r *Registry, cfg map[string]map[string]any) (*Pipeline, error) {
	p := NewPipeline()
	for _, name := range DefaultProcessors {
		proc, err := r.Build(name, cfg[name])
		if err != nil {
			return nil, err
		}
		p.Add(proc)
	}
	return p, nil
}

// buildUntitled creates the untitled fallback processor from generic config.
// Supported config keys:
//   - prefix (string): Title prefix (default: "Untitled Document: ")
//   - id_length (int): Characters of the record id to show (default: 8)
func buildUntitled(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []untitled.Option

	if cfg != nil {
		if prefix, ok := cfg["prefix"].(string); ok && prefix != "" {
			opts = append(opts, untitled.WithPrefix(prefix))
		}
		if n := getIntFromConfig(cfg, "id_length"); n > 0 {
			opts = append(opts, untitled.WithIDLength(n))
		}
	}

	return untitled.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
