package elasticsearch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// emailPattern matches one address; the email analyzer emits each match as a token.
const emailPattern = `([a-zA-Z0-9_\.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-\.]+)`

// indexSettings returns the analysis settings applied when the index is created.
func indexSettings() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"analysis": map[string]any{
				"analyzer": map[string]any{
					"email_analyzer": map[string]any{
						"type":      "custom",
						"tokenizer": "email_tokenizer",
						"filter":    []string{"lowercase"},
					},
					"snowball_analyzer": map[string]any{
						"type":     "snowball",
						"language": "English",
					},
				},
				"tokenizer": map[string]any{
					"email_tokenizer": map[string]any{
						"type":    "pattern",
						"pattern": emailPattern,
						"group":   "0",
					},
				},
			},
		},
	}
}

func addressField() map[string]any {
	return map[string]any{
		"type": "text",
		"fields": map[string]any{
			"email":   map[string]any{"type": "text", "analyzer": "email_analyzer"},
			"keyword": map[string]any{"type": "keyword", "ignore_above": 256},
		},
	}
}

// DefaultMapping returns the field mapping of a record index.
func DefaultMapping() map[string]any {
	highlighted := func(extra map[string]any) map[string]any {
		field := map[string]any{
			"type":          "text",
			"index_options": "offsets",
			"term_vector":   "with_positions_offsets",
		}
		for k, v := range extra {
			field[k] = v
		}
		return field
	}

	return map[string]any{
		"properties": map[string]any{
			"id":         map[string]any{"type": "keyword"},
			"sha1":       map[string]any{"type": "keyword"},
			"title":      map[string]any{"type": "keyword"},
			"source_url": map[string]any{"type": "keyword"},
			"_updatedAt": map[string]any{"type": "date"},
			"file": map[string]any{
				"properties": map[string]any{
					"title": map[string]any{"type": "keyword"},
					"file":  map[string]any{"type": "text"},
				},
			},
			"analyzed": map[string]any{
				"properties": map[string]any{
					"body": highlighted(map[string]any{
						"store": true,
						"fields": map[string]any{
							"snowball": highlighted(map[string]any{"analyzer": "snowball_analyzer"}),
						},
					}),
					"metadata": map[string]any{
						"properties": map[string]any{
							"from": addressField(),
							"to":   addressField(),
							"cc":   addressField(),
						},
					},
				},
			},
		},
	}
}

// LoadMapping reads a mapping from a YAML file. The document may either be
// the full mapping or just its "properties" object.
func LoadMapping(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}
	var mapping map[string]any
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("parse mapping file %s: %w", path, err)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("mapping file %s is empty", path)
	}
	if _, ok := mapping["properties"]; !ok {
		mapping = map[string]any{"properties": mapping}
	}
	return mapping, nil
}
