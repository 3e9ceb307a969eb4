package presenter

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var schemasFS embed.FS

// registry is the singleton schema registry.
var registry = &Registry{}

// Registry holds the entity schemas parsed from the embedded YAML
// files, indexed two ways: by entity name ("document") for explicit
// hints and by API type key ("Document") for auto-detection.
type Registry struct {
	once    sync.Once
	byName  map[string]*EntitySchema
	byType  map[string]*EntitySchema
	loadErr error
}

// load parses the embedded schemas on first use. A schema that fails
// to parse is skipped rather than failing the whole registry.
func (r *Registry) load() {
	r.once.Do(func() {
		r.byName = make(map[string]*EntitySchema)
		r.byType = make(map[string]*EntitySchema)

		entries, err := schemasFS.ReadDir("schemas")
		if err != nil {
			r.loadErr = fmt.Errorf("reading schemas dir: %w", err)
			return
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			r.register("schemas/" + entry.Name())
		}
	})
}

func (r *Registry) register(path string) {
	data, err := schemasFS.ReadFile(path)
	if err != nil {
		return
	}

	schema := new(EntitySchema)
	if err := yaml.Unmarshal(data, schema); err != nil {
		return
	}

	r.byName[schema.Entity] = schema
	if schema.TypeKey != "" {
		r.byType[schema.TypeKey] = schema
	}
}

// LookupByName returns a schema by entity name (e.g. "document").
func LookupByName(name string) *EntitySchema {
	registry.load()
	return registry.byName[name]
}

// LookupByTypeKey returns a schema by API type key (e.g. "Document").
func LookupByTypeKey(typeKey string) *EntitySchema {
	registry.load()
	return registry.byType[typeKey]
}

// Detect resolves the schema for data. An explicit entity hint wins;
// otherwise the data's own "type" field is consulted. Data with
// neither stays unmatched so generic rendering can take over.
func Detect(data any, entityHint string) *EntitySchema {
	if entityHint != "" {
		if s := LookupByName(entityHint); s != nil {
			return s
		}
	}

	if typeKey := typeFieldOf(data); typeKey != "" {
		return LookupByTypeKey(typeKey)
	}
	return nil
}

// typeFieldOf pulls the "type" field from an object or the first
// element of an object slice.
func typeFieldOf(data any) string {
	switch d := data.(type) {
	case map[string]any:
		if typeKey, ok := d["type"].(string); ok {
			return typeKey
		}
	case []map[string]any:
		if len(d) > 0 {
			if typeKey, ok := d[0]["type"].(string); ok {
				return typeKey
			}
		}
	}
	return ""
}
