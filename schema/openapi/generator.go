// Package openapi describes a resource schema as an OpenAPI 3 document.
// Every accessor owned by a store becomes a path: collections expose list and
// create operations, resources expose read, replace and delete.
package openapi

import (
	"encoding/json"

	restcache "github.com/goliatone/go-restcache"
)

// Generator builds OpenAPI documents. It is safe for concurrent use.
type Generator struct {
	config generatorConfig
}

// NewGenerator constructs a generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Generator{config: cfg}
}

// Generate inspects every accessor reachable from root and returns the
// document as a JSON-ready map.
func (g *Generator) Generate(root *restcache.Accessor) (map[string]any, error) {
	descriptors, err := root.Inspect()
	if err != nil {
		return nil, err
	}
	return newDocumentBuilder(g.config).build(descriptors)
}

// GenerateJSON is Generate followed by indented JSON encoding.
func (g *Generator) GenerateJSON(root *restcache.Accessor) ([]byte, error) {
	document, err := g.Generate(root)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(document, "", "  ")
}
