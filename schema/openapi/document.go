package openapi

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	restcache "github.com/goliatone/go-restcache"
)

type documentBuilder struct {
	config   generatorConfig
	registry *componentRegistry
	paths    map[string]map[string]any
}

func newDocumentBuilder(config generatorConfig) *documentBuilder {
	return &documentBuilder{
		config:   config,
		registry: newComponentRegistry(),
		paths:    map[string]map[string]any{},
	}
}

func (b *documentBuilder) build(descriptors map[string]*restcache.Descriptor) (map[string]any, error) {
	for _, key := range slices.Sorted(maps.Keys(descriptors)) {
		if err := b.addDescriptor(key, descriptors[key]); err != nil {
			return nil, err
		}
	}

	paths := make(map[string]any, len(b.paths))
	for path, item := range b.paths {
		paths[path] = item
	}
	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   paths,
	}
	if b.config.hostname != "" {
		document["servers"] = []any{map[string]any{"url": b.config.hostname}}
	}
	if components := b.registry.componentsMap(); components != nil {
		document["components"] = map[string]any{"schemas": components}
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *documentBuilder) buildInfo() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

// addDescriptor publishes the operations of one schema accessor. Accessors
// without an owning store type describe URI prefixes only and are skipped.
// The first accessor to claim a path and method wins.
func (b *documentBuilder) addDescriptor(key string, d *restcache.Descriptor) error {
	if d == nil || d.Type == "" || d.BasePath == "" {
		return nil
	}
	path, params := templatePath(d.BasePath)

	schema, err := b.schemaFor(d.Type)
	if err != nil {
		return err
	}

	item, ok := b.paths[path]
	if !ok {
		item = map[string]any{}
		if len(params) > 0 {
			item["parameters"] = params
		}
		b.paths[path] = item
	}

	summary := key
	if summary == "" {
		summary = d.Type
	}
	for method, op := range b.operations(d, schema) {
		if _, exists := item[method]; exists {
			continue
		}
		op["operationId"] = fmt.Sprintf("%s:%s", method, path)
		op["summary"] = summary
		op["tags"] = []any{d.Type}
		item[method] = op
	}
	return nil
}

func (b *documentBuilder) operations(d *restcache.Descriptor, schema map[string]any) map[string]map[string]any {
	if d.Classify == restcache.ClassifyResource {
		return map[string]map[string]any{
			"get":    {"responses": b.responses("200", "OK", schema)},
			"put":    {"requestBody": b.body(schema), "responses": b.responses("200", "Updated", schema)},
			"delete": {"responses": map[string]any{"204": map[string]any{"description": "Deleted"}}},
		}
	}
	list := map[string]any{"type": "array", "items": schema}
	return map[string]map[string]any{
		"get":  {"responses": b.responses("200", "OK", list)},
		"post": {"requestBody": b.body(schema), "responses": b.responses("201", "Created", schema)},
	}
}

func (b *documentBuilder) body(schema map[string]any) map[string]any {
	return map[string]any{
		"required": true,
		"content":  b.content(schema),
	}
}

func (b *documentBuilder) responses(status, description string, schema map[string]any) map[string]any {
	return map[string]any{
		status: map[string]any{
			"description": description,
			"content":     b.content(schema),
		},
	}
}

func (b *documentBuilder) content(schema map[string]any) map[string]any {
	return map[string]any{
		b.config.contentType: map[string]any{"schema": schema},
	}
}

// schemaFor returns a reference to the component of typ, or a bare object
// schema when no sample was registered.
func (b *documentBuilder) schemaFor(typ string) (map[string]any, error) {
	sample, ok := b.config.samples[typ]
	if !ok {
		return map[string]any{"type": "object"}, nil
	}
	node, err := inferSchema(sample)
	if err != nil {
		return nil, fmt.Errorf("openapi: sample for %q: %w", typ, err)
	}
	return map[string]any{"$ref": b.registry.ref(typ, node)}, nil
}

// templatePath rewrites `:name` segments as `{name}` and lists them as path
// parameters.
func templatePath(basePath string) (string, []any) {
	segments := strings.Split(basePath, "/")
	var params []any
	for i, segment := range segments {
		if !strings.HasPrefix(segment, ":") || len(segment) < 2 {
			continue
		}
		name := segment[1:]
		segments[i] = "{" + name + "}"
		params = append(params, map[string]any{
			"name":     name,
			"in":       "path",
			"required": true,
			"schema":   map[string]any{"type": "string"},
		})
	}
	return strings.Join(segments, "/"), params
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	if version, _ := document["openapi"].(string); version == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		pathItem, _ := pathValue.(map[string]any)
		if pathItem == nil {
			return fmt.Errorf("openapi: path %q invalid payload", pathKey)
		}
		for method, operationValue := range pathItem {
			if method == "parameters" {
				continue
			}
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			if _, ok := operation["responses"].(map[string]any); !ok {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}
	return nil
}
