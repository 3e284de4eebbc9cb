package openapi

import (
	"fmt"
	"regexp"
	"strings"
)

// componentRegistry publishes one schema per resource type under
// #/components/schemas. Names are sanitized and made unique.
type componentRegistry struct {
	byType    map[string]string
	schemas   map[string]any
	usedNames map[string]struct{}
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		byType:    map[string]string{},
		schemas:   map[string]any{},
		usedNames: map[string]struct{}{},
	}
}

// ref returns the reference of the component for typ, registering node under
// a name derived from typ the first time.
func (r *componentRegistry) ref(typ string, node *schemaNode) string {
	name, ok := r.byType[typ]
	if !ok {
		name = r.uniqueName(componentName(typ))
		r.byType[typ] = name
		r.schemas[name] = node.toMap()
	}
	return "#/components/schemas/" + name
}

func (r *componentRegistry) uniqueName(name string) string {
	if name == "" {
		name = "Resource"
	}
	candidate := name
	for suffix := 1; ; suffix++ {
		if _, exists := r.usedNames[candidate]; !exists {
			r.usedNames[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s%d", name, suffix)
	}
}

func (r *componentRegistry) componentsMap() map[string]any {
	if len(r.schemas) == 0 {
		return nil
	}
	return r.schemas
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// componentName turns a resource type such as "project-tasks" into
// "ProjectTasks".
func componentName(typ string) string {
	parts := componentNameRegexp.Split(typ, -1)
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	name := b.String()
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}
