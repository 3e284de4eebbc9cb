package restcache

import "strings"

// NewCollection builds a collection node. The definition URI defaults to
// name. subject usually carries the owning store.
func NewCollection(name string, def Definition, subject ...any) (*Node, error) {
	def.Classify = ClassifyCollection
	if def.URI == "" && def.ParamID == "" {
		def.URI = strings.Trim(name, "/")
	}
	return NewNode(name, append(subject, def)...)
}

// NewResource builds a singular resource node, usually a collection member
// identified by def.ParamID.
func NewResource(name string, def Definition, subject ...any) (*Node, error) {
	def.Classify = ClassifyResource
	return NewNode(name, append(subject, def)...)
}

// NewNamespace builds a node contributing only a URI prefix.
func NewNamespace(name string, uri string) (*Node, error) {
	if uri == "" {
		uri = strings.Trim(name, "/")
	}
	return NewNode(name, Definition{URI: uri})
}
