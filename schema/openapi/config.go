package openapi

import "strings"

type generatorConfig struct {
	openAPIVersion string
	info           openapiInfo
	contentType    string
	samples        map[string]any
	hostname       string
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		openAPIVersion: "3.0.3",
		info: openapiInfo{
			Title:   "Resource API",
			Version: "1.0.0",
		},
		contentType: "application/json",
		samples:     map[string]any{},
	}
}

// GeneratorOption configures the OpenAPI generator.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version == "" {
			return
		}
		cfg.openAPIVersion = version
	}
}

// InfoOption configures optional fields on the info section.
type InfoOption func(*openapiInfo)

// WithInfoDescription sets the info description.
func WithInfoDescription(description string) InfoOption {
	return func(info *openapiInfo) {
		info.Description = description
	}
}

// WithInfo configures the info block. Empty strings keep the defaults.
func WithInfo(title, version string, opts ...InfoOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.info)
			}
		}
	}
}

// WithContentType sets the media type of request and response bodies.
func WithContentType(contentType string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if contentType == "" {
			return
		}
		cfg.contentType = contentType
	}
}

// WithSample registers a sample record for resource type typ. The sample is
// a struct value (json and constraint tags are honoured) or a cached record
// and becomes the component schema of the type.
func WithSample(typ string, sample any) GeneratorOption {
	return func(cfg *generatorConfig) {
		typ = strings.TrimSpace(typ)
		if typ == "" {
			return
		}
		if cfg.samples == nil {
			cfg.samples = map[string]any{}
		}
		cfg.samples[typ] = sample
	}
}

// WithServerURL publishes url in the servers section. Paths stay relative.
func WithServerURL(url string) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.hostname = strings.TrimRight(url, "/")
	}
}
