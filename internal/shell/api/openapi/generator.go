// Package openapi provides reflective OpenAPI 3.0 specification generation.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Generator
// =============================================================================

// Generator produces OpenAPI 3.0 specifications by reflecting on the request
// and response models of registered endpoints.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string
	endpoints   []Endpoint
	mu          sync.RWMutex
	cachedSpec  *openapi3.T
}

// Endpoint describes one method and path for OpenAPI generation.
type Endpoint struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Tag         string
	Query       []QueryParam

	// Request is the JSON body model, nil when the operation takes none.
	Request any

	// Response is the 200 body model. A nil Response documents an opaque body.
	Response any

	// Errors lists statuses answered with the {"error": "..."} body.
	Errors []int
}

// QueryParam describes a query string parameter.
type QueryParam struct {
	Name        string
	Type        string // "string" or "integer"
	Description string
	Required    bool
	Default     any
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		g.version = version
	}
}

// WithDescription sets the API description.
func WithDescription(description string) Option {
	return func(g *Generator) {
		g.description = description
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(g *Generator) {
		g.servers = append(g.servers, url)
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "Village Lookup API",
		version:     "1.0.0",
		description: "Tracker validation proxy and reference lookups",
		endpoints:   make([]Endpoint, 0),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Register adds an endpoint to the generator for spec generation.
func (g *Generator) Register(ep Endpoint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.endpoints = append(g.endpoints, ep)
	g.cachedSpec = nil // Invalidate cache
}

// Generate produces the complete OpenAPI 3.0 specification.
func (g *Generator) Generate() *openapi3.T {
	g.mu.RLock()
	if g.cachedSpec != nil {
		spec := g.cachedSpec
		g.mu.RUnlock()
		return spec
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	// Double-check after acquiring write lock
	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Servers: make(openapi3.Servers, 0, len(g.servers)),
		Paths:   &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}

	for _, url := range g.servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	g.addCommonSchemas(spec)

	for _, ep := range g.endpoints {
		g.addEndpointToSpec(spec, ep)
	}

	g.cachedSpec = spec
	return spec
}

// Handler returns an HTTP handler that serves the OpenAPI specification.
func (g *Generator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := g.Generate()

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// =============================================================================
// Schema Generation
// =============================================================================

// addCommonSchemas adds the shared error body.
func (g *Generator) addCommonSchemas(spec *openapi3.T) {
	spec.Components.Schemas["Error"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
			},
			Required: []string{"error"},
		},
	}
}

// addEndpointToSpec adds one operation and the schemas it references.
func (g *Generator) addEndpointToSpec(spec *openapi3.T, ep Endpoint) {
	op := &openapi3.Operation{
		OperationID: ep.OperationID,
		Summary:     ep.Summary,
		Responses:   &openapi3.Responses{},
	}
	if ep.Tag != "" {
		op.Tags = []string{ep.Tag}
	}

	for _, q := range ep.Query {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:        q.Name,
				In:          "query",
				Description: q.Description,
				Required:    q.Required,
				Schema: &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{q.Type}, Default: q.Default},
				},
			},
		})
	}

	if ep.Request != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content:  openapi3.NewContentWithJSONSchemaRef(g.modelRef(spec, ep.Request)),
			},
		}
	}

	ok := openapi3.NewResponse().WithDescription(http.StatusText(http.StatusOK))
	if ep.Response != nil {
		ok.Content = openapi3.NewContentWithJSONSchemaRef(g.modelRef(spec, ep.Response))
	}
	op.Responses.Set("200", &openapi3.ResponseRef{Value: ok})

	for _, status := range ep.Errors {
		resp := openapi3.NewResponse().
			WithDescription(http.StatusText(status)).
			WithJSONSchemaRef(&openapi3.SchemaRef{Ref: "#/components/schemas/Error"})
		op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
	}

	item := spec.Paths.Value(ep.Path)
	if item == nil {
		item = &openapi3.PathItem{}
		spec.Paths.Set(ep.Path, item)
	}
	item.SetOperation(ep.Method, op)
}

// modelRef registers a named struct as a component and returns a reference
// to it. Slices become arrays of their element.
func (g *Generator) modelRef(spec *openapi3.T, model any) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() == reflect.Slice {
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: g.modelRef(spec, reflect.Zero(t.Elem()).Interface()),
			},
		}
	}

	if t.Kind() != reflect.Struct || t.Name() == "" {
		return g.goTypeToSchema(t)
	}

	name := t.Name()
	if _, ok := spec.Components.Schemas[name]; !ok {
		spec.Components.Schemas[name] = g.extractSchema(model)
	}
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
}

// extractSchema extracts an OpenAPI schema from a Go struct.
func (g *Generator) extractSchema(model interface{}) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// Skip unexported fields
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		// Embedded structs without a tag are flattened, as encoding/json does.
		if field.Anonymous && jsonTag == "" && field.Type.Kind() == reflect.Struct {
			embedded := g.extractSchema(reflect.New(field.Type).Interface())
			for name, prop := range embedded.Value.Properties {
				schema.Properties[name] = prop
			}
			continue
		}

		name := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
		}

		propSchema := g.goTypeToSchema(field.Type)
		if propSchema != nil {
			schema.Properties[name] = propSchema
		}
	}

	return &openapi3.SchemaRef{Value: schema}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func (g *Generator) goTypeToSchema(t reflect.Type) *openapi3.SchemaRef {
	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}}

	case reflect.Int64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}

	case reflect.Float32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "float"}}

	case reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "double"}}

	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}

	case reflect.Slice, reflect.Array:
		elemSchema := g.goTypeToSchema(t.Elem())
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: elemSchema,
			},
		}

	case reflect.Map:
		valueSchema := g.goTypeToSchema(t.Elem())
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: valueSchema},
			},
		}

	case reflect.Ptr:
		schema := g.goTypeToSchema(t.Elem())
		if schema != nil && schema.Value != nil {
			schema.Value.Nullable = true
		}
		return schema

	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"},
			}
		}
		return g.extractSchema(reflect.New(t).Interface())

	default:
		// Unknown type, return generic object
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}
}
