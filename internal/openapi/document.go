package openapi

import (
	"strings"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// Document is the subset of OpenAPI 3.0 the hub publishes.
type Document struct {
	OpenAPI    string                `yaml:"openapi" json:"openapi"`
	Info       Info                  `yaml:"info" json:"info"`
	Paths      map[string]PathItem   `yaml:"paths" json:"paths"`
	Components Components            `yaml:"components" json:"components"`
	Security   []map[string][]string `yaml:"security,omitempty" json:"security,omitempty"`
}

type Info struct {
	Title   string `yaml:"title" json:"title"`
	Version string `yaml:"version" json:"version"`
}

type PathItem map[string]Operation

type Operation struct {
	Summary     string                `yaml:"summary" json:"summary"`
	Tags        []string              `yaml:"tags,omitempty" json:"tags,omitempty"`
	Parameters  []Parameter           `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Responses   map[string]Response   `yaml:"responses" json:"responses"`
	Security    []map[string][]string `yaml:"security,omitempty" json:"security,omitempty"`
	Description string                `yaml:"description,omitempty" json:"description,omitempty"`
}

type Parameter struct {
	Name     string `yaml:"name" json:"name"`
	In       string `yaml:"in" json:"in"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Schema   Schema `yaml:"schema" json:"schema"`
}

type Response struct {
	Description string `yaml:"description" json:"description"`
}

type Schema struct {
	Type       string            `yaml:"type,omitempty" json:"type,omitempty"`
	Enum       []string          `yaml:"enum,omitempty" json:"enum,omitempty"`
	Minimum    *int64            `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Maximum    *int64            `yaml:"maximum,omitempty" json:"maximum,omitempty"`
	ReadOnly   bool              `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	WriteOnly  bool              `yaml:"writeOnly,omitempty" json:"writeOnly,omitempty"`
	Properties map[string]Schema `yaml:"properties,omitempty" json:"properties,omitempty"`
	Items      *Schema           `yaml:"items,omitempty" json:"items,omitempty"`
	Extension  string            `yaml:"x-fsapi-node,omitempty" json:"x-fsapi-node,omitempty"`
}

type Components struct {
	Schemas         map[string]Schema         `yaml:"schemas" json:"schemas"`
	SecuritySchemes map[string]SecurityScheme `yaml:"securitySchemes" json:"securitySchemes"`
}

type SecurityScheme struct {
	Type         string `yaml:"type" json:"type"`
	Scheme       string `yaml:"scheme" json:"scheme"`
	BearerFormat string `yaml:"bearerFormat" json:"bearerFormat"`
}

type route struct {
	method  string
	path    string
	summary string
	tag     string
	params  []string
	control bool
	public  bool
}

var routes = []route{
	{method: "get", path: "/v1/health", summary: "Service health", tag: "health", public: true},
	{method: "get", path: "/v1/health/live", summary: "Liveness check", tag: "health", public: true},
	{method: "get", path: "/v1/health/ready", summary: "Readiness check", tag: "health", public: true},
	{method: "get", path: "/v1/openapi", summary: "This document as YAML", tag: "meta", public: true},
	{method: "get", path: "/v1/openapi.json", summary: "This document as JSON", tag: "meta", public: true},
	{method: "get", path: "/v1/system/info", summary: "Hub status and attention items", tag: "system"},

	{method: "get", path: "/v1/radio", summary: "Power, volume, mode and now playing", tag: "radio"},
	{method: "get", path: "/v1/radio/capabilities", summary: "Operations the hub can read or write", tag: "radio"},
	{method: "get", path: "/v1/radio/attributes/{op}", summary: "Read one operation", tag: "radio", params: []string{"op"}},
	{method: "put", path: "/v1/radio/attributes/{op}", summary: "Write one operation", tag: "radio", params: []string{"op"}, control: true},
	{method: "get", path: "/v1/radio/modes", summary: "Valid player modes", tag: "radio"},
	{method: "get", path: "/v1/radio/equalisers", summary: "Equaliser presets", tag: "radio"},
	{method: "get", path: "/v1/radio/presets", summary: "Stored presets for the current mode", tag: "radio"},
	{method: "post", path: "/v1/radio/presets/{key}/select", summary: "Recall a preset", tag: "radio", params: []string{"key"}, control: true},
	{method: "post", path: "/v1/radio/control/{action}", summary: "Play, pause, next, previous or stop", tag: "radio", params: []string{"action"}, control: true},
	{method: "get", path: "/v1/radio/nav", summary: "Current navigation folder", tag: "nav"},
	{method: "delete", path: "/v1/radio/nav", summary: "Leave navigation and clear the path", tag: "nav", control: true},
	{method: "post", path: "/v1/radio/nav/parent", summary: "Go up one folder", tag: "nav", control: true},
	{method: "post", path: "/v1/radio/nav/folders/{key}", summary: "Enter a folder", tag: "nav", params: []string{"key"}, control: true},
	{method: "post", path: "/v1/radio/nav/items/{key}", summary: "Play an item", tag: "nav", params: []string{"key"}, control: true},
	{method: "post", path: "/v1/radio/nav/select", summary: "Walk a folder path and play an item", tag: "nav", control: true},
	{method: "get", path: "/v1/radio/notify", summary: "Long-poll a node for its next change", tag: "notify"},
	{method: "get", path: "/v1/radio/stream", summary: "Websocket feed of changes", tag: "notify"},
	{method: "get", path: "/v1/radio/changes", summary: "Query the change log", tag: "changes"},
	{method: "get", path: "/v1/radio/changes/{change_id}", summary: "One change log entry", tag: "changes", params: []string{"change_id"}},
	{method: "get", path: "/v1/radio/schedules", summary: "Configured schedules", tag: "schedules"},
	{method: "post", path: "/v1/radio/schedules/{name}/run", summary: "Run a schedule now", tag: "schedules", params: []string{"name"}, control: true},
}

// Build generates the document from the route table and capability table.
func Build(version string) Document {
	doc := Document{
		OpenAPI: "3.0.3",
		Info:    Info{Title: "FSAPI Hub", Version: version},
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: map[string]Schema{"Attributes": attributesSchema()},
			SecuritySchemes: map[string]SecurityScheme{
				"bearerAuth": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
			},
		},
		Security: []map[string][]string{{"bearerAuth": {}}},
	}

	for _, rt := range routes {
		op := Operation{
			Summary:   rt.summary,
			Tags:      []string{rt.tag},
			Responses: responsesFor(rt),
		}
		if rt.public {
			op.Security = []map[string][]string{}
		}
		if rt.control {
			op.Description = "Requires a token with control scope."
		}
		for _, name := range rt.params {
			op.Parameters = append(op.Parameters, Parameter{Name: name, In: "path", Required: true, Schema: Schema{Type: "string"}})
		}
		if rt.path == "/v1/radio/attributes/{op}" {
			op.Parameters[0].Schema.Enum = operationNames()
		}
		item, ok := doc.Paths[rt.path]
		if !ok {
			item = PathItem{}
			doc.Paths[rt.path] = item
		}
		item[rt.method] = op
	}
	return doc
}

func responsesFor(rt route) map[string]Response {
	resp := map[string]Response{"200": {Description: "OK"}}
	if rt.public {
		return resp
	}
	resp["401"] = Response{Description: "Missing or invalid token"}
	if rt.control {
		resp["403"] = Response{Description: "Token does not allow device control"}
	}
	if strings.HasPrefix(rt.path, "/v1/radio") && rt.tag != "changes" && rt.tag != "schedules" {
		resp["502"] = Response{Description: "Device unreachable or returned an error"}
		resp["504"] = Response{Description: "Device timed out"}
	}
	if len(rt.params) > 0 {
		resp["404"] = Response{Description: "Not found"}
	}
	return resp
}

func operationNames() []string {
	caps := fsapi.Capabilities()
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, string(c.Operation))
	}
	return names
}

func attributesSchema() Schema {
	props := make(map[string]Schema)
	for _, c := range fsapi.Capabilities() {
		s := Schema{Extension: c.Node}
		switch {
		case c.List:
			s.Type = "array"
			s.Items = &Schema{Type: "object"}
		case c.Kind == wire.KindBool:
			s.Type = "boolean"
		case c.Kind == wire.KindInt:
			s.Type = "integer"
		default:
			s.Type = "string"
		}
		if c.Range != nil {
			lo, hi := c.Range.Min, c.Range.Max
			s.Minimum, s.Maximum = &lo, &hi
		}
		s.ReadOnly = c.Access == fsapi.AccessRead
		s.WriteOnly = c.Access == fsapi.AccessWrite
		props[string(c.Operation)] = s
	}
	return Schema{Type: "object", Properties: props}
}
