package monitor

import (
	"encoding"
	"reflect"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

type endpoint struct {
	path        string
	operationID string
	summary     string
	response    reflect.Type
}

var showEndpoints = []endpoint{
	{"/api/show/pairs", "showPairs", "Paired radio and virtual interfaces with counters", reflect.TypeOf(PairsResponse{})},
	{"/api/show/drops", "showDrops", "Bridge drop counters by direction and reason", reflect.TypeOf(DropsResponse{})},
	{"/api/show/events", "showEvents", "Recent link and pair lifecycle events", reflect.TypeOf(EventsResponse{})},
	{"/api/show/interfaces", "showInterfaces", "Links known in the managed namespace", reflect.TypeOf([]InterfaceInfo{})},
	{"/api/show/status", "showStatus", "Monitor status", reflect.TypeOf(Status{})},
}

func buildOpenAPISpec() *openapi3.T {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "eoax API",
			Description: "Read-only API of the Ethernet over AX.25 daemon",
			Version:     "1.0.0",
		},
		Paths: &openapi3.Paths{},
		Tags: openapi3.Tags{
			{Name: "Show", Description: "Operational state"},
			{Name: "General", Description: "General API endpoints"},
		},
	}

	errorContent := openapi3.NewContentWithJSONSchemaRef(schemaFromType(reflect.TypeOf(ErrorResponse{})))
	for _, ep := range showEndpoints {
		spec.Paths.Set(ep.path, &openapi3.PathItem{
			Get: &openapi3.Operation{
				Tags:        []string{"Show"},
				Summary:     ep.summary,
				OperationID: ep.operationID,
				Parameters:  parametersFor(ep.path),
				Responses: openapi3.NewResponses(
					openapi3.WithStatus(200, &openapi3.ResponseRef{
						Value: &openapi3.Response{
							Description: ptr("Successful response"),
							Content:     openapi3.NewContentWithJSONSchemaRef(schemaFromType(ep.response)),
						},
					}),
					openapi3.WithStatus(400, &openapi3.ResponseRef{
						Value: &openapi3.Response{
							Description: ptr("Bad request"),
							Content:     errorContent,
						},
					}),
				),
			},
		})
	}

	spec.Paths.Set("/metrics", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"General"},
			Summary:     "Prometheus metrics",
			OperationID: "metrics",
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, &openapi3.ResponseRef{
					Value: &openapi3.Response{
						Description: ptr("Metrics in the Prometheus text exposition format"),
						Content: openapi3.Content{
							"text/plain": &openapi3.MediaType{
								Schema: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							},
						},
					},
				}),
			),
		},
	})

	for _, probe := range []struct{ path, id, summary string }{
		{"/healthz", "healthz", "Liveness probe"},
		{"/readyz", "readyz", "Readiness probe, ready once EoAX frames are accepted"},
	} {
		content := openapi3.NewContentWithJSONSchemaRef(schemaFromType(reflect.TypeOf(HealthResponse{})))
		spec.Paths.Set(probe.path, &openapi3.PathItem{
			Get: &openapi3.Operation{
				Tags:        []string{"General"},
				Summary:     probe.summary,
				OperationID: probe.id,
				Responses: openapi3.NewResponses(
					openapi3.WithStatus(200, &openapi3.ResponseRef{
						Value: &openapi3.Response{Description: ptr("Healthy"), Content: content},
					}),
					openapi3.WithStatus(503, &openapi3.ResponseRef{
						Value: &openapi3.Response{Description: ptr("Not ready"), Content: content},
					}),
				),
			},
		})
	}

	spec.Paths.Set("/api/openapi.json", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"General"},
			Summary:     "This document",
			OperationID: "openapi",
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, &openapi3.ResponseRef{
					Value: &openapi3.Response{
						Description: ptr("OpenAPI 3 document"),
						Content:     openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema()),
					},
				}),
			),
		},
	})

	return spec
}

func parametersFor(path string) openapi3.Parameters {
	if path != "/api/show/events" {
		return nil
	}
	return openapi3.Parameters{
		{Value: openapi3.NewQueryParameter("topic").
			WithDescription("Only return events published on this topic").
			WithSchema(openapi3.NewStringSchema())},
		{Value: openapi3.NewQueryParameter("limit").
			WithDescription("Only return the newest events").
			WithSchema(openapi3.NewIntegerSchema().WithMin(1))},
	}
}

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

func schemaFromType(t reflect.Type) *openapi3.SchemaRef {
	if t == nil {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}

	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == reflect.TypeOf(time.Time{}) {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}}
	}

	if t == reflect.TypeOf(time.Duration(0)) {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Description: "Duration in nanoseconds"}}
	}

	// Enumerations such as link types encode as their names.
	if t.Kind() != reflect.Struct && t.Implements(textMarshalerType) {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
	}

	switch t.Kind() {
	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}

	case reflect.Float32, reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}}}

	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}

	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "byte"}}
		}
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: schemaFromType(t.Elem()),
			},
		}

	case reflect.Map:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: schemaFromType(t.Elem())},
			},
		}

	case reflect.Struct:
		return structToSchema(t)
	}

	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
}

func structToSchema(t reflect.Type) *openapi3.SchemaRef {
	properties := openapi3.Schemas{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		if jsonTag != "" {
			if parts := strings.Split(jsonTag, ","); parts[0] != "" {
				name = parts[0]
			}
		}

		properties[name] = schemaFromType(field.Type)
	}

	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: properties,
		},
	}
}

func ptr(s string) *string {
	return &s
}
