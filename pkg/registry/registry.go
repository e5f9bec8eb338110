// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

func LoadRegistry(path string) (*SchemaRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg SchemaRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Compile returns the compiled schema for the given id.
func (r *SchemaRegistry) Compile(id string) (*gojsonschema.Schema, error) {
	for _, s := range r.Schemas {
		if s.ID != id {
			continue
		}
		return gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.Document))
	}
	return nil, fmt.Errorf("schema %q not found in registry", id)
}

// Default returns the built-in registry used when no registry file is
// configured. It carries the review feed payload schema.
func Default() *SchemaRegistry {
	return &SchemaRegistry{
		Version: "1.0",
		Schemas: []PayloadSchema{
			{
				ID:          "review-feed",
				DisplayName: "Review Feed Page",
				Description: "One page of the paginated review feed",
				Document: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"reviews"},
					"properties": map[string]interface{}{
						"reviews": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type":     "object",
								"required": []interface{}{"id", "comment", "rating", "localizedDate"},
								"properties": map[string]interface{}{
									"id":            map[string]interface{}{"type": "string"},
									"rating":        map[string]interface{}{"type": "number"},
									"localizedDate": map[string]interface{}{"type": "string"},
									"comment": map[string]interface{}{
										"type":     "object",
										"required": []interface{}{"text"},
										"properties": map[string]interface{}{
											"text": map[string]interface{}{"type": "string"},
										},
									},
									"business": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"id":    map[string]interface{}{"type": "string"},
											"name":  map[string]interface{}{"type": "string"},
											"alias": map[string]interface{}{"type": "string"},
										},
									},
								},
							},
						},
						"pagination": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"totalResults": map[string]interface{}{"type": "number"},
							},
						},
					},
				},
			},
		},
	}
}
