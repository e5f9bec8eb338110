// pkg/registry/schema.go
package registry

// SchemaRegistry is the catalog of JSON schemas for the payloads the
// harvester consumes from the source site.
type SchemaRegistry struct {
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Schemas     []PayloadSchema `json:"schemas"`
}

type PayloadSchema struct {
	ID          string                 `json:"id"`
	DisplayName string                 `json:"displayName"`
	Description string                 `json:"description"`
	Document    map[string]interface{} `json:"document"`
}
