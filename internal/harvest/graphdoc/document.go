// internal/harvest/graphdoc/document.go

// Package graphdoc reconstructs nested business attribute records from
// the flat, reference-keyed JSON documents embedded in landing pages.
// Values in the document may be references (objects carrying an "id"
// that keys another entry in the same document) or arrays of
// references; the resolver dereferences them with an explicit visited
// set so reference cycles terminate instead of recursing forever.
package graphdoc

// Document is the flat mapping from composite keys to value objects.
type Document map[string]interface{}

// Resolve dereferences the value at entryKey. References resolve to
// the entry they point at, arrays of references resolve element-wise,
// and anything else is returned as-is. A missing key or a reference
// cycle yields nil.
func (d Document) Resolve(entryKey string) interface{} {
	value, ok := d[entryKey]
	if !ok {
		return nil
	}
	return d.resolve(value, map[string]struct{}{entryKey: {}})
}

func (d Document) resolve(value interface{}, visited map[string]struct{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		id, ok := v["id"].(string)
		if !ok {
			return v
		}
		target, exists := d[id]
		if !exists {
			return v
		}
		if _, seen := visited[id]; seen {
			return nil
		}
		visited[id] = struct{}{}
		return d.resolve(target, visited)
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			out = append(out, d.resolve(item, visited))
		}
		return out
	default:
		return value
	}
}

// attributeIDs walks the section layer common to several landing-page
// structures: doc[sectionKey][listKey] is one section reference or an
// array of them, and each section's itemsKey field holds references to
// the attribute entries. The returned ids index the attribute entries
// in the document.
func (d Document) attributeIDs(sectionKey, listKey, itemsKey string) []string {
	section := asMap(d[sectionKey])
	if section == nil {
		return nil
	}

	sections, ok := section[listKey].([]interface{})
	if !ok {
		if single := asMap(section[listKey]); single != nil {
			sections = []interface{}{single}
		} else {
			return nil
		}
	}

	var ids []string
	for _, s := range sections {
		ref := asMap(s)
		if ref == nil {
			continue
		}
		sectionID, _ := ref["id"].(string)
		entry := asMap(d[sectionID])
		if entry == nil {
			continue
		}
		items, _ := entry[itemsKey].([]interface{})
		for _, item := range items {
			if itemRef := asMap(item); itemRef != nil {
				if id, ok := itemRef["id"].(string); ok {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}
