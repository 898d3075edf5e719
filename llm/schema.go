package llm

// schemaMetaKeywords are JSON-Schema keywords that backend function-calling
// dialects reject. They are stripped at any schema level, but never inside a
// properties map, where identical strings are user-chosen field names.
var schemaMetaKeywords = map[string]bool{
	"$ref":                  true,
	"$defs":                 true,
	"$schema":               true,
	"$id":                   true,
	"$anchor":               true,
	"$dynamicRef":           true,
	"$dynamicAnchor":        true,
	"definitions":           true,
	"additionalProperties":  true,
	"patternProperties":     true,
	"unevaluatedProperties": true,
	"unevaluatedItems":      true,
	"propertyNames":         true,
	"dependentSchemas":      true,
	"dependentRequired":     true,
	"allOf":                 true,
	"anyOf":                 true,
	"oneOf":                 true,
	"not":                   true,
	"if":                    true,
	"then":                  true,
	"else":                  true,
	"contains":              true,
	"minContains":           true,
	"maxContains":           true,
}

// SanitizeSchema returns a deep copy of a JSON-Schema-like tree with the
// keywords a backend's tool dialect does not understand removed. The input
// tree is never mutated, and the operation is idempotent.
func SanitizeSchema(schema map[string]interface{}) map[string]interface{} {
	if schema == nil {
		return nil
	}
	return sanitizeNode(schema, false).(map[string]interface{})
}

// sanitizeNode copies node recursively. insideProperties is true only for the
// direct children of a "properties" map: those keys are field names chosen by
// the user and must survive even when they collide with deny-list strings.
func sanitizeNode(node interface{}, insideProperties bool) interface{} {
	switch v := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, child := range v {
			if !insideProperties && schemaMetaKeywords[key] {
				continue
			}
			out[key] = sanitizeNode(child, !insideProperties && key == "properties")
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, child := range v {
			out[i] = sanitizeNode(child, false)
		}
		return out
	default:
		return v
	}
}
