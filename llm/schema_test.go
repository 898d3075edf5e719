package llm

import (
	"reflect"
	"testing"
)

func TestSanitizeSchema_StripsMetaKeywords(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"$ref": "#/definitions/thing",
		"additionalProperties": false,
		"allOf": []interface{}{
			map[string]interface{}{"type": "string"},
		},
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string"},
		},
	}

	got := SanitizeSchema(schema)

	if _, ok := got["$ref"]; ok {
		t.Error("$ref at schema level should be removed")
	}
	if _, ok := got["additionalProperties"]; ok {
		t.Error("additionalProperties should be removed")
	}
	if _, ok := got["allOf"]; ok {
		t.Error("allOf should be removed")
	}
	if got["type"] != "object" {
		t.Errorf("type should be preserved, got %v", got["type"])
	}
}

func TestSanitizeSchema_PreservesPropertyNames(t *testing.T) {
	// A property literally named "$ref" is a user-chosen field name, not a
	// schema keyword, and must survive.
	schema := map[string]interface{}{
		"type": "object",
		"$ref": "#/should/be/removed",
		"properties": map[string]interface{}{
			"$ref":  map[string]interface{}{"type": "string"},
			"allOf": map[string]interface{}{"type": "number"},
		},
	}

	got := SanitizeSchema(schema)

	props, ok := got["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("properties should survive sanitization")
	}
	if _, ok := props["$ref"]; !ok {
		t.Error("property named $ref should be preserved")
	}
	if _, ok := props["allOf"]; !ok {
		t.Error("property named allOf should be preserved")
	}
	if _, ok := got["$ref"]; ok {
		t.Error("sibling $ref at schema level should be removed")
	}
}

func TestSanitizeSchema_NestedSchemasInsideProperties(t *testing.T) {
	// The schema under a property name is a schema again: keywords there
	// are stripped.
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"address": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]interface{}{
					"street": map[string]interface{}{"type": "string"},
				},
			},
		},
	}

	got := SanitizeSchema(schema)
	address := got["properties"].(map[string]interface{})["address"].(map[string]interface{})
	if _, ok := address["additionalProperties"]; ok {
		t.Error("additionalProperties inside a property schema should be removed")
	}
	street := address["properties"].(map[string]interface{})["street"].(map[string]interface{})
	if street["type"] != "string" {
		t.Errorf("nested property schema should be preserved, got %v", street)
	}
}

func TestSanitizeSchema_RecursesArrays(t *testing.T) {
	schema := map[string]interface{}{
		"type": "array",
		"items": []interface{}{
			map[string]interface{}{"type": "string", "$ref": "#/x"},
		},
	}

	got := SanitizeSchema(schema)
	item := got["items"].([]interface{})[0].(map[string]interface{})
	if _, ok := item["$ref"]; ok {
		t.Error("$ref inside array element should be removed")
	}
}

func TestSanitizeSchema_Idempotent(t *testing.T) {
	schema := map[string]interface{}{
		"type":  "object",
		"oneOf": []interface{}{map[string]interface{}{"type": "string"}},
		"properties": map[string]interface{}{
			"$ref": map[string]interface{}{"type": "string"},
		},
	}

	once := SanitizeSchema(schema)
	twice := SanitizeSchema(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("sanitize should be idempotent:\nonce:  %#v\ntwice: %#v", once, twice)
	}
}

func TestSanitizeSchema_DoesNotMutateInput(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"$ref": "#/thing",
	}

	_ = SanitizeSchema(schema)
	if _, ok := schema["$ref"]; !ok {
		t.Error("input tree must not be mutated")
	}
}

func TestSanitizeSchema_Nil(t *testing.T) {
	if got := SanitizeSchema(nil); got != nil {
		t.Errorf("expected nil for nil input, got %v", got)
	}
}
