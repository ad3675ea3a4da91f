package mcp

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

func TestConvertJSONSchemaToGenai(t *testing.T) {
	schema := &jsonschema.Schema{
		Type:        "object",
		Description: "search arguments",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "the search query",
			},
			"k": {
				Type: "integer",
			},
			"tags": {
				Type:  "array",
				Items: &jsonschema.Schema{Type: "string"},
			},
			"mode": {
				Type: "string",
				Enum: []any{"basic", "detailed"},
			},
		},
		Required: []string{"query"},
	}

	converted, err := convertJSONSchemaToGenai(schema)
	gt.NoError(t, err)
	gt.Equal(t, converted.Type, genai.TypeObject)
	gt.Equal(t, converted.Description, "search arguments")
	gt.Equal(t, converted.Required, []string{"query"})

	gt.Equal(t, converted.Properties["query"].Type, genai.TypeString)
	gt.Equal(t, converted.Properties["k"].Type, genai.TypeNumber)
	gt.Equal(t, converted.Properties["tags"].Type, genai.TypeArray)
	gt.Equal(t, converted.Properties["tags"].Items.Type, genai.TypeString)
	gt.Equal(t, converted.Properties["mode"].Enum, []string{"basic", "detailed"})
}

func TestConvertJSONSchemaToGenaiNil(t *testing.T) {
	converted, err := convertJSONSchemaToGenai(nil)
	gt.NoError(t, err)
	gt.V(t, converted).Nil()
}

func TestConvertJSONSchemaToGenaiUnsupportedType(t *testing.T) {
	_, err := convertJSONSchemaToGenai(&jsonschema.Schema{Type: "null"})
	gt.Error(t, err)
}
