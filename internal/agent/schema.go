package agent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const descriptorSchemaURL = "https://asana-planner.local/schemas/action.schema.json"

// descriptorSchemaJSON checks the wire shape of one action. Which fields a
// kind requires is left to FromDescriptor so its messages stay specific.
const descriptorSchemaJSON = `{
  "type": "object",
  "properties": {
    "type":           {"type": ["string", "null"]},
    "task_gid":       {"type": ["string", "null"]},
    "parent_gid":     {"type": ["string", "null"]},
    "text":           {"type": ["string", "null"]},
    "fields":         {"type": ["object", "null"]},
    "assignee":       {"type": ["string", "null"]},
    "assignee_email": {"type": ["string", "null"]},
    "workspace_gid":  {"type": ["string", "null"]},
    "project_gid":    {"type": ["string", "null"]},
    "section_gid":    {"type": ["string", "null"]},
    "section_name":   {"type": ["string", "null"]},
    "add_tags":       {"$ref": "#/$defs/names"},
    "remove_tags":    {"$ref": "#/$defs/names"},
    "completed":      {"type": ["boolean", "null"]},
    "reason":         {"type": ["string", "null"]}
  },
  "$defs": {
    "names": {
      "anyOf": [
        {"type": ["string", "null"]},
        {"type": "array", "items": {"type": "string"}}
      ]
    }
  }
}`

var descriptorSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(descriptorSchemaURL, strings.NewReader(descriptorSchemaJSON)); err != nil {
		return nil, fmt.Errorf("load action schema: %w", err)
	}
	return c.Compile(descriptorSchemaURL)
})

// checkShape validates a decoded descriptor and reports the first offending
// field.
func checkShape(doc any) error {
	schema, err := descriptorSchema()
	if err != nil {
		return err
	}
	err = schema.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		return fmt.Errorf("descriptor %s", ve.Message)
	}
	return fmt.Errorf("%s: %s", field, ve.Message)
}
