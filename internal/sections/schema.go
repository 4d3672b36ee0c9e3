package sections

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var shapeSchemas = mustLoadSchemas()

// CheckShape reports how value departs from the expected shape of section.
// A nil error means the value conforms, or the section has no schema.
func CheckShape(section string, value any) error {
	schema, ok := shapeSchemas[section]
	if !ok {
		return nil
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("shape mismatch: %s", strings.Join(msgs, "; "))
}

func mustLoadSchemas() map[string]*gojsonschema.Schema {
	out := make(map[string]*gojsonschema.Schema, 7)
	for _, name := range Names() {
		data, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			panic(fmt.Sprintf("missing embedded schema %s: %v", name, err))
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			panic(fmt.Sprintf("compile schema %s: %v", name, err))
		}
		out[name] = schema
	}
	return out
}
