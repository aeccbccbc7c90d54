package actions

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ghodss/yaml"
)

// Output formats for definitions written by compile and dry runs.
const (
	OutputFormatYaml = "yaml"
	OutputFormatJson = "json"
)

// WriteDefinition renders v to w as YAML (the default) or indented JSON.
// YAML is produced from the JSON encoding so both formats use the json struct tags.
func WriteDefinition(w io.Writer, v interface{}, format string) error {
	var out []byte
	var err error
	switch format {
	case "", OutputFormatYaml:
		out, err = yaml.Marshal(v)
	case OutputFormatJson:
		out, err = json.MarshalIndent(v, "", "  ")
		out = append(out, '\n')
	default:
		return fmt.Errorf("unsupported output format %q: use %v or %v", format, OutputFormatYaml, OutputFormatJson)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
