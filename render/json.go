package render

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// JSONWriter writes the report as indented JSON.
type JSONWriter struct {
	out io.Writer
}

func (w *JSONWriter) Write(rep Report) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// YAMLWriter writes the report as YAML.
type YAMLWriter struct {
	out io.Writer
}

func (w *YAMLWriter) Write(rep Report) error {
	enc := yaml.NewEncoder(w.out)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return err
	}
	return enc.Close()
}
