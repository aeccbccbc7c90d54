package models

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/rdbms"
	"gopkg.in/yaml.v2"
)

// Layers in build order.
const (
	LayerStaging  = c.LayerStaging
	LayerMarts    = c.LayerMarts
	LayerAnalyses = c.LayerAnalyses
)

var layerRank = map[string]int{
	LayerStaging:  0,
	LayerMarts:    1,
	LayerAnalyses: 2,
}

// Layers returns the model layers in the order they are built.
func Layers() []string {
	return append([]string{}, c.Layers...)
}

// Names of the column tests a model can declare.
const (
	TestUnique         = "unique"
	TestNotNull        = "not_null"
	TestAcceptedValues = "accepted_values"
	TestLength         = "length"
	TestNotContains    = "not_contains"
	TestRelationships  = "relationships"
)

// Model is a single SQL select, materialized as a table or view in its layer's schema.
type Model struct {
	Name         string
	Layer        string
	Path         string
	Materialized string
	Description  string
	Columns      []Column
	Refs         []string // models selected from, in order of first use.
	Sources      []string // raw tables selected from, in order of first use.
	TestRefs     []string // models named by relationships tests.
	tmpl         *template.Template
}

type Column struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Tests       []Test `yaml:"tests"`
}

// Test is one data-quality assertion on a column.
type Test struct {
	Name   string
	Values []string // accepted_values
	Length int      // length
	Chars  string   // not_contains
	Var    string   // not_contains_var: the project var holding the characters.
	To     string   // relationships: the parent model.
	Field  string   // relationships: the parent column.
}

func (t Test) String() string {
	return t.Name
}

// UnmarshalYAML accepts either a bare test name or a single-key map holding the test arguments.
func (t *Test) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		switch name {
		case TestUnique, TestNotNull:
			t.Name = name
			return nil
		}
		return fmt.Errorf("unsupported test %q", name)
	}
	var raw struct {
		AcceptedValues []string `yaml:"accepted_values"`
		Length         *int     `yaml:"length"`
		NotContains    *string  `yaml:"not_contains"`
		NotContainsVar *string  `yaml:"not_contains_var"`
		Relationships  *struct {
			To    string `yaml:"to"`
			Field string `yaml:"field"`
		} `yaml:"relationships"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	found := 0
	if raw.AcceptedValues != nil {
		if len(raw.AcceptedValues) == 0 {
			return errors.New("accepted_values needs at least one value")
		}
		t.Name, t.Values = TestAcceptedValues, raw.AcceptedValues
		found++
	}
	if raw.Length != nil {
		if *raw.Length <= 0 {
			return fmt.Errorf("length must be positive, got %v", *raw.Length)
		}
		t.Name, t.Length = TestLength, *raw.Length
		found++
	}
	if raw.NotContains != nil {
		if *raw.NotContains == "" {
			return errors.New("not_contains needs at least one character")
		}
		t.Name, t.Chars = TestNotContains, *raw.NotContains
		found++
	}
	if raw.NotContainsVar != nil {
		if *raw.NotContainsVar == "" {
			return errors.New("not_contains_var needs the name of a var")
		}
		t.Name, t.Var = TestNotContains, *raw.NotContainsVar
		found++
	}
	if raw.Relationships != nil {
		if raw.Relationships.To == "" || raw.Relationships.Field == "" {
			return errors.New("relationships needs both 'to' and 'field'")
		}
		t.Name, t.To, t.Field = TestRelationships, raw.Relationships.To, raw.Relationships.Field
		found++
	}
	if found != 1 {
		return errors.New("each test must name exactly one of accepted_values, length, not_contains, not_contains_var or relationships")
	}
	return nil
}

type frontMatter struct {
	Materialized string   `yaml:"materialized"`
	Description  string   `yaml:"description"`
	Columns      []Column `yaml:"columns"`
}

const frontMatterDelim = "---"

// ParseModel reads a model file: optional YAML front matter between "---" lines followed by the SQL template.
// The model name is the file name without its extension and the layer is its parent directory.
func ParseModel(filePath string, content []byte) (*Model, error) {
	m := &Model{
		Name:         strings.TrimSuffix(path.Base(filePath), path.Ext(filePath)),
		Layer:        path.Base(path.Dir(filePath)),
		Path:         filePath,
		Materialized: rdbms.MaterializedTable,
	}
	if _, ok := layerRank[m.Layer]; !ok {
		return nil, fmt.Errorf("model %q is in unknown layer %q: use one of %v", filePath, m.Layer, Layers())
	}
	fm, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, errors.Wrapf(err, "model %q", filePath)
	}
	if fm != nil {
		var f frontMatter
		if err = yaml.UnmarshalStrict(fm, &f); err != nil {
			return nil, errors.Wrapf(err, "unable to parse front matter of model %q", filePath)
		}
		if f.Materialized != "" {
			m.Materialized = strings.ToLower(f.Materialized)
		}
		m.Description = f.Description
		m.Columns = f.Columns
	}
	if m.Materialized != rdbms.MaterializedTable && m.Materialized != rdbms.MaterializedView {
		return nil, fmt.Errorf("model %q has unsupported materialization %q", filePath, m.Materialized)
	}
	for _, col := range m.Columns {
		if col.Name == "" {
			return nil, fmt.Errorf("model %q declares a column without a name", filePath)
		}
	}
	if strings.TrimSpace(string(body)) == "" {
		return nil, fmt.Errorf("model %q has no SQL", filePath)
	}
	m.tmpl, err = template.New(m.Name).Option("missingkey=error").Funcs(stubFuncs).Parse(string(body))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse SQL template of model %q", filePath)
	}
	return m, nil
}

func splitFrontMatter(content []byte) (fm []byte, body []byte, err error) {
	trimmed := bytes.TrimLeft(content, "\ufeff \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte(frontMatterDelim)) {
		return nil, content, nil
	}
	lines := strings.SplitAfter(string(trimmed), "\n")
	for idx := 1; idx < len(lines); idx++ {
		if strings.TrimSpace(lines[idx]) == frontMatterDelim {
			return []byte(strings.Join(lines[1:idx], "")), []byte(strings.Join(lines[idx+1:], "")), nil
		}
	}
	return nil, nil, errors.New("front matter is missing its closing ---")
}
