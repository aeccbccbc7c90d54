package models

import (
	"fmt"
	"strings"

	"github.com/relloyd/xlpipe/rdbms"
)

// Target says where models are built: the warehouse dialect plus the schema for raw sources and for each layer.
type Target struct {
	Dialect      rdbms.Dialect
	SourceSchema string
	Sources      []string          // the raw tables models may select from.
	LayerSchemas map[string]string // layer name to schema.
}

// Schema returns the schema models of layer are built in.
func (t Target) Schema(layer string) string {
	if s, ok := t.LayerSchemas[layer]; ok && s != "" {
		return s
	}
	return strings.ToUpper(layer)
}

// Relation returns the name of the table or view built for m.
func (t Target) Relation(m *Model) string {
	return t.Dialect.Relation(t.Schema(m.Layer), m.Name)
}

// CompiledTest is an assertion rendered as SQL returning the count of failing rows.
type CompiledTest struct {
	Name   string `json:"name" yaml:"name"`
	Column string `json:"column" yaml:"column"`
	Sql    string `json:"sql" yaml:"sql"`
}

// CompiledModel is a model with its refs resolved for a Target.
type CompiledModel struct {
	Name         string         `json:"name" yaml:"name"`
	Layer        string         `json:"layer" yaml:"layer"`
	Relation     string         `json:"relation" yaml:"relation"`
	Materialized string         `json:"materialized" yaml:"materialized"`
	DependsOn    []string       `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Sql          string         `json:"sql" yaml:"sql"`
	Tests        []CompiledTest `json:"tests,omitempty" yaml:"tests,omitempty"`
}

type targetResolver struct {
	p *Project
	t Target
}

func (r targetResolver) ref(name string) (string, error) {
	m, ok := r.p.Models[name]
	if !ok {
		return "", fmt.Errorf("unknown model %q", name)
	}
	return r.t.Relation(m), nil
}

func (r targetResolver) source(name string) (string, error) {
	for _, s := range r.t.Sources {
		if s == name {
			return r.t.Dialect.Relation(r.t.SourceSchema, name), nil
		}
	}
	return "", fmt.Errorf("unknown source %q", name)
}

// Compile renders m and its tests for t.
func (p *Project) Compile(m *Model, t Target) (*CompiledModel, error) {
	r := targetResolver{p: p, t: t}
	sql, err := m.render(funcsFor(r, t.Dialect, p.Vars))
	if err != nil {
		return nil, err
	}
	c := &CompiledModel{
		Name:         m.Name,
		Layer:        m.Layer,
		Relation:     t.Relation(m),
		Materialized: m.Materialized,
		DependsOn:    append(append([]string{}, m.Sources...), m.Refs...),
		Sql:          sql,
	}
	for _, col := range m.Columns {
		for _, test := range col.Tests {
			q, err := assertionSql(t, p, c.Relation, col.Name, test)
			if err != nil {
				return nil, fmt.Errorf("model %q column %q: %w", m.Name, col.Name, err)
			}
			c.Tests = append(c.Tests, CompiledTest{Name: test.Name, Column: col.Name, Sql: q})
		}
	}
	return c, nil
}
