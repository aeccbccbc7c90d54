package models

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/rdbms"
)

// ModelFileExtension is the suffix of model files within a project tree.
const ModelFileExtension = ".sql"

// Project is the set of models found under a models directory.
type Project struct {
	Models map[string]*Model
	Vars   map[string]interface{}
	graph  *Graph
}

// LoadProject parses every <layer>/<name>.sql file in fsys and discovers the dependencies between them.
// Dependencies are found by rendering each model with a ref function that records its argument.
func LoadProject(fsys fs.FS, vars map[string]interface{}) (*Project, error) {
	p := &Project{Models: make(map[string]*Model), Vars: vars}
	if p.Vars == nil {
		p.Vars = make(map[string]interface{})
	}
	err := fs.WalkDir(fsys, ".", func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(filePath) != ModelFileExtension {
			return nil
		}
		b, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return errors.Wrapf(err, "unable to read model %q", filePath)
		}
		m, err := ParseModel(filePath, b)
		if err != nil {
			return err
		}
		if prev, ok := p.Models[m.Name]; ok {
			return fmt.Errorf("model name %q is used by both %q and %q", m.Name, prev.Path, m.Path)
		}
		p.Models[m.Name] = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(p.Models) == 0 {
		return nil, errors.New("no models found")
	}
	for _, m := range p.Models {
		rec := &recorder{}
		if _, err = m.render(funcsFor(rec, rdbms.SqliteDialect{}, p.Vars)); err != nil {
			return nil, err
		}
		m.Refs, m.Sources = rec.refs, rec.sources
		for _, col := range m.Columns {
			for _, t := range col.Tests {
				if t.Name == TestRelationships && t.To != m.Name {
					m.TestRefs = appendUnique(m.TestRefs, t.To)
				}
			}
		}
		if err = p.validate(m); err != nil {
			return nil, err
		}
	}
	if p.graph, err = NewGraph(p.Models); err != nil {
		return nil, err
	}
	return p, nil
}

// validate checks that m only reads from its own or earlier layers and that raw tables feed staging alone.
// Models named in relationships tests count as reads. Vars named by tests must be set.
func (p *Project) validate(m *Model) error {
	for _, r := range append(append([]string{}, m.Refs...), m.TestRefs...) {
		parent, ok := p.Models[r]
		if !ok {
			return fmt.Errorf("model %q refers to unknown model %q", m.Name, r)
		}
		if layerRank[parent.Layer] > layerRank[m.Layer] {
			return fmt.Errorf("model %q in layer %v cannot refer to model %q in later layer %v", m.Name, m.Layer, r, parent.Layer)
		}
	}
	for _, col := range m.Columns {
		for _, t := range col.Tests {
			if t.Var == "" {
				continue
			}
			if v, ok := p.Vars[t.Var]; !ok || fmt.Sprint(v) == "" {
				return fmt.Errorf("model %q tests column %v with undefined or empty var %q", m.Name, col.Name, t.Var)
			}
		}
	}
	if len(m.Sources) > 0 && m.Layer != LayerStaging {
		return fmt.Errorf("model %q in layer %v cannot select from raw sources %v: only %v models can", m.Name, m.Layer, m.Sources, LayerStaging)
	}
	return nil
}

// Order returns every model in build order.
func (p *Project) Order() []*Model {
	return p.graph.order
}

// Select returns the models matched by selector, in build order.
// The selector is a comma separated list of layer and model names; empty or "*" selects everything.
func (p *Project) Select(selector string) ([]*Model, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" || selector == "*" {
		return p.Order(), nil
	}
	want := make(map[string]bool)
	for _, s := range strings.Split(selector, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		_, isLayer := layerRank[s]
		_, isModel := p.Models[s]
		if !isLayer && !isModel {
			return nil, fmt.Errorf("selector %q matches no layer or model", s)
		}
		want[s] = true
	}
	selected := make([]*Model, 0)
	for _, m := range p.Order() {
		if want[m.Name] || want[m.Layer] {
			selected = append(selected, m)
		}
	}
	return selected, nil
}

// Names returns the sorted model names.
func (p *Project) Names() []string {
	names := make([]string, 0, len(p.Models))
	for n := range p.Models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Downstream returns the models that depend on name, directly or not.
func (p *Project) Downstream(name string) []string {
	return p.graph.Downstream(name)
}
