package models

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// ErrCycle is returned when models refer to each other in a loop.
var ErrCycle = errors.New("models form a reference cycle")

// Graph holds the models and the edges from each model to the models that select from or test against it.
type Graph struct {
	models   map[string]*Model
	children map[string][]string
	order    []*Model
}

// NewGraph builds the graph of refs between models and computes the build order.
func NewGraph(models map[string]*Model) (*Graph, error) {
	g := &Graph{models: models, children: make(map[string][]string)}
	for _, m := range models {
		for _, r := range parents(m) {
			if _, ok := models[r]; !ok {
				return nil, fmt.Errorf("model %q refers to unknown model %q", m.Name, r)
			}
			g.children[r] = append(g.children[r], m.Name)
		}
	}
	var err error
	if g.order, err = g.Order(); err != nil {
		return nil, err
	}
	return g, nil
}

// Order sorts the models so that every model comes after the models it refers to.
// Ties are broken by layer then by name, so the order is stable across runs.
func (g *Graph) Order() ([]*Model, error) {
	inDegree := make(map[string]int, len(g.models))
	for name, m := range g.models {
		inDegree[name] = len(parents(m))
	}
	ready := make([]*Model, 0)
	for name, n := range inDegree {
		if n == 0 {
			ready = append(ready, g.models[name])
		}
	}
	order := make([]*Model, 0, len(g.models))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, child := range g.children[next.Name] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = append(ready, g.models[child])
			}
		}
	}
	if len(order) != len(g.models) {
		stuck := make([]string, 0)
		for name, n := range inDegree {
			if n > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, errors.Wrapf(ErrCycle, "models involved %v", stuck)
	}
	return order, nil
}

// Downstream returns the names of every model that selects from name, directly or not.
func (g *Graph) Downstream(name string) []string {
	seen := make(map[string]bool)
	var visit func(n string)
	visit = func(n string) {
		for _, c := range g.children[n] {
			if !seen[c] {
				seen[c] = true
				visit(c)
			}
		}
	}
	visit(name)
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// parents returns the models that must be built before m.
func parents(m *Model) []string {
	p := append([]string{}, m.Refs...)
	for _, t := range m.TestRefs {
		p = appendUnique(p, t)
	}
	return p
}

func less(a, b *Model) bool {
	if layerRank[a.Layer] != layerRank[b.Layer] {
		return layerRank[a.Layer] < layerRank[b.Layer]
	}
	return a.Name < b.Name
}
