package models

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/rdbms"
)

// stubFuncs declares the functions available to model SQL so templates can be parsed once.
// Real implementations are bound per execution by funcsFor.
var stubFuncs = template.FuncMap{
	"ref":            func(string) (string, error) { return "", nil },
	"source":         func(string) (string, error) { return "", nil },
	"cast":           func(string, string) (string, error) { return "", nil },
	"try_cast":       func(string, string) (string, error) { return "", nil },
	"remove_chars":   func(string, string) string { return "" },
	"datediff_hours": func(string, string) string { return "" },
	"var":            func(string) (interface{}, error) { return nil, nil },
}

// resolver supplies the relation names that ref and source render to.
type resolver interface {
	ref(name string) (string, error)
	source(name string) (string, error)
}

func funcsFor(r resolver, d rdbms.Dialect, vars map[string]interface{}) template.FuncMap {
	return template.FuncMap{
		"ref":            r.ref,
		"source":         r.source,
		"cast":           d.Cast,
		"try_cast":       d.TryCast,
		"remove_chars":   d.RemoveChars,
		"datediff_hours": d.DatediffHours,
		"var": func(name string) (interface{}, error) {
			v, ok := vars[name]
			if !ok {
				return nil, fmt.Errorf("undefined var %q", name)
			}
			return v, nil
		},
	}
}

func (m *Model) render(funcs template.FuncMap) (string, error) {
	t, err := m.tmpl.Clone()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err = t.Funcs(funcs).Execute(&sb, nil); err != nil {
		return "", errors.Wrapf(err, "unable to compile model %q", m.Name)
	}
	return strings.TrimSpace(sb.String()), nil
}

// recorder captures the refs and sources a model uses.
type recorder struct {
	refs    []string
	sources []string
}

func (r *recorder) ref(name string) (string, error) {
	r.refs = appendUnique(r.refs, name)
	return name, nil
}

func (r *recorder) source(name string) (string, error) {
	r.sources = appendUnique(r.sources, name)
	return name, nil
}

func appendUnique(s []string, v string) []string {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
