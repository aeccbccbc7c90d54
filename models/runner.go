package models

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/pipeline"
	"github.com/relloyd/xlpipe/rdbms"
	"github.com/relloyd/xlpipe/rdbms/shared"
	"github.com/relloyd/xlpipe/stats"
)

// Model result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFail    = "fail"
	StatusSkipped = "skipped"
)

// ModelResult is the outcome of building or testing one model.
type ModelResult struct {
	Model    string        `json:"model"`
	Relation string        `json:"relation"`
	Status   string        `json:"status"`
	Tests    int           `json:"tests"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Runner materializes models in a warehouse and evaluates their tests.
type Runner struct {
	Log     logger.Logger
	Db      shared.Connector
	Project *Project
	Target  Target
	Stats   stats.StatsManager // optional: collects row counts for each build step.
}

// Compile returns the SQL of the selected models in build order.
func (r *Runner) Compile(selector string) ([]*CompiledModel, error) {
	selected, err := r.Project.Select(selector)
	if err != nil {
		return nil, err
	}
	out := make([]*CompiledModel, 0, len(selected))
	for _, m := range selected {
		c, err := r.Project.Compile(m, r.Target)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Build creates each selected model in order and runs its tests straight after.
// The first failure stops the run and the models not yet built are reported as skipped.
func (r *Runner) Build(ctx context.Context, selector string) ([]ModelResult, error) {
	return r.run(ctx, selector, true)
}

// Test evaluates the tests of the selected models against relations that already exist.
func (r *Runner) Test(ctx context.Context, selector string) ([]ModelResult, error) {
	return r.run(ctx, selector, false)
}

func (r *Runner) run(ctx context.Context, selector string, build bool) ([]ModelResult, error) {
	compiled, err := r.Compile(selector)
	if err != nil {
		return nil, err
	}
	results := make([]ModelResult, 0, len(compiled))
	var firstErr error
	for _, c := range compiled {
		if firstErr != nil {
			results = append(results, ModelResult{Model: c.Name, Relation: c.Relation, Status: StatusSkipped})
			continue
		}
		start := time.Now()
		res := ModelResult{Model: c.Name, Relation: c.Relation, Status: StatusSuccess, Tests: len(c.Tests)}
		if build {
			err = r.materialize(ctx, c)
		}
		if err == nil {
			err = r.assert(ctx, c)
		}
		res.Duration = time.Since(start)
		if err != nil {
			res.Err = err
			res.Status = StatusError
			var ae *AssertionError
			if errors.As(err, &ae) {
				res.Status = StatusFail
			}
			firstErr = err
			if downstream := r.Project.Downstream(c.Name); len(downstream) > 0 {
				r.Log.Warn("model ", c.Name, " failed so these models will not run: ", downstream)
			}
		}
		results = append(results, res)
	}
	return results, firstErr
}

func (r *Runner) materialize(ctx context.Context, c *CompiledModel) error {
	stmts, err := r.Target.Dialect.CreateRelation(c.Materialized, c.Relation, c.Sql)
	if err != nil {
		return errors.Wrapf(err, "model %v", c.Name)
	}
	r.Log.Info("building ", c.Materialized, " ", c.Relation)
	if _, err = pipeline.ExecStatements(ctx, r.Log, r.Stats, "build_"+c.Name, r.Db, stmts); err != nil {
		return errors.Wrapf(err, "unable to build model %v", c.Name)
	}
	return nil
}

func (r *Runner) assert(ctx context.Context, c *CompiledModel) error {
	for _, t := range c.Tests {
		r.Log.Debug("testing ", c.Name, " ", t.Name, "(", t.Column, "): ", t.Sql)
		n, err := rdbms.SqlQueryInt64(ctx, r.Db, t.Sql)
		if err != nil {
			return errors.Wrapf(err, "unable to run test %v on model %v column %v", t.Name, c.Name, t.Column)
		}
		if n > 0 {
			return &AssertionError{Model: c.Name, Column: t.Column, Test: t.Name, Failures: n}
		}
		r.Log.Info("model ", c.Name, " passed test ", t.Name, " on column ", t.Column)
	}
	return nil
}
