package pipeline

import (
	"context"

	"github.com/relloyd/xlpipe/components"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/rdbms/shared"
	"github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

// ExecStatements runs stmts in order on db through a single SqlExec component called name.
// It returns the rows affected per statement, or the first error.
func ExecStatements(ctx context.Context, log logger.Logger, sm stats.StatsManager, name string, db shared.Connector, stmts []string) ([]int64, error) {
	if len(stmts) == 0 {
		return nil, nil
	}
	input := make(chan stream.Record, len(stmts))
	for _, stmt := range stmts {
		rec := stream.NewRecord()
		rec.SetData(components.Defaults.ChanField4SqlStatement, stmt)
		input <- rec
	}
	close(input)
	recs, err := RunComponents(ctx, log, sm, func(ch *Chain) (chan stream.Record, []chan components.ControlAction) {
		out, control := components.NewSqlExec(&components.SqlExecConfig{
			Log:                      log,
			Name:                     name,
			InputChan:                input,
			SqlQueryFieldName:        components.Defaults.ChanField4SqlStatement,
			SqlRowsAffectedFieldName: components.Defaults.ChanField4RowsAffected,
			OutputDb:                 db,
			Ctx:                      ctx,
			StepWatcher:              ch.StepWatcher(name),
			WaitCounter:              ch.Waiter(name),
			PanicHandlerFn:           ch.PanicHandlerFn,
		})
		return out, []chan components.ControlAction{control}
	})
	if err != nil {
		return nil, err
	}
	affected := make([]int64, len(recs))
	for idx, rec := range recs {
		affected[idx], _ = rec.GetData(components.Defaults.ChanField4RowsAffected).(int64)
	}
	return affected, nil
}
