package shared

import (
	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/xlpipe/logger"
)

const strBindChar = "?"

// DmlGeneratorTxtBatch builds multi-row statements that use positional binds.
// Both Snowflake and SQLite accept '?'.
type DmlGeneratorTxtBatch struct{}

type SqlStatementGeneratorConfig struct {
	Log             logger.Logger
	OutputSchema    string
	SchemaSeparator string
	OutputTable     string
	TargetCols      *om.OrderedMap // ordered map of: key = chan field name; value = target table column name
}

type sqlCoreCfg struct {
	sqlStmt                string
	sqlStmtTemplate        string
	sqlValues              []interface{} // slice to hold data values for all rows in batch
	batchSize              int
	rowsInBatch            int
	previousNumRowsInBatch int
}

func FixSqlStatementGeneratorConfig(cfg *SqlStatementGeneratorConfig) {
	if cfg.OutputTable == "" {
		cfg.Log.Panic("Error, missing output table name.")
	}
	if cfg.TargetCols == nil || cfg.TargetCols.Len() == 0 {
		cfg.Log.Panic("Error, missing target columns for table ", cfg.OutputTable)
	}
	if cfg.OutputSchema == "" {
		cfg.SchemaSeparator = ""
		cfg.Log.Debug("No output schema supplied; setting a blank separator.")
	} else if cfg.SchemaSeparator == "" {
		cfg.SchemaSeparator = "."
	}
}
