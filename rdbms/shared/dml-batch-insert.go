package shared

import (
	"strings"

	"github.com/pkg/errors"
	h "github.com/relloyd/xlpipe/helper"
)

// SqlInsertTxtBatch implements SqlStmtTxtBatcher
// and is able to generate INSERT statements with batches of rows supplied.
type SqlInsertTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
	ColList []string // list of columns extracted from SqlStatementGeneratorConfig.
}

// NewInsertGenerator creates a new SqlStmtGenerator that implements interface SqlStmtTxtBatcher.
func (*DmlGeneratorTxtBatch) NewInsertGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtGenerator {
	FixSqlStatementGeneratorConfig(cfg)
	cfg.Log.Debug("Creating NewInsertGenerator")
	o := &SqlInsertTxtBatch{SqlStatementGeneratorConfig: *cfg}
	o.setupSqlStatement()
	return o
}

func (o *SqlInsertTxtBatch) setupSqlStatement() {
	o.ColList = h.OrderedMapValuesToStringSlice(o.TargetCols)
	o.sqlStmtTemplate = `insert into <SCHEMA><SEPARATOR><TABLE> (<TGT-COLS>) values <VALUES>`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<SCHEMA>", o.OutputSchema, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<SEPARATOR>", o.SchemaSeparator, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", o.OutputTable, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TGT-COLS>", strings.Join(o.ColList, ","), 1)
	o.previousNumRowsInBatch = -1
	o.Log.Debug("setup INSERT generator with SQL (VALUES pending): ", o.sqlStmtTemplate)
}

func (o *SqlInsertTxtBatch) InitBatch(batchSize int) {
	o.batchSize = batchSize
	o.rowsInBatch = 0
	o.sqlValues = make([]interface{}, 0, o.batchSize*len(o.ColList)) // many values per row in a batch.
}

func (o *SqlInsertTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	if o.rowsInBatch >= o.batchSize {
		return true, errors.New("no more rows allowed in INSERT batch")
	}
	if len(values) != len(o.ColList) {
		return false, errors.Errorf("the number of values supplied (%v) does not match the number of table columns (%v)", len(values), len(o.ColList))
	}
	o.sqlValues = append(o.sqlValues, values...)
	o.rowsInBatch++
	return o.rowsInBatch >= o.batchSize, nil
}

func (o *SqlInsertTxtBatch) GetValues() []interface{} {
	return o.sqlValues
}

// GetRowCount returns the number of rows added since InitBatch.
func (o *SqlInsertTxtBatch) GetRowCount() int {
	return o.rowsInBatch
}

// GetStatement returns SQL for the rows currently in the batch.
// The statement is cached until the number of rows changes, so a short final batch gets its own SQL.
func (o *SqlInsertTxtBatch) GetStatement() string {
	if o.previousNumRowsInBatch != o.rowsInBatch {
		row := "(" + strings.TrimSuffix(strings.Repeat(strBindChar+",", len(o.ColList)), ",") + ")"
		rows := make([]string, o.rowsInBatch)
		for idx := range rows {
			rows[idx] = row
		}
		o.sqlStmt = strings.Replace(o.sqlStmtTemplate, "<VALUES>", strings.Join(rows, ","), 1)
		o.previousNumRowsInBatch = o.rowsInBatch
	}
	o.Log.Trace("SQL batch INSERT generated statement: ", o.sqlStmt)
	return o.sqlStmt
}
