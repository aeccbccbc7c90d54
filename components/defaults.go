package components

// Default field names are used by components to know the names of input and output fields.
var Defaults = struct {
	ChanField4CSVFileName  string // the full path of a CSV file written locally.
	ChanField4StagedName   string // the name of a file within a stage.
	ChanField4RowsLoaded   string // the number of rows a loader inserted.
	ChanField4RowsRejected string // the number of rows a loader skipped.
	ChanField4TableName    string // the table loaded.
	ChanField4SqlStatement string // a statement for NewSqlExec to run.
	ChanField4RowsAffected string // the rows affected by a statement.
}{
	ChanField4CSVFileName:  "#CSVFileName",
	ChanField4StagedName:   "#StagedFileName",
	ChanField4RowsLoaded:   "#RowsLoaded",
	ChanField4RowsRejected: "#RowsRejected",
	ChanField4TableName:    "#TargetTableName",
	ChanField4SqlStatement: "#SqlStatement",
	ChanField4RowsAffected: "#RowsAffected",
}
