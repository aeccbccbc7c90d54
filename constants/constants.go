package constants

// Component

const (
	ChanSize                     = 20000
	StatsCaptureFrequencySeconds = 5
	TimeFormatCellTimestamp      = "2006-01-02 15:04:05" // spreadsheet date cells are rendered with this layout
	CsvFileExtension             = "csv"
	TxtBatchNumRowsDefault       = 100
	EmojiBang                    = "\U0001F4A5"
	EnvVarPrefix                 = "XP" // prefixed for environment variables in twelveFactorMode
	ServiceName                  = "xlpipe"
	ConnectionTypeSnowflake      = "snowflake"
	ConnectionTypeSqlite         = "sqlite"
	ConnectionTypeS3             = "s3"
	StageTypeSnowflake           = "snowflake"
	StageTypeS3                  = "s3"
	StageTypeLocal               = "local"
)

// Model layers in build order.

const (
	LayerStaging  = "staging"
	LayerMarts    = "marts"
	LayerAnalyses = "analyses"
)

var Layers = []string{LayerStaging, LayerMarts, LayerAnalyses}

// Keys of actions.ActionFuncs.

const (
	ActionFuncsCommandRun             = "run"
	ActionFuncsCommandLoad            = "load"
	ActionFuncsCommandBuild           = "build"
	ActionFuncsCommandTest            = "test"
	ActionFuncsCommandCompile         = "compile"
	ActionFuncsCommandCreateStage     = "create-stage"
	ActionFuncsCommandCreateRawTables = "create-raw-tables"
)

// EmojiSmile = "\U0001F604"
