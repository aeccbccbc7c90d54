package rdbms

import (
	"fmt"
	"strings"

	"github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/rdbms/shared"
	sf "github.com/snowflakedb/gosnowflake"
)

// OpenDbConnection opens a database connection using the supplied ConnectionDetails struct in c.
func OpenDbConnection(log logger.Logger, c shared.ConnectionDetails) (db shared.Connector, err error) {
	log.Debug("opening connection type ", c.Type, " with logicalName ", c.LogicalName) // don't log password details in c.Data!
	dsn, err := c.GetDsn()
	if err != nil {
		return nil, err
	}
	switch c.Type {
	case constants.ConnectionTypeSnowflake:
		db, err = newSnowflakeConnection(log, dsn)
	case constants.ConnectionTypeSqlite:
		db, err = newSqliteConnection(log, dsn)
	default:
		err = fmt.Errorf("unsupported database type, %q", c.Type)
	}
	return
}

// MustGetDialect returns the Dialect for a connection type.
func MustGetDialect(connectionType string) Dialect {
	d, err := GetDialect(connectionType)
	if err != nil {
		panic(err)
	}
	return d
}

// GetDialect returns the Dialect for a connection type.
func GetDialect(connectionType string) (Dialect, error) {
	switch connectionType {
	case constants.ConnectionTypeSnowflake:
		return SnowflakeDialect{}, nil
	case constants.ConnectionTypeSqlite:
		return SqliteDialect{}, nil
	}
	return nil, fmt.Errorf("no SQL dialect for database type %q", connectionType)
}

// WithDatabase returns a copy of c whose Snowflake DSN points at database.
// Other connection types and an empty database return c unchanged.
func WithDatabase(c shared.ConnectionDetails, database string) (shared.ConnectionDetails, error) {
	if database == "" || c.Type != constants.ConnectionTypeSnowflake {
		return c, nil
	}
	dsn, err := c.GetDsn()
	if err != nil {
		return c, err
	}
	if !reSnowflakePrefix.MatchString(dsn) {
		return c, fmt.Errorf("unsupported Snowflake DSN format in connection %q", c.LogicalName)
	}
	cfg, err := sf.ParseDSN(strings.TrimPrefix(dsn, snowflakeDsnPrefix))
	if err != nil {
		return c, fmt.Errorf("unable to parse the DSN of connection %q: %w", c.LogicalName, err)
	}
	if cfg.Database == database {
		return c, nil
	}
	cfg.Database = database // keep every other DSN parameter as it was.
	if dsn, err = sf.DSN(cfg); err != nil {
		return c, err
	}
	if !reSnowflakePrefix.MatchString(dsn) {
		dsn = snowflakeDsnPrefix + dsn
	}
	return shared.NewDsnConnectionDetails(c.Type, c.LogicalName, dsn)
}
