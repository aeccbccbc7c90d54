package rdbms

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/rdbms/shared"
	_ "modernc.org/sqlite"
)

// SqliteGetDSN returns the DSN for a database file.
func SqliteGetDSN(path string) string {
	return "sqlite:" + path
}

// SqliteParseDSN returns the database file path held in dsn.
func SqliteParseDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "sqlite:") {
		return "", fmt.Errorf("unsupported SQLite DSN format %q", dsn)
	}
	p := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//")
	if p == "" {
		return "", fmt.Errorf("missing database path in SQLite DSN %q", dsn)
	}
	return p, nil
}

func newSqliteConnection(log logger.Logger, dsn string) (shared.Connector, error) {
	path, err := SqliteParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorTxtBatch{},
		DbType: constants.ConnectionTypeSqlite,
	}
	conn.DbSql, err = sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	conn.DbSql.SetMaxOpenConns(1) // a single writer avoids SQLITE_BUSY.
	if err = conn.DbSql.Ping(); err != nil {
		_ = conn.DbSql.Close()
		return nil, fmt.Errorf("unable to open SQLite database %q: %w", path, err)
	}
	log.Info("Successful database connection to SQLite file ", path)
	return conn, nil
}
