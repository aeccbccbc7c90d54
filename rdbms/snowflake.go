package rdbms

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/rdbms/shared"
	sf "github.com/snowflakedb/gosnowflake"
)

const snowflakeDsnPrefix = "snowflake://"

var reSnowflakePrefix = regexp.MustCompile("^" + snowflakeDsnPrefix)

type SnowflakeConnectionDetails struct {
	Account   string `errorTxt:"Snowflake account" mandatory:"yes"`
	DBName    string `errorTxt:"Snowflake db name" mandatory:"yes"`
	Schema    string `errorTxt:"Snowflake schema" mandatory:"yes"`
	User      string `errorTxt:"Snowflake username" mandatory:"yes"`
	Password  string `errorTxt:"Snowflake password" mandatory:"yes"`
	Warehouse string `errorTxt:"Snowflake warehouse"`
	RoleName  string `errorTxt:"Snowflake role name"`
}

func (d SnowflakeConnectionDetails) String() string {
	return fmt.Sprintf("%v:%v@%v/%v?schema=%v&warehouse=%v&role=%v",
		d.User,
		"xxxxxxx",
		d.Account,
		d.DBName,
		d.Schema,
		d.Warehouse,
		d.RoleName,
	)
}

// newSnowflakeConnection opens the Snowflake database connection specified by dsn.
func newSnowflakeConnection(log logger.Logger, dsn string) (shared.Connector, error) {
	dsn = strings.TrimPrefix(dsn, snowflakeDsnPrefix)
	conn := &shared.HpConnection{
		Dml:    &shared.DmlGeneratorTxtBatch{},
		DbType: constants.ConnectionTypeSnowflake,
	}
	var err error
	conn.DbSql, err = sql.Open("snowflake", dsn)
	if err != nil {
		return nil, err
	}
	if err = conn.DbSql.Ping(); err != nil {
		_ = conn.DbSql.Close()
		return nil, fmt.Errorf("unable to connect to Snowflake: %w", err)
	}
	log.Info("Successful database connection to Snowflake.")
	return conn, nil
}

// SnowflakeGetDSN constructs a DSN based on SnowflakeConnectionDetails.
// The prefix 'snowflake://' is added to the DSN.
func SnowflakeGetDSN(c *SnowflakeConnectionDetails) (string, error) {
	cfg := &sf.Config{
		Account:   c.Account,
		Database:  c.DBName,
		Schema:    c.Schema,
		User:      c.User,
		Password:  c.Password,
		Warehouse: c.Warehouse,
		Role:      c.RoleName,
	}
	dsn, err := sf.DSN(cfg)
	if err != nil {
		return "", err
	}
	if !reSnowflakePrefix.MatchString(dsn) { // if the prefix is missing...
		dsn = snowflakeDsnPrefix + dsn
	}
	return dsn, nil
}

// SnowflakeParseDSN converts a Snowflake DSN into native connection details.
// The prefix 'snowflake://' is required.
func SnowflakeParseDSN(d string) (*SnowflakeConnectionDetails, error) {
	if !reSnowflakePrefix.MatchString(d) {
		return nil, errors.New("unsupported Snowflake DSN format")
	}
	cfg, err := sf.ParseDSN(strings.TrimPrefix(d, snowflakeDsnPrefix))
	if err != nil {
		return nil, err
	}
	retval := &SnowflakeConnectionDetails{
		User:      cfg.User,
		Password:  cfg.Password,
		Schema:    cfg.Schema,
		DBName:    cfg.Database,
		Account:   cfg.Account,
		RoleName:  cfg.Role,
		Warehouse: cfg.Warehouse,
	}
	if cfg.Region != "" && !strings.Contains(retval.Account, ".") { // if region exists in the parsed config...
		retval.Account = fmt.Sprintf("%v.%v", retval.Account, cfg.Region)
	}
	return retval, nil
}
