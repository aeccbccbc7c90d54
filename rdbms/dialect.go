package rdbms

import (
	"fmt"
	"strings"

	"github.com/relloyd/xlpipe/helper"
)

// Relation kinds a model can be materialized as.
const (
	MaterializedTable = "table"
	MaterializedView  = "view"
)

// Portable cast types accepted by Dialect.Cast.
const (
	TypeInteger   = "integer"
	TypeSmallint  = "smallint"
	TypeDecimal   = "decimal"
	TypeVarchar   = "varchar"
	TypeTimestamp = "timestamp"
)

// Dialect renders the warehouse specific parts of model and loader SQL.
type Dialect interface {
	Name() string
	// Relation returns the name used in SQL for object name in the given schema.
	Relation(schema string, name string) string
	// CreateSchema returns zero or more statements that make sure schema exists.
	CreateSchema(schema string) []string
	// CreateRelation returns the statements that replace relation with the result of selectSql.
	CreateRelation(materialized string, relation string, selectSql string) ([]string, error)
	// CreateRawTable returns DDL for an untyped table with the given columns.
	CreateRawTable(relation string, cols []string) string
	Truncate(relation string) string
	Cast(expr string, typ string) (string, error)
	// TryCast is Cast except values that don't convert become null instead of failing the statement.
	TryCast(expr string, typ string) (string, error)
	DatediffHours(from string, to string) string
	Contains(expr string, chars string) string
	RemoveChars(expr string, chars string) string
}

func removeChars(expr string, chars string) string {
	for _, c := range chars {
		expr = fmt.Sprintf("replace(%v, %v, '')", expr, helper.QuoteSqlString(string(c)))
	}
	return expr
}

func validMaterialization(m string) error {
	if m != MaterializedTable && m != MaterializedView {
		return fmt.Errorf("unsupported materialization %q: use %q or %q", m, MaterializedTable, MaterializedView)
	}
	return nil
}

func rawTableDDL(prefix string, relation string, colType string, cols []string) string {
	defs := make([]string, len(cols))
	for idx, c := range cols {
		defs[idx] = fmt.Sprintf("%v %v", c, colType)
	}
	return fmt.Sprintf("%v %v (%v)", prefix, relation, strings.Join(defs, ", "))
}

// SnowflakeDialect.

type SnowflakeDialect struct{}

func (SnowflakeDialect) Name() string {
	return "snowflake"
}

func (SnowflakeDialect) Relation(schema string, name string) string {
	st := NewSchemaTable(schema, name)
	return st.String()
}

func (SnowflakeDialect) CreateSchema(schema string) []string {
	return []string{fmt.Sprintf("create schema if not exists %v", schema)}
}

func (SnowflakeDialect) CreateRelation(materialized string, relation string, selectSql string) ([]string, error) {
	if err := validMaterialization(materialized); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("create or replace %v %v as\n%v", materialized, relation, selectSql)}, nil
}

func (SnowflakeDialect) CreateRawTable(relation string, cols []string) string {
	return rawTableDDL("create table if not exists", relation, "varchar", cols)
}

func (SnowflakeDialect) Truncate(relation string) string {
	return "truncate table " + relation
}

func (SnowflakeDialect) Cast(expr string, typ string) (string, error) {
	switch strings.ToLower(typ) {
	case TypeInteger:
		return fmt.Sprintf("cast(%v as integer)", expr), nil
	case TypeSmallint:
		return fmt.Sprintf("cast(%v as smallint)", expr), nil
	case TypeDecimal:
		return fmt.Sprintf("cast(%v as number(38,2))", expr), nil
	case TypeVarchar:
		return fmt.Sprintf("cast(%v as varchar)", expr), nil
	case TypeTimestamp:
		return fmt.Sprintf("to_timestamp_ntz(%v)", expr), nil
	}
	return "", fmt.Errorf("unsupported cast type %q", typ)
}

func (d SnowflakeDialect) TryCast(expr string, typ string) (string, error) {
	switch strings.ToLower(typ) {
	case TypeInteger, TypeSmallint:
		return fmt.Sprintf("try_to_number(%v)", expr), nil
	case TypeDecimal:
		return fmt.Sprintf("try_to_number(%v, 38, 2)", expr), nil
	case TypeTimestamp:
		return fmt.Sprintf("try_to_timestamp_ntz(%v)", expr), nil
	}
	return d.Cast(expr, typ)
}

func (SnowflakeDialect) DatediffHours(from string, to string) string {
	return fmt.Sprintf("datediff(hour, %v, %v)", from, to)
}

func (SnowflakeDialect) Contains(expr string, chars string) string {
	return fmt.Sprintf("contains(%v, %v)", expr, helper.QuoteSqlString(chars))
}

func (SnowflakeDialect) RemoveChars(expr string, chars string) string {
	return removeChars(expr, chars)
}

// SqliteDialect has no schemas so relations are named <schema>_<name>.

type SqliteDialect struct{}

func (SqliteDialect) Name() string {
	return "sqlite"
}

func (SqliteDialect) Relation(schema string, name string) string {
	if schema == "" {
		return name
	}
	return strings.ToLower(schema) + "_" + name
}

func (SqliteDialect) CreateSchema(string) []string {
	return nil
}

func (SqliteDialect) CreateRelation(materialized string, relation string, selectSql string) ([]string, error) {
	if err := validMaterialization(materialized); err != nil {
		return nil, err
	}
	return []string{
		fmt.Sprintf("drop %v if exists %v", materialized, relation),
		fmt.Sprintf("create %v %v as\n%v", materialized, relation, selectSql),
	}, nil
}

func (SqliteDialect) CreateRawTable(relation string, cols []string) string {
	return rawTableDDL("create table if not exists", relation, "text", cols)
}

func (SqliteDialect) Truncate(relation string) string {
	return "delete from " + relation
}

func (SqliteDialect) Cast(expr string, typ string) (string, error) {
	switch strings.ToLower(typ) {
	case TypeInteger, TypeSmallint:
		return fmt.Sprintf("cast(%v as integer)", expr), nil
	case TypeDecimal:
		return fmt.Sprintf("cast(%v as real)", expr), nil
	case TypeVarchar:
		return fmt.Sprintf("cast(%v as text)", expr), nil
	case TypeTimestamp:
		return fmt.Sprintf("datetime(%v)", expr), nil
	}
	return "", fmt.Errorf("unsupported cast type %q", typ)
}

// TryCast is the same as Cast: SQLite casts never raise and datetime() already yields null for bad input.
func (d SqliteDialect) TryCast(expr string, typ string) (string, error) {
	return d.Cast(expr, typ)
}

func (SqliteDialect) DatediffHours(from string, to string) string {
	return fmt.Sprintf("((julianday(%v) - julianday(%v)) * 24)", to, from)
}

func (SqliteDialect) Contains(expr string, chars string) string {
	return fmt.Sprintf("instr(%v, %v) > 0", expr, helper.QuoteSqlString(chars))
}

func (SqliteDialect) RemoveChars(expr string, chars string) string {
	return removeChars(expr, chars)
}
