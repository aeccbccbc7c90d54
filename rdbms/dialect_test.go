package rdbms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeDialect(t *testing.T) {
	d := MustGetDialect("snowflake")
	assert.Equal(t, "STAGING.stg_transactions", d.Relation("STAGING", "stg_transactions"))
	assert.Equal(t, []string{"create schema if not exists MARTS"}, d.CreateSchema("MARTS"))
	stmts, err := d.CreateRelation(MaterializedView, "MARTS.fct_transactions", "select 1 as x")
	require.NoError(t, err)
	assert.Equal(t, []string{"create or replace view MARTS.fct_transactions as\nselect 1 as x"}, stmts)
	_, err = d.CreateRelation("incremental", "MARTS.x", "select 1")
	assert.Error(t, err)
	assert.Equal(t, "create table if not exists RAW.device (id varchar, type varchar)", d.CreateRawTable("RAW.device", []string{"id", "type"}))
	assert.Equal(t, "truncate table RAW.device", d.Truncate("RAW.device"))
	c, err := d.Cast("amount", "decimal")
	require.NoError(t, err)
	assert.Equal(t, "cast(amount as number(38,2))", c)
	c, err = d.Cast("happened_at", "timestamp")
	require.NoError(t, err)
	assert.Equal(t, "to_timestamp_ntz(happened_at)", c)
	_, err = d.Cast("x", "blob")
	assert.Error(t, err)
	c, err = d.TryCast("created_at", "timestamp")
	require.NoError(t, err)
	assert.Equal(t, "try_to_timestamp_ntz(created_at)", c)
	c, err = d.TryCast("amount", "decimal")
	require.NoError(t, err)
	assert.Equal(t, "try_to_number(amount, 38, 2)", c)
	c, err = d.TryCast("id", "varchar")
	require.NoError(t, err)
	assert.Equal(t, "cast(id as varchar)", c)
	_, err = d.TryCast("x", "blob")
	assert.Error(t, err)
	assert.Equal(t, "datediff(hour, a, b)", d.DatediffHours("a", "b"))
	assert.Equal(t, "contains(product_sku, 'v')", d.Contains("product_sku", "v"))
	assert.Equal(t, "replace(replace(product_sku, 'v', ''), 'x', '')", d.RemoveChars("product_sku", "vx"))
}

func TestSqliteDialect(t *testing.T) {
	d := MustGetDialect("sqlite")
	assert.Equal(t, "staging_stg_transactions", d.Relation("STAGING", "stg_transactions"))
	assert.Empty(t, d.CreateSchema("STAGING"))
	stmts, err := d.CreateRelation(MaterializedTable, "marts_dim_stores", "select 1 as x")
	require.NoError(t, err)
	assert.Equal(t, []string{"drop table if exists marts_dim_stores", "create table marts_dim_stores as\nselect 1 as x"}, stmts)
	assert.Equal(t, "create table if not exists raw_store (id text)", d.CreateRawTable("raw_store", []string{"id"}))
	assert.Equal(t, "delete from raw_store", d.Truncate("raw_store"))
	c, err := d.Cast("type", "smallint")
	require.NoError(t, err)
	assert.Equal(t, "cast(type as integer)", c)
	c, err = d.TryCast("created_at", "timestamp")
	require.NoError(t, err)
	assert.Equal(t, "datetime(created_at)", c)
	assert.Equal(t, "((julianday(b) - julianday(a)) * 24)", d.DatediffHours("a", "b"))
	assert.Equal(t, "instr(product_sku, 'v') > 0", d.Contains("product_sku", "v"))

	_, err = GetDialect("oracle")
	assert.Error(t, err)
}
