package rdbms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaTable(t *testing.T) {
	cases := []struct {
		input, schema, table string
	}{
		{"RAW.device", "RAW", "device"},
		{`RAW."transaction"`, "RAW", `"transaction"`},
		{`"RAW"."store"`, `"RAW"`, `"store"`},
		{`"random.table"`, "", `"random.table"`},
		{"store", "", "store"},
	}
	for _, c := range cases {
		st := SchemaTable{SchemaTable: c.input}
		assert.Equal(t, c.schema, st.GetSchema(), c.input)
		assert.Equal(t, c.table, st.GetTable(), c.input)
		assert.Equal(t, c.input, st.String())
	}
	st := NewSchemaTable("", "device")
	assert.Equal(t, "device", st.String())
	st = NewSchemaTable("RAW", "device")
	assert.Equal(t, "RAW.device", st.String())
}
