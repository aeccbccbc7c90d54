package rdbms

import (
	"regexp"
	"strings"
)

var reQuotedDottedName = regexp.MustCompile(`^"[^"]+\.[^"]+"$`) // "random.table"

// SchemaTable holds a relation name of the form [<schema>.]<object>.
type SchemaTable struct {
	SchemaTable string `errorTxt:"[<schema>.]<object>" mandatory:"yes"`
}

func NewSchemaTable(schema string, table string) SchemaTable {
	if schema == "" {
		return SchemaTable{table}
	}
	return SchemaTable{schema + "." + table}
}

// isQuotedTable returns true for a quoted "random.table" as opposed to a regular "schema"."table".
func (st *SchemaTable) isQuotedTable() bool {
	return reQuotedDottedName.MatchString(st.SchemaTable)
}

func (st *SchemaTable) split() (schema string, table string) {
	if st.isQuotedTable() {
		return "", st.SchemaTable
	}
	i := strings.Index(st.SchemaTable, ".")
	if i < 0 { // if we have just a table...
		return "", st.SchemaTable
	}
	return st.SchemaTable[:i], st.SchemaTable[i+1:]
}

func (st *SchemaTable) GetTable() string {
	_, t := st.split()
	return t
}

func (st *SchemaTable) GetSchema() string {
	s, _ := st.split()
	return s
}

func (st *SchemaTable) String() string {
	return st.SchemaTable
}
