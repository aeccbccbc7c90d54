package models

import (
	"fmt"
	"strings"

	"github.com/relloyd/xlpipe/helper"
	"github.com/relloyd/xlpipe/rdbms"
)

// AssertionError reports a test that found failing rows.
type AssertionError struct {
	Model    string
	Column   string
	Test     string
	Failures int64
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("model %v failed test %v on column %v: %v failing rows", e.Model, e.Test, e.Column, e.Failures)
}

// assertionSql returns a query that counts the rows of relation violating test.
func assertionSql(t Target, p *Project, relation string, col string, test Test) (string, error) {
	switch test.Name {
	case TestUnique:
		return fmt.Sprintf("select count(*) from (select %[1]v from %[2]v where %[1]v is not null group by %[1]v having count(*) > 1) dups", col, relation), nil
	case TestNotNull:
		return fmt.Sprintf("select count(*) from %v where %v is null", relation, col), nil
	case TestAcceptedValues:
		asText, err := t.Dialect.Cast(col, rdbms.TypeVarchar)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("select count(*) from %v where %v is not null and %v not in (%v)",
			relation, col, asText, helper.QuoteSqlStrings(test.Values)), nil
	case TestLength:
		return fmt.Sprintf("select count(*) from %v where %v is not null and length(%v) <> %v", relation, col, col, test.Length), nil
	case TestNotContains:
		chars := test.Chars
		if test.Var != "" {
			chars = fmt.Sprint(p.Vars[test.Var])
		}
		conds := make([]string, 0, len(chars))
		for _, c := range chars {
			conds = append(conds, t.Dialect.Contains(col, string(c)))
		}
		return fmt.Sprintf("select count(*) from %v where %v is not null and (%v)", relation, col, strings.Join(conds, " or ")), nil
	case TestRelationships:
		parent, ok := p.Models[test.To]
		if !ok {
			return "", fmt.Errorf("relationships test refers to unknown model %q", test.To)
		}
		return fmt.Sprintf("select count(*) from %v child left join %v parent on child.%v = parent.%v where child.%v is not null and parent.%v is null",
			relation, t.Relation(parent), col, test.Field, col, test.Field), nil
	}
	return "", fmt.Errorf("unsupported test %q", test.Name)
}
