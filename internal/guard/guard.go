// Package guard classifies SQL statements that must not run without an
// explicit confirmation.
package guard

import (
	"fmt"
	"regexp"
	"strings"
)

// Danger categories.
const (
	DropDatabase       = "drop_database"
	DropSchema         = "drop_schema"
	DropTable          = "drop_table"
	DropColumn         = "drop_column"
	DropConstraint     = "drop_constraint"
	Truncate           = "truncate"
	DeleteWithoutWhere = "delete_without_where"
	UpdateWithoutWhere = "update_without_where"
)

// Classification describes why a statement is dangerous.
type Classification struct {
	DangerousType string `json:"dangerous_type"`
	Message       string `json:"message"`
	Target        string `json:"target,omitempty"`
}

var (
	dropObject      = regexp.MustCompile(`(?i)^DROP\s+(DATABASE|SCHEMA|TABLE)\s+(?:IF\s+EXISTS\s+)?(.+?)(?:\s+(?:CASCADE|RESTRICT)(?:\s+CONSTRAINTS)?)?$`)
	alterTable      = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+(?:IF\s+EXISTS\s+)?(?:ONLY\s+)?(\S+)\s+(.*)$`)
	alterDrop       = regexp.MustCompile(`(?i)(?:^|,)\s*DROP\s+(\S+)(?:\s+(\S+))?`)
	truncatePattern = regexp.MustCompile(`(?i)^TRUNCATE\s+(?:TABLE\s+)?(?:ONLY\s+)?(\S+)`)
	deletePattern   = regexp.MustCompile(`(?i)^DELETE\s+(?:FROM\s+)?(\S+)`)
	updatePattern   = regexp.MustCompile(`(?i)^UPDATE\s+(\S+)`)
	wherePattern    = regexp.MustCompile(`(?i)\bWHERE\b`)
)

// Classify reports whether sql contains a statement that needs confirmation.
// Statements are split on semicolons outside quotes and comments, and the
// first dangerous one wins. Keywords are only recognised outside quoted
// identifiers and literals. Because engines quote and comment differently,
// sql is read once with standard rules and once with MySQL rules; it is
// dangerous if either reading finds a dangerous statement. Dollar-quoted
// bodies are classified as SQL of their own.
func Classify(sql string) (Classification, bool) {
	for _, mode := range []lexMode{standardMode, mysqlMode} {
		stmts, bodies := scan(sql, mode)
		for _, st := range stmts {
			if c, ok := classifyStatement(st); ok {
				return c, true
			}
		}
		for _, body := range bodies {
			if c, ok := Classify(body); ok {
				return c, true
			}
		}
	}
	return Classification{}, false
}

// submatches runs re against the masked text and returns the groups cut
// from the raw text, or nil when there is no match.
func submatches(re *regexp.Regexp, st statement) []string {
	idx := re.FindStringSubmatchIndex(st.masked)
	if idx == nil {
		return nil
	}
	out := make([]string, len(idx)/2)
	for g := range out {
		if idx[2*g] >= 0 {
			out[g] = st.raw[idx[2*g]:idx[2*g+1]]
		}
	}
	return out
}

func classifyStatement(st statement) (Classification, bool) {
	if m := submatches(dropObject, st); m != nil {
		target := m[2]
		switch strings.ToUpper(m[1]) {
		case "DATABASE":
			return Classification{DropDatabase, fmt.Sprintf("This will drop database %s and everything in it.", target), target}, true
		case "SCHEMA":
			return Classification{DropSchema, fmt.Sprintf("This will drop schema %s and every object it contains.", target), target}, true
		default:
			return Classification{DropTable, fmt.Sprintf("This will permanently drop table %s and all of its rows.", target), target}, true
		}
	}

	if idx := alterTable.FindStringSubmatchIndex(st.masked); idx != nil {
		table := st.raw[idx[2]:idx[3]]
		actions := statement{raw: st.raw[idx[4]:idx[5]], masked: st.masked[idx[4]:idx[5]]}
		return classifyAlter(table, actions)
	}

	if m := submatches(truncatePattern, st); m != nil {
		return Classification{Truncate, fmt.Sprintf("This will delete every row in %s.", m[1]), m[1]}, true
	}

	hasWhere := wherePattern.MatchString(st.masked)

	if m := submatches(deletePattern, st); m != nil && !hasWhere {
		return Classification{DeleteWithoutWhere, fmt.Sprintf("DELETE without a WHERE clause removes every row in %s.", m[1]), m[1]}, true
	}

	if m := submatches(updatePattern, st); m != nil && !hasWhere {
		return Classification{UpdateWithoutWhere, fmt.Sprintf("UPDATE without a WHERE clause changes every row in %s.", m[1]), m[1]}, true
	}

	return Classification{}, false
}

func classifyAlter(table string, actions statement) (Classification, bool) {
	for _, idx := range alterDrop.FindAllStringSubmatchIndex(actions.masked, -1) {
		word := actions.raw[idx[2]:idx[3]]
		next := ""
		if idx[4] >= 0 {
			next = actions.raw[idx[4]:idx[5]]
		}
		switch strings.ToUpper(word) {
		case "CONSTRAINT", "FOREIGN", "PRIMARY", "CHECK":
			return Classification{DropConstraint, fmt.Sprintf("This will drop a constraint on %s.", table), table}, true
		case "INDEX", "KEY", "PARTITION", "DEFAULT", "NOT":
			continue
		case "COLUMN":
			if strings.EqualFold(next, "IF") {
				next = ""
			}
			return dropColumn(table, next), true
		default:
			// MySQL allows DROP <column>, Oracle DROP (<columns>).
			return dropColumn(table, word), true
		}
	}
	return Classification{}, false
}

func dropColumn(table, column string) Classification {
	msg := fmt.Sprintf("This will drop a column from %s and discard its data.", table)
	if column != "" {
		msg = fmt.Sprintf("This will drop column %s from %s and discard its data.", column, table)
	}
	return Classification{DropColumn, msg, table}
}
