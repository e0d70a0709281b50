package guard

import "strings"

// lexMode selects how quotes and comments are recognised. Engines disagree
// (backslash escapes, # comments, dollar quoting), so statements are scanned
// under each mode and the strictest reading wins.
type lexMode struct {
	backslashEscapes bool // 'it\'s'
	hashComments     bool // # to end of line
	dashNeedsSpace   bool // "-- " starts a comment, "--x" does not
	backticks        bool // `identifier`
	dollarQuotes     bool // $tag$ ... $tag$
}

var (
	standardMode = lexMode{dollarQuotes: true}
	mysqlMode    = lexMode{backslashEscapes: true, hashComments: true, dashNeedsSpace: true, backticks: true}
)

// statement is one semicolon-separated statement with comments removed and
// whitespace outside quotes collapsed. masked has the same length as raw with
// the inside of every quoted span replaced by '_', so keyword patterns never
// match quoted text while byte offsets still index into raw.
type statement struct {
	raw    string
	masked string
}

// scan splits sql into statements. Dollar-quoted bodies are returned
// separately so they can be classified on their own.
func scan(sql string, mode lexMode) ([]statement, []string) {
	var (
		stmts        []statement
		bodies       []string
		raw, masked  strings.Builder
		pendingSpace bool
	)

	emit := func(r, m string) {
		if pendingSpace && raw.Len() > 0 {
			raw.WriteByte(' ')
			masked.WriteByte(' ')
		}
		pendingSpace = false
		raw.WriteString(r)
		masked.WriteString(m)
	}
	flush := func() {
		if raw.Len() > 0 {
			stmts = append(stmts, statement{raw: raw.String(), masked: masked.String()})
		}
		raw.Reset()
		masked.Reset()
		pendingSpace = false
	}

	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case isSpace(c):
			pendingSpace = true
			i++
		case c == ';':
			flush()
			i++
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-' &&
			(!mode.dashNeedsSpace || i+2 >= len(sql) || isSpace(sql[i+2])):
			i = lineEnd(sql, i)
			pendingSpace = true
		case c == '#' && mode.hashComments:
			i = lineEnd(sql, i)
			pendingSpace = true
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			if end := strings.Index(sql[i+2:], "*/"); end >= 0 {
				i += end + 4
			} else {
				i = len(sql)
			}
			pendingSpace = true
		case c == '\'' || c == '"' || (c == '`' && mode.backticks):
			j, closed := closeQuote(sql, i, c, mode.backslashEscapes && c != '`')
			emit(sql[i:j], maskSpan(sql[i:j], c, closed))
			i = j
		case c == '$' && mode.dollarQuotes && (i == 0 || !isIdent(sql[i-1])):
			tag, ok := dollarTag(sql, i)
			if !ok {
				emit("$", "$")
				i++
				continue
			}
			start := i + len(tag)
			end := strings.Index(sql[start:], tag)
			j := len(sql)
			if end >= 0 {
				bodies = append(bodies, sql[start:start+end])
				j = start + end + len(tag)
			} else {
				bodies = append(bodies, sql[start:])
			}
			m := []byte(strings.Repeat("_", j-i))
			m[0] = '$'
			if end >= 0 {
				m[len(m)-1] = '$'
			}
			emit(sql[i:j], string(m))
			i = j
		default:
			emit(sql[i:i+1], sql[i:i+1])
			i++
		}
	}
	flush()
	return stmts, bodies
}

// closeQuote returns the offset just past the quote closing the span opened
// at i, or len(s) when it is never closed. A doubled quote is an escape.
func closeQuote(s string, i int, q byte, backslash bool) (int, bool) {
	for j := i + 1; j < len(s); j++ {
		switch {
		case backslash && s[j] == '\\':
			j++
		case s[j] == q:
			if j+1 < len(s) && s[j+1] == q {
				j++
				continue
			}
			return j + 1, true
		}
	}
	return len(s), false
}

func maskSpan(span string, q byte, closed bool) string {
	m := []byte(strings.Repeat("_", len(span)))
	m[0] = q
	if closed {
		m[len(m)-1] = q
	}
	return string(m)
}

// dollarTag returns "$tag$" starting at i, if there is one.
func dollarTag(s string, i int) (string, bool) {
	j := i + 1
	for j < len(s) && (isIdent(s[j]) && !(j == i+1 && s[j] >= '0' && s[j] <= '9')) {
		j++
	}
	if j < len(s) && s[j] == '$' {
		return s[i : j+1], true
	}
	return "", false
}

func lineEnd(s string, i int) int {
	if n := strings.IndexByte(s[i:], '\n'); n >= 0 {
		return i + n + 1
	}
	return len(s)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}
