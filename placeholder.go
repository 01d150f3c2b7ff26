package sqlhelper

import "strings"

// MaxParams is the largest placeholder count a statement may carry.
// It matches the PostgreSQL wire protocol limit.
const MaxParams = 65535

// CountQuestionParams counts '?' placeholders outside quoted text and
// comments. Backslash escapes inside quotes are honored, as MySQL does.
func CountQuestionParams(sql string) int {
	n := 0
	scanCode(sql, true, func(i int) int {
		if sql[i] == '?' {
			n++
		}
		return i + 1
	})
	return n
}

// CountDollarParams returns the highest $n placeholder outside quoted
// text, dollar-quoted bodies and comments. A number above MaxParams is
// reported as MaxParams+1.
func CountDollarParams(sql string) int {
	highest := 0
	scanCode(sql, false, func(i int) int {
		if sql[i] != '$' {
			return i + 1
		}
		j, v := i+1, 0
		for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
			if v <= MaxParams {
				v = v*10 + int(sql[j]-'0')
			}
			j++
		}
		v = min(v, MaxParams+1)
		if v > highest {
			highest = v
		}
		return j
	})
	return highest
}

// scanCode calls visit for every byte of sql that is not inside a quoted
// literal or a comment. visit returns the index to continue from.
// backslash selects MySQL lexing; otherwise PostgreSQL dollar quoting
// ($$...$$, $tag$...$tag$) is recognized.
func scanCode(sql string, backslash bool, visit func(i int) int) {
	for i := 0; i < len(sql); {
		var tag string
		if !backslash && sql[i] == '$' {
			tag = dollarTag(sql, i)
		}
		switch c := sql[i]; {
		case tag != "":
			i = skipDollarQuoted(sql, i, tag)
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(sql, i, backslash)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-', c == '#' && backslash:
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i += 2
			for i+1 < len(sql) && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			i += 2
		default:
			i = visit(i)
		}
	}
}

// skipQuoted returns the index just past the literal opened at sql[start].
// A doubled quote closes and reopens the literal, which needs no special case.
func skipQuoted(sql string, start int, backslash bool) int {
	q := sql[start]
	for i := start + 1; i < len(sql); i++ {
		switch sql[i] {
		case '\\':
			if backslash && q != '`' {
				i++
			}
		case q:
			return i + 1
		}
	}
	return len(sql)
}

// dollarTag returns the opening "$tag$" at sql[start], or "" when the
// dollar sign there does not open a dollar-quoted string.
func dollarTag(sql string, start int) string {
	if start > 0 && isIdentByte(sql[start-1]) {
		return ""
	}
	j := start + 1
	for j < len(sql) && (isIdentByte(sql[j]) && (j > start+1 || !isDigit(sql[j]))) {
		j++
	}
	if j < len(sql) && sql[j] == '$' {
		return sql[start : j+1]
	}
	return ""
}

// skipDollarQuoted returns the index just past the closing tag.
func skipDollarQuoted(sql string, start int, tag string) int {
	body := start + len(tag)
	end := strings.Index(sql[body:], tag)
	if end < 0 {
		return len(sql)
	}
	return body + end + len(tag)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentByte(c byte) bool {
	return c == '_' || isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'z') || c >= 0x80
}
