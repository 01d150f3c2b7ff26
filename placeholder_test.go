package sqlhelper

import "testing"

func TestCountQuestionParams(t *testing.T) {
	tests := []struct {
		sql  string
		want int
	}{
		{"SELECT 1", 0},
		{"SELECT * FROM t WHERE a = ?", 1},
		{"INSERT INTO t (a, b, c) VALUES (?, ?, ?)", 3},
		{"SELECT '?' FROM t WHERE a = ?", 1},
		{`SELECT "?", ? FROM t`, 1},
		{"SELECT `a?b` FROM t WHERE c = ?", 1},
		{`SELECT 'it\'s ?' , ?`, 1},
		{"SELECT 'it''s ?', ?", 1},
		{"SELECT ? -- and ?\n, ?", 2},
		{"SELECT ? # mysql comment ?\n", 1},
		{"SELECT /* ? */ ?", 1},
		{"SELECT /* unterminated ?", 0},
		{"SELECT 'unterminated ?", 0},
		{"SELECT $$ ? $$", 1},
		{"", 0},
	}
	for _, tt := range tests {
		if got := CountQuestionParams(tt.sql); got != tt.want {
			t.Errorf("CountQuestionParams(%q) = %d, want %d", tt.sql, got, tt.want)
		}
	}
}

func TestCountDollarParams(t *testing.T) {
	tests := []struct {
		sql  string
		want int
	}{
		{"SELECT 1", 0},
		{"SELECT $1", 1},
		{"SELECT $2, $1, $2", 2},
		{"UPDATE t SET a = $1 WHERE b = $12", 12},
		{"SELECT '$3', $1", 1},
		{"SELECT $1 -- $9", 1},
		{`SELECT 'a\', $2`, 2},
		{"SELECT $$", 0},
		{"SELECT $9999999999999", MaxParams + 1},
		{"SELECT $99999999999999999999999999", MaxParams + 1},
		{"SELECT $65535", MaxParams},
		{"CREATE FUNCTION inc(int) RETURNS int AS $$ SELECT $1 + 1 $$ LANGUAGE sql", 0},
		{"CREATE FUNCTION f() RETURNS text AS $fn$ SELECT $2 || '$$' $fn$ LANGUAGE sql", 0},
		{"SELECT $body$ $1 $body$, $3", 3},
		{"DO $$ unterminated $1", 0},
		{"SELECT a$b$ FROM t WHERE x = $1", 1},
		{"SELECT $1$", 1},
	}
	for _, tt := range tests {
		if got := CountDollarParams(tt.sql); got != tt.want {
			t.Errorf("CountDollarParams(%q) = %d, want %d", tt.sql, got, tt.want)
		}
	}
}
