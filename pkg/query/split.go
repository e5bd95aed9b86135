package query

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/tablex/pkg/core"
)

// scanner walks SQL text one byte at a time, skipping over string literals,
// quoted identifiers and comments so that only top-level semicolons and
// keywords are seen. Lexical rules that differ between dialects (MySQL
// backslash escapes and # comments, PostgreSQL dollar quoting) follow d.
type scanner struct {
	d       core.Dialect
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
}

func newScanner(d core.Dialect, input string) *scanner {
	s := &scanner{d: d, input: input}
	s.readChar()
	return s
}

func (s *scanner) readChar() {
	if s.readPos >= len(s.input) {
		s.ch = 0
	} else {
		s.ch = s.input[s.readPos]
	}
	s.pos = s.readPos
	s.readPos++
}

func (s *scanner) peekChar() byte {
	if s.readPos >= len(s.input) {
		return 0
	}
	return s.input[s.readPos]
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.input)
}

// skipQuoted skips a literal delimited by quote. A doubled quote is an
// escaped quote.
func (s *scanner) skipQuoted(quote byte, backslash bool) {
	s.readChar() // opening quote
	for !s.eof() {
		switch {
		case backslash && s.ch == '\\':
			s.readChar()
		case s.ch == quote:
			if s.peekChar() != quote {
				s.readChar()
				return
			}
			s.readChar()
		}
		s.readChar()
	}
}

func (s *scanner) skipLineComment() {
	for !s.eof() && s.ch != '\n' {
		s.readChar()
	}
}

func (s *scanner) skipBlockComment() {
	s.readChar() // '/'
	s.readChar() // '*'
	for !s.eof() {
		if s.ch == '*' && s.peekChar() == '/' {
			s.readChar()
			s.readChar()
			return
		}
		s.readChar()
	}
}

// skipDollarQuoted skips a $tag$...$tag$ body. It reports false, consuming
// nothing, when the '$' does not open one ($1 parameters).
func (s *scanner) skipDollarQuoted() bool {
	end := strings.IndexByte(s.input[s.pos+1:], '$')
	if end < 0 {
		return false
	}
	tag := s.input[s.pos : s.pos+end+2]
	name := tag[1 : len(tag)-1]
	if name != "" && (name[0] >= '0' && name[0] <= '9') {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isWordChar(name[i]) {
			return false
		}
	}
	body := s.pos + len(tag)
	next := len(s.input)
	if closing := strings.Index(s.input[body:], tag); closing >= 0 {
		next = body + closing + len(tag)
	}
	for s.pos < next {
		s.readChar()
	}
	return true
}

func (s *scanner) atLineComment() bool {
	return s.ch == '-' && s.peekChar() == '-' || s.ch == '#' && s.d == core.MySQL
}

// skipComment skips a comment starting at the current position and reports
// whether there was one.
func (s *scanner) skipComment() bool {
	switch {
	case s.atLineComment():
		s.skipLineComment()
	case s.ch == '/' && s.peekChar() == '*':
		s.skipBlockComment()
	default:
		return false
	}
	return true
}

// skipNoise skips anything that cannot end a statement: literals, quoted
// identifiers and comments. It reports whether it consumed input.
func (s *scanner) skipNoise() bool {
	switch {
	case s.skipComment():
		return true
	case s.ch == '\'':
		// E'...' strings take backslash escapes on PostgreSQL.
		escaped := s.d == core.MySQL ||
			s.d == core.PostgreSQL && s.pos > 0 && (s.input[s.pos-1] == 'E' || s.input[s.pos-1] == 'e')
		s.skipQuoted('\'', escaped)
	case s.ch == '"':
		s.skipQuoted('"', s.d == core.MySQL)
	case s.ch == '`' && s.d == core.MySQL:
		s.skipQuoted('`', false)
	case s.ch == '$' && s.d == core.PostgreSQL:
		return s.skipDollarQuoted()
	default:
		return false
	}
	return true
}

// SplitStatements splits SQL text on top-level semicolons. Semicolons
// inside literals, quoted identifiers and comments do not split. The
// returned statements are trimmed, carry no trailing semicolon, and
// statements made only of whitespace and comments are dropped.
func SplitStatements(d core.Dialect, sqlText string) []string {
	var out []string
	s := newScanner(d, sqlText)
	start := 0
	flush := func(end int) {
		stmt := strings.TrimSpace(sqlText[start:end])
		if hasCode(d, stmt) {
			out = append(out, stmt)
		}
	}
	for !s.eof() {
		if s.skipNoise() {
			continue
		}
		if s.ch == ';' {
			flush(s.pos)
			start = s.pos + 1
		}
		s.readChar()
	}
	flush(len(sqlText))
	return out
}

// hasCode reports whether stmt has anything besides whitespace and comments.
func hasCode(d core.Dialect, stmt string) bool {
	s := newScanner(d, stmt)
	for !s.eof() {
		if s.skipComment() {
			continue
		}
		if !unicode.IsSpace(rune(s.ch)) {
			return true
		}
		s.readChar()
	}
	return false
}

// firstKeyword returns the upper-cased leading word of stmt, looking past
// comments and opening parentheses.
func firstKeyword(d core.Dialect, stmt string) string {
	s := newScanner(d, stmt)
	for !s.eof() {
		switch {
		case s.skipComment():
		case unicode.IsSpace(rune(s.ch)) || s.ch == '(':
			s.readChar()
		case isWordChar(s.ch):
			start := s.pos
			for !s.eof() && isWordChar(s.ch) {
				s.readChar()
			}
			return strings.ToUpper(stmt[start:s.pos])
		default:
			return ""
		}
	}
	return ""
}

func isWordChar(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

var rowKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"VALUES":   true,
	"SHOW":     true,
	"PRAGMA":   true,
	"EXPLAIN":  true,
	"DESCRIBE": true,
	"DESC":     true,
	"TABLE":    true,
}

// ReturnsRows reports whether a single statement produces a result set:
// queries by their leading keyword, and writes with a top-level RETURNING
// clause. A PRAGMA that assigns a value returns no rows.
func ReturnsRows(d core.Dialect, stmt string) bool {
	kw := firstKeyword(d, stmt)
	switch {
	case kw == "PRAGMA":
		return !hasTopLevel(d, stmt, func(s *scanner) bool { return s.ch == '=' })
	case kw == "WITH":
		if hasWord(d, stmt, "INSERT") || hasWord(d, stmt, "UPDATE") || hasWord(d, stmt, "DELETE") {
			return hasWord(d, stmt, "RETURNING")
		}
		return true
	case rowKeywords[kw]:
		return true
	}
	return hasWord(d, stmt, "RETURNING")
}

// hasWord reports whether word appears as a whole word outside literals
// and comments.
func hasWord(d core.Dialect, stmt, word string) bool {
	return hasTopLevel(d, stmt, func(s *scanner) bool {
		if s.pos > 0 && isWordChar(stmt[s.pos-1]) {
			return false
		}
		end := s.pos + len(word)
		if end > len(stmt) || !strings.EqualFold(stmt[s.pos:end], word) {
			return false
		}
		return end == len(stmt) || !isWordChar(stmt[end])
	})
}

func hasTopLevel(d core.Dialect, stmt string, match func(*scanner) bool) bool {
	s := newScanner(d, stmt)
	for !s.eof() {
		if s.skipNoise() {
			continue
		}
		if match(s) {
			return true
		}
		s.readChar()
	}
	return false
}
