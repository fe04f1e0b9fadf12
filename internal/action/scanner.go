package action

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	errNoQuote      = errors.New("expected a double-quoted string")
	errUnterminated = errors.New("unterminated string")
	errNoObject     = errors.New("expected a JSON object")
	errUnbalanced   = errors.New("unbalanced braces")
)

// scanner walks a directive byte by byte.
type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte { return s.src[s.pos] }

// verb consumes [A-Z_]+.
func (s *scanner) verb() string {
	start := s.pos
	for !s.eof() {
		c := s.peek()
		if (c >= 'A' && c <= 'Z') || c == '_' {
			s.pos++
			continue
		}
		break
	}
	return s.src[start:s.pos]
}

func (s *scanner) skipSpace() {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

// quoted consumes a double-quoted string that ends at the next quote. Text is
// taken verbatim.
func (s *scanner) quoted() (string, error) {
	if s.eof() || s.peek() != '"' {
		return "", errNoQuote
	}
	end := strings.IndexByte(s.src[s.pos+1:], '"')
	if end < 0 {
		return "", errUnterminated
	}
	v := s.src[s.pos+1 : s.pos+1+end]
	s.pos += end + 2
	return v, nil
}

// last consumes a final double-quoted argument that runs to the last quote of
// the directive, so the value may itself contain quotes. Unless multiline is
// set the value stops at the end of the line. Text is taken verbatim.
func (s *scanner) last(multiline bool) (string, error) {
	if s.eof() || s.peek() != '"' {
		return "", errNoQuote
	}
	rest := s.src[s.pos+1:]
	if !multiline {
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
	}
	end := strings.LastIndexByte(rest, '"')
	if end < 0 {
		return "", errUnterminated
	}
	s.pos += end + 2
	return rest[:end], nil
}

// object consumes a balanced {...} span and decodes it as JSON.
func (s *scanner) object() (map[string]any, error) {
	if s.eof() || s.peek() != '{' {
		return nil, errNoObject
	}
	start := s.pos
	depth := 0
	inString := false
	for !s.eof() {
		c := s.peek()
		s.pos++
		if inString {
			switch c {
			case '\\':
				if !s.eof() {
					s.pos++
				}
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var obj map[string]any
				if err := json.Unmarshal([]byte(s.src[start:s.pos]), &obj); err != nil {
					return nil, err
				}
				return obj, nil
			}
		}
	}
	return nil, errUnbalanced
}
