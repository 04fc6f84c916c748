package clean

import (
	"strings"
)

// LogicalLines splits Python source into logical lines.
//
// Physical lines are joined while brackets are open, after a trailing
// backslash, and inside a triple-quoted string that started after other code on
// the same line. A triple-quoted string that begins its line keeps its physical
// lines, so docstrings stay visible to the docstring scanner. Comments on joined
// segments are dropped; a comment on an unjoined line is kept verbatim.
func LogicalLines(text string) []string {
	s := &splitter{}
	s.run(strings.ReplaceAll(text, "\r\n", "\n"))
	return s.out
}

type splitter struct {
	out []string

	pieces []string // joined segments of the current logical line
	seg    strings.Builder

	depth     int
	quote     string // open string delimiter, empty outside strings
	joinQuote bool   // the open triple-quoted string is part of an expression
	comment   int    // offset of '#' in seg, -1 when none
}

func (s *splitter) run(text string) {
	s.comment = -1
	for i := 0; i < len(text); i++ {
		c := text[i]

		if s.quote != "" {
			switch {
			case c == '\\' && i+1 < len(text) && text[i+1] == '\n' && len(s.quote) == 1:
				// Escaped newline continues a single-quoted string.
				i++
				s.join(true)
				continue
			case c == '\\' && i+1 < len(text) && text[i+1] != '\n':
				s.seg.WriteByte(c)
				s.seg.WriteByte(text[i+1])
				i++
				continue
			case strings.HasPrefix(text[i:], s.quote):
				s.seg.WriteString(s.quote)
				i += len(s.quote) - 1
				s.quote = ""
				s.joinQuote = false
				continue
			case c == '\n':
				switch {
				case len(s.quote) == 1:
					// Unterminated single-quoted string: give up on it at the line end.
					s.quote = ""
					s.newline()
				case s.joinQuote || s.depth > 0:
					s.join(false)
				default:
					s.flush()
				}
				continue
			}
			s.seg.WriteByte(c)
			continue
		}

		switch c {
		case '\n':
			s.newline()
			continue
		case '#':
			s.comment = s.seg.Len()
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text) - i
			}
			s.seg.WriteString(text[i : i+end])
			i += end - 1
			continue
		case '"', '\'':
			q := string(c)
			if strings.HasPrefix(text[i:], strings.Repeat(q, 3)) {
				q = strings.Repeat(q, 3)
				s.joinQuote = !s.startsLine()
			}
			s.quote = q
			s.seg.WriteString(q)
			i += len(q) - 1
			continue
		case '(', '[', '{':
			s.depth++
		case ')', ']', '}':
			if s.depth > 0 {
				s.depth--
			}
		}
		s.seg.WriteByte(c)
	}
	if s.seg.Len() > 0 || len(s.pieces) > 0 {
		s.flush()
	}
}

// startsLine reports whether nothing but indentation and string prefix letters
// precede the current position of the logical line.
func (s *splitter) startsLine() bool {
	if len(s.pieces) > 0 {
		return false
	}
	prefix := strings.TrimSpace(s.seg.String())
	return len(prefix) <= 2 && strings.Trim(prefix, "rRuUbBfF") == ""
}

func (s *splitter) newline() {
	code := s.code()
	switch {
	case s.depth > 0:
		s.join(false)
	case strings.HasSuffix(code, "\\"):
		s.seg.Reset()
		s.seg.WriteString(strings.TrimSuffix(code, "\\"))
		s.comment = -1
		s.join(false)
	default:
		s.flush()
	}
}

// code returns the current segment without its trailing comment.
func (s *splitter) code() string {
	seg := s.seg.String()
	if s.comment >= 0 {
		seg = seg[:s.comment]
	}
	return strings.TrimRight(seg, " \t")
}

// join moves the current segment into the logical line. Inside a string the
// segment is kept whole; otherwise its comment is dropped.
func (s *splitter) join(inString bool) {
	piece := s.seg.String()
	if !inString && s.quote == "" {
		piece = s.code()
	}
	s.pieces = append(s.pieces, piece)
	s.seg.Reset()
	s.comment = -1
}

func (s *splitter) flush() {
	s.pieces = append(s.pieces, s.seg.String())
	s.seg.Reset()
	s.comment = -1

	var b strings.Builder
	for i, piece := range s.pieces {
		if i == 0 {
			b.WriteString(strings.TrimRight(piece, " \t"))
			continue
		}
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		if needsSpace(b.String(), piece) {
			b.WriteByte(' ')
		}
		b.WriteString(piece)
	}
	s.out = append(s.out, b.String())
	s.pieces = s.pieces[:0]
}

func needsSpace(prev, next string) bool {
	if prev == "" || strings.TrimSpace(prev) == "" {
		return false
	}
	switch prev[len(prev)-1] {
	case '(', '[', '{', ' ':
		return false
	}
	switch next[0] {
	case ')', ']', '}', ',':
		return false
	}
	return true
}
