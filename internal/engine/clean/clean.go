// Package clean reconstructs the executable lines of a definition: logical
// lines with comments, blank lines and docstrings removed.
package clean

import (
	"log/slog"
	"regexp"
	"strings"

	"gradecheck/internal/engine/source"
)

var (
	commentRegex = regexp.MustCompile(`^\s*#`)
	// A line holding nothing but one string literal, optionally followed by a comment.
	oneLineStringRegex = regexp.MustCompile(`^[rRuUbBfF]{0,2}(?:"""[\s\S]*"""|'''[\s\S]*'''|"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*')\s*(?:#.*)?$`)
)

// Line is one cleaned logical line. Number is its 1-based position in the
// cleaned sequence, not a file line number.
type Line struct {
	Text   string
	Number int
}

// Body is the result of scanning a definition.
type Body struct {
	Lines []Line
	// OpenDelimiter is set when a multi-line docstring was still open at the end
	// of the body. Every line after it was discarded.
	OpenDelimiter string
}

// Clean returns the cleaned lines of def. The header line is always first.
func Clean(def *source.Definition) []Line {
	body := Scan(def.Source())
	if body.OpenDelimiter != "" {
		slog.Debug("docstring never closed", "path", def.Unit().Path, "function", def.Name, "delimiter", body.OpenDelimiter)
	}
	return body.Lines
}

// Scan cleans the source text of a single definition.
func Scan(text string) Body {
	var body Body
	emit := func(line string) {
		body.Lines = append(body.Lines, Line{Text: line, Number: len(body.Lines) + 1})
	}

	first := true
	for _, line := range LogicalLines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if first {
			emit(line)
			first = false
			continue
		}

		if commentRegex.MatchString(line) || oneLineStringRegex.MatchString(trimmed) {
			continue
		}

		if body.OpenDelimiter == "" {
			if delim := openingDelimiter(trimmed); delim != "" {
				body.OpenDelimiter = delim
				continue
			}
			emit(line)
			continue
		}

		if strings.HasSuffix(trimmed, body.OpenDelimiter) {
			body.OpenDelimiter = ""
		}
	}
	return body
}

// openingDelimiter returns the triple quote that trimmed opens without closing.
func openingDelimiter(trimmed string) string {
	rest := strings.TrimLeft(trimmed, "rRuUbBfF")
	if len(trimmed)-len(rest) > 2 {
		return ""
	}
	for _, delim := range []string{`"""`, `'''`} {
		if strings.HasPrefix(rest, delim) && !strings.Contains(rest[len(delim):], delim) {
			return delim
		}
	}
	return ""
}

// Texts returns the text of each line.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line.Text
	}
	return out
}
