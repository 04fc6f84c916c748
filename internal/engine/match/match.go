// Package match searches the cleaned lines of a definition.
//
// The named patterns are line-oriented heuristics. They see the cleaned text,
// not the syntax tree, so a pattern can match inside a string literal on a code
// line. ContainsKind offers the parse-tree view for callers that need it.
package match

import (
	"fmt"
	"regexp"

	"gradecheck/internal/core/errors"
	"gradecheck/internal/engine/clean"
	"gradecheck/internal/engine/source"
)

// Pattern is satisfied by *regexp.Regexp.
type Pattern interface {
	MatchString(s string) bool
}

// Match is a cleaned line that matched a pattern.
type Match struct {
	Text string
	Line int
}

// Compile compiles expr, reporting a PatternError for malformed input.
func Compile(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		de := &errors.DomainError{Code: errors.CodePattern, Message: fmt.Sprintf("invalid pattern %q", expr), Err: err}
		return nil, de
	}
	return re, nil
}

// MustCompile is Compile for patterns fixed at build time. It panics on error.
func MustCompile(expr string) *regexp.Regexp {
	re, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return re
}

// Matches reports whether any cleaned line of def contains p.
func Matches(p Pattern, def *source.Definition) bool {
	return MatchesLines(p, clean.Clean(def))
}

// FindAll returns every cleaned line of def containing p, in order.
func FindAll(p Pattern, def *source.Definition) []Match {
	return FindAllLines(p, clean.Clean(def))
}

func MatchesLines(p Pattern, lines []clean.Line) bool {
	for _, line := range lines {
		if p.MatchString(line.Text) {
			return true
		}
	}
	return false
}

func FindAllLines(p Pattern, lines []clean.Line) []Match {
	var out []Match
	for _, line := range lines {
		if p.MatchString(line.Text) {
			out = append(out, Match{Text: line.Text, Line: line.Number})
		}
	}
	return out
}

// Submatch is a matched line with the capture groups of the first match.
type Submatch struct {
	Match
	Groups []string
}

// FindAllSubmatch is FindAll for callers that need capture groups.
func FindAllSubmatch(re *regexp.Regexp, lines []clean.Line) []Submatch {
	var out []Submatch
	for _, line := range lines {
		if groups := re.FindStringSubmatch(line.Text); groups != nil {
			out = append(out, Submatch{Match: Match{Text: line.Text, Line: line.Number}, Groups: groups})
		}
	}
	return out
}

// ContainsKind reports whether the body of def has a syntax node of any of kinds,
// e.g. "for_statement" or "lambda".
func ContainsKind(def *source.Definition, kinds ...string) bool {
	for _, kind := range kinds {
		if def.BodyKinds[kind] > 0 {
			return true
		}
	}
	return false
}
