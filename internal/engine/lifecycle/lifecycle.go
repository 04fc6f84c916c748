// Package lifecycle pairs explicit open() assignments with later close() calls.
// Files acquired in a with block are never tracked.
package lifecycle

import (
	"sort"

	"gradecheck/internal/engine/clean"
	"gradecheck/internal/engine/match"
	"gradecheck/internal/engine/source"
)

// Handle is a variable bound to the result of open().
type Handle struct {
	Name string
	// Line is the position of the open call in the cleaned lines of Definition.
	Line       int
	Definition *source.Definition
}

// position orders lines across definitions: definition index first, then line.
type position struct {
	def  int
	line int
}

func (p position) before(q position) bool {
	if p.def != q.def {
		return p.def < q.def
	}
	return p.line < q.line
}

type closeCall struct {
	name string
	at   position
}

// Unclosed returns the handles opened in def that no later line of def closes.
func Unclosed(def *source.Definition) []Handle {
	handles, closes := scan(def)
	return unresolved(handles, closes)
}

// AllClosed reports whether every file opened in def is closed later in def.
func AllClosed(def *source.Definition) bool {
	return len(Unclosed(def)) == 0
}

// UnclosedInUnit is Unclosed across every function of unit. A handle opened in
// one function may be closed by a later line of any function declared after it.
func UnclosedInUnit(unit *source.Unit) []Handle {
	var handles []Handle
	var closes []closeCall
	for _, def := range unit.Functions() {
		h, c := scan(def)
		handles = append(handles, h...)
		closes = append(closes, c...)
	}
	return unresolved(handles, closes)
}

func AllClosedInUnit(unit *source.Unit) bool {
	return len(UnclosedInUnit(unit)) == 0
}

func scan(def *source.Definition) ([]Handle, []closeCall) {
	lines := clean.Clean(def)

	var handles []Handle
	for _, m := range match.FindAllSubmatch(match.OpenFile, lines) {
		handles = append(handles, Handle{Name: m.Groups[1], Line: m.Line, Definition: def})
	}
	var closes []closeCall
	for _, m := range match.FindAllSubmatch(match.CloseFile, lines) {
		closes = append(closes, closeCall{name: m.Groups[1], at: position{def: def.Index, line: m.Line}})
	}
	return handles, closes
}

func unresolved(handles []Handle, closes []closeCall) []Handle {
	var out []Handle
	for _, h := range handles {
		opened := position{def: h.Definition.Index, line: h.Line}
		closed := false
		for _, c := range closes {
			if c.name == h.Name && opened.before(c.at) {
				closed = true
				break
			}
		}
		if !closed {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a := position{def: out[i].Definition.Index, line: out[i].Line}
		b := position{def: out[j].Definition.Index, line: out[j].Line}
		return a.before(b)
	})
	return out
}
