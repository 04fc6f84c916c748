// Package audit reports which modules a submission imports.
package audit

import (
	"gradecheck/internal/engine/source"
	"gradecheck/internal/shared/util"
)

// ImportedModules returns the distinct module names imported at module level.
// Names are kept as written: "import os.path" yields "os.path" and never "os".
// A relative import contributes the text after its dots; "from . import x"
// contributes nothing.
func ImportedModules(unit *source.Unit) map[string]struct{} {
	out := make(map[string]struct{}, len(unit.Imports))
	for _, imp := range unit.Imports {
		if imp.Module == "" {
			continue
		}
		out[imp.Module] = struct{}{}
	}
	return out
}

// MissingImports returns the entries of required not imported by unit, sorted.
func MissingImports(unit *source.Unit, required []string) []string {
	imported := ImportedModules(unit)
	missing := make(map[string]bool)
	for _, name := range required {
		if _, ok := imported[name]; !ok {
			missing[name] = true
		}
	}
	return util.SortedStringKeys(missing)
}
