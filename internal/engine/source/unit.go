package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"gradecheck/internal/core/errors"
	"gradecheck/internal/engine/parser"
)

// Unit is one loaded submission file.
type Unit struct {
	Path string
	// ID is the load identifier: the file name without its ".py" suffix.
	ID          string
	Text        string
	Imports     []parser.Import
	Definitions []*Definition
}

// Definition is a top-level def or class. It reads from its unit and never
// modifies it.
type Definition struct {
	parser.Definition
	unit *Unit
}

// Unit returns the owning unit.
func (d *Definition) Unit() *Unit {
	return d.unit
}

// Source returns the exact text of the definition, from the def keyword to the
// end of its body.
func (d *Definition) Source() string {
	return d.unit.Text[d.StartByte:d.EndByte]
}

// Qualified returns "<id>.<name>".
func (d *Definition) Qualified() string {
	return d.unit.ID + "." + d.Name
}

func (d *Definition) IsFunction() bool {
	return d.Kind == parser.KindFunction
}

// Lookup returns the definition declared with name directly in this unit.
func (u *Unit) Lookup(name string) (*Definition, error) {
	for _, def := range u.Definitions {
		if def.Name == name {
			return def, nil
		}
	}
	de := &errors.DomainError{
		Code:    errors.CodeMissingAttribute,
		Message: fmt.Sprintf("module %q has no attribute %q", u.ID, name),
	}
	return nil, de.WithContext(errors.CtxPath, u.Path).WithContext(errors.CtxSymbol, name)
}

// Has reports whether name is declared in this unit.
func (u *Unit) Has(name string) bool {
	_, err := u.Lookup(name)
	return err == nil
}

// Functions returns the def statements in declaration order.
func (u *Unit) Functions() []*Definition {
	out := make([]*Definition, 0, len(u.Definitions))
	for _, def := range u.Definitions {
		if def.IsFunction() {
			out = append(out, def)
		}
	}
	return out
}

// loadID strips the directory and the conventional ".py" suffix.
func loadID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), pySuffix)
}

func newUnit(path string, file *parser.File) *Unit {
	u := &Unit{
		Path:    path,
		ID:      loadID(path),
		Text:    string(file.Source),
		Imports: file.Imports,
	}
	u.Definitions = make([]*Definition, 0, len(file.Definitions))
	for _, def := range file.Definitions {
		u.Definitions = append(u.Definitions, &Definition{Definition: def, unit: u})
	}
	return u
}
