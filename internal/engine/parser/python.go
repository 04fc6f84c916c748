package parser

import (
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// PythonExtractor records top-level definitions and module-level imports.
// Statements inside function and class bodies never contribute imports.
type PythonExtractor struct{}

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		Language: "python",
		Source:   source,
		ParsedAt: time.Now(),
	}

	ctx := &ExtractionContext{Source: source, File: file}
	if errNode := firstError(root); errNode != nil {
		loc := ctx.Location(errNode)
		file.SyntaxError = &loc
	}

	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_statement":        e.extractImport,
		"import_from_statement":   e.extractFromImport,
		"future_import_statement": e.extractFutureImport,
		"function_definition":     e.extractDefinition,
		"class_definition":        e.extractDefinition,
	})
	engine.Walk(ctx, root)

	return file, nil
}

func (e *PythonExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "dotted_name", "identifier":
			ctx.File.Imports = append(ctx.File.Imports, Import{
				Module:   ctx.Text(child),
				Location: ctx.Location(child),
			})
		case "aliased_import":
			module := ctx.Text(child.ChildByFieldName("name"))
			alias := ctx.Text(child.ChildByFieldName("alias"))
			ctx.File.Imports = append(ctx.File.Imports, Import{
				Module:   module,
				Alias:    alias,
				Location: ctx.Location(child),
			})
		}
	}
	return true
}

func (e *PythonExtractor) extractFromImport(ctx *ExtractionContext, node *sitter.Node) bool {
	var module string
	var items []string
	isRelative := false
	seenImport := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "import":
			seenImport = true
		case "relative_import":
			isRelative = true
			module = strings.TrimLeft(ctx.Text(child), ".")
		case "dotted_name", "identifier":
			if !seenImport {
				module = ctx.Text(child)
				continue
			}
			items = append(items, ctx.Text(child))
		case "aliased_import":
			items = append(items, ctx.Text(child.ChildByFieldName("name")))
		case "wildcard_import":
			items = append(items, "*")
		}
	}

	ctx.File.Imports = append(ctx.File.Imports, Import{
		Module:     strings.TrimSpace(module),
		Items:      items,
		IsRelative: isRelative,
		Location:   ctx.Location(node),
	})
	return true
}

func (e *PythonExtractor) extractFutureImport(ctx *ExtractionContext, node *sitter.Node) bool {
	var items []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name", "identifier":
			items = append(items, ctx.Text(child))
		case "aliased_import":
			items = append(items, ctx.Text(child.ChildByFieldName("name")))
		}
	}
	ctx.File.Imports = append(ctx.File.Imports, Import{
		Module:   "__future__",
		Items:    items,
		Location: ctx.Location(node),
	})
	return true
}

// extractDefinition records top-level defs and classes. It always stops the
// walk so nothing below a definition is treated as module level.
func (e *PythonExtractor) extractDefinition(ctx *ExtractionContext, node *sitter.Node) bool {
	if !isTopLevel(node) {
		return true
	}
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" {
		return true
	}

	def := Definition{
		Name:       name,
		Kind:       KindFunction,
		Index:      len(ctx.File.Definitions),
		StartByte:  int(node.StartByte()),
		EndByte:    int(node.EndByte()),
		StartLine:  int(node.StartPosition().Row) + 1,
		EndLine:    int(node.EndPosition().Row) + 1,
		Decorators: e.pythonDecorators(ctx, node),
		BodyKinds:  make(map[string]int),
	}
	if node.Kind() == "class_definition" {
		def.Kind = KindClass
	} else {
		def.Async = ctx.ChildText(node, "async") != ""
		def.Parameters = e.parameterNames(ctx, node.ChildByFieldName("parameters"))
	}

	body := node.ChildByFieldName("body")
	def.Docstring, def.DocstringQuote = e.docstring(ctx, body)
	e.collectBody(ctx, body, &def)

	ctx.File.Definitions = append(ctx.File.Definitions, def)
	return true
}

func isTopLevel(node *sitter.Node) bool {
	parent := node.Parent()
	if parent != nil && parent.Kind() == "decorated_definition" {
		parent = parent.Parent()
	}
	return parent != nil && parent.Kind() == "module"
}

func (e *PythonExtractor) docstring(ctx *ExtractionContext, body *sitter.Node) (string, string) {
	if body == nil {
		return "", ""
	}
	var first *sitter.Node
	for i := uint(0); i < body.NamedChildCount(); i++ {
		child := body.NamedChild(i)
		if child.Kind() == "comment" {
			continue
		}
		first = child
		break
	}
	if first == nil || first.Kind() != "expression_statement" || first.NamedChildCount() != 1 {
		return "", ""
	}
	str := first.NamedChild(0)
	if str.Kind() != "string" {
		return "", ""
	}

	var start, end *sitter.Node
	for i := uint(0); i < str.ChildCount(); i++ {
		child := str.Child(i)
		switch child.Kind() {
		case "string_start":
			start = child
		case "string_end":
			end = child
		}
	}
	if start == nil || end == nil {
		return "", ""
	}
	quote := strings.TrimLeft(ctx.Text(start), "rRuUbBfF")
	content := string(ctx.Source[start.EndByte():end.StartByte()])
	return content, quote
}

func (e *PythonExtractor) collectBody(ctx *ExtractionContext, node *sitter.Node, def *Definition) {
	if node == nil {
		return
	}
	if node.IsNamed() {
		def.BodyKinds[node.Kind()]++
	}
	if node.Kind() == "call" {
		if fn := node.ChildByFieldName("function"); fn != nil {
			def.Calls = append(def.Calls, normalizeRefName(ctx.Text(fn)))
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.collectBody(ctx, node.Child(i), def)
	}
}

func (e *PythonExtractor) parameterNames(ctx *ExtractionContext, params *sitter.Node) []string {
	if params == nil {
		return nil
	}
	var names []string
	for i := uint(0); i < params.NamedChildCount(); i++ {
		if name := parameterName(ctx, params.NamedChild(i)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func parameterName(ctx *ExtractionContext, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "identifier":
		return ctx.Text(node)
	case "default_parameter", "typed_default_parameter":
		return ctx.Text(node.ChildByFieldName("name"))
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			if name := parameterName(ctx, node.NamedChild(i)); name != "" {
				return name
			}
		}
	}
	return ""
}

func (e *PythonExtractor) pythonDecorators(ctx *ExtractionContext, node *sitter.Node) []string {
	parent := node.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return nil
	}

	decorators := make([]string, 0, parent.ChildCount())
	for i := uint(0); i < parent.ChildCount(); i++ {
		child := parent.Child(i)
		if child.Kind() != "decorator" {
			continue
		}
		dec := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ctx.Text(child)), "@"))
		if dec == "" {
			continue
		}
		decorators = append(decorators, dec)
	}
	return decorators
}

func normalizeRefName(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, "\n", "")
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\t", "")
	value = strings.ReplaceAll(value, " ", "")
	return value
}
