package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler handles one node kind. Returning true means the handler consumed the
// node's subtree and Walk must not descend into it.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext is the state shared by the handlers of one file.
type ExtractionContext struct {
	Source []byte
	File   *File
}

// ExtractorEngine is a depth-first walk with per-kind dispatch.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	if handle := e.handlers[node.Kind()]; handle != nil && handle(ctx, node) {
		return
	}
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		e.Walk(ctx, node.Child(i))
	}
}

// Text is the source slice covered by node, or "" for a nil node.
func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

// Location is the 1-based start position of node in the current file.
func (c *ExtractionContext) Location(node *sitter.Node) Location {
	pos := node.StartPosition()
	return Location{File: c.File.Path, Line: int(pos.Row) + 1, Column: int(pos.Column) + 1}
}

// ChildText is the text of the first direct child of the given kind.
func (c *ExtractionContext) ChildText(node *sitter.Node, kind string) string {
	if node == nil {
		return ""
	}
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		if child := node.Child(i); child.Kind() == kind {
			return c.Text(child)
		}
	}
	return ""
}

// firstError returns the first ERROR or MISSING node in document order. When the
// error flag is set but no such node is found, node itself is returned.
func firstError(node *sitter.Node) *sitter.Node {
	switch {
	case node == nil || !node.HasError():
		return nil
	case node.IsError() || node.IsMissing():
		return node
	}
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		if found := firstError(node.Child(i)); found != nil {
			return found
		}
	}
	return node
}
