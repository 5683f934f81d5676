// Package parser wraps tree-sitter for parsing Java sources.
//
// A Parser is not safe for concurrent use; create one per goroutine and
// Close it when done. Parse results own their tree and must be closed too.
package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// Language represents a supported source language.
type Language string

// Java is the only language the analyzers understand.
const Java Language = "java"

// Parser wraps a tree-sitter parser bound to one language.
type Parser struct {
	parser *sitter.Parser
	lang   Language
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree     *sitter.Tree
	Root     *sitter.Node
	Source   []byte
	FilePath string
	Language Language
}

// NewParser creates a parser for the given language.
// Returns an UnsupportedLanguageError for anything but Java.
func NewParser(lang Language) (*Parser, error) {
	if lang != Java {
		return nil, &UnsupportedLanguageError{Language: string(lang)}
	}
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Parser{parser: p, lang: lang}, nil
}

// Parse parses source code and returns the AST.
func (p *Parser) Parse(source []byte) (*ParseResult, error) {
	return p.ParseCtx(context.Background(), source)
}

// ParseCtx parses source code, giving up when ctx is canceled.
func (p *Parser) ParseCtx(ctx context.Context, source []byte) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	return &ParseResult{
		Tree:     tree,
		Root:     tree.RootNode(),
		Source:   source,
		Language: p.lang,
	}, nil
}

// ParseFile parses a file from disk.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}

	result, err := p.Parse(source)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.File = path
		}
		return nil, err
	}

	result.FilePath = path
	return result, nil
}

// Language returns the language this parser is configured for.
func (p *Parser) Language() Language {
	return p.lang
}

// Close releases parser resources.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// Close releases the parse tree.
func (r *ParseResult) Close() {
	if r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
		r.Root = nil
	}
}

// HasErrors returns true if the parse tree contains syntax errors.
func (r *ParseResult) HasErrors() bool {
	if r.Root == nil {
		return false
	}
	return r.Root.HasError()
}

// SyntaxErrors lists the ERROR and MISSING nodes of the tree, outermost
// first. tree-sitter recovers from bad input, so these are advisory.
func (r *ParseResult) SyntaxErrors() []*ParseError {
	if !r.HasErrors() {
		return nil
	}
	var errs []*ParseError
	walkNode(r.Root, func(n *sitter.Node) bool {
		switch {
		case n.IsMissing():
			errs = append(errs, r.errorAt(n, "missing "+n.Type()))
			return true
		case n.Type() == "ERROR":
			errs = append(errs, r.errorAt(n, "unexpected "+firstLine(r.NodeText(n))))
			return true
		}
		return true
	})
	return errs
}

func (r *ParseResult) errorAt(n *sitter.Node, msg string) *ParseError {
	pt := n.StartPoint()
	return &ParseError{Message: msg, File: r.FilePath, Line: pt.Row + 1, Column: pt.Column + 1}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return "'" + s + "'"
}

// WalkNodes traverses the AST depth-first, calling the visitor for each
// node. If the visitor returns false, traversal stops.
func (r *ParseResult) WalkNodes(visitor func(*sitter.Node) bool) {
	if r.Root == nil {
		return
	}
	walkNode(r.Root, visitor)
}

func walkNode(node *sitter.Node, visitor func(*sitter.Node) bool) bool {
	if !visitor(node) {
		return false
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		if !walkNode(node.Child(int(i)), visitor) {
			return false
		}
	}
	return true
}

// FindNodes returns all nodes matching the predicate, in document order.
func (r *ParseResult) FindNodes(predicate func(*sitter.Node) bool) []*sitter.Node {
	var nodes []*sitter.Node
	r.WalkNodes(func(node *sitter.Node) bool {
		if predicate(node) {
			nodes = append(nodes, node)
		}
		return true
	})
	return nodes
}

// FindNodesByType returns all nodes of the specified type.
func (r *ParseResult) FindNodesByType(nodeType string) []*sitter.Node {
	return r.FindNodes(func(node *sitter.Node) bool {
		return node.Type() == nodeType
	})
}

// NodeText returns the source text for a node.
func (r *ParseResult) NodeText(node *sitter.Node) string {
	if node == nil || r.Source == nil {
		return ""
	}
	return node.Content(r.Source)
}

// LanguageFromPath returns the language for a file path, or "" when the
// extension is not recognized.
func LanguageFromPath(path string) Language {
	if strings.EqualFold(filepath.Ext(path), ".java") {
		return Java
	}
	return ""
}
