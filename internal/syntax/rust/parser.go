// Package rust lowers Rust source into the neutral syntax tree using tree-sitter.
package rust

import (
	"context"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	tsrust "github.com/smacker/go-tree-sitter/rust"

	"github.com/zheng/cgraph/internal/syntax"
)

const (
	// Language is the registry name of this front-end.
	Language = "rust"
	// Separator joins path segments of call targets.
	Separator = "::"
)

// Parser implements syntax.Parser for Rust.
//
// Each Parse call creates its own tree-sitter parser, so a Parser value is
// safe for concurrent use.
type Parser struct{}

// New returns a Rust parser.
func New() *Parser {
	return &Parser{}
}

func (p *Parser) Language() string     { return Language }
func (p *Parser) Extensions() []string { return []string{".rs"} }
func (p *Parser) Separator() string    { return Separator }

// Parse parses text and lowers it. Tree-sitter always produces a tree; any
// ERROR or MISSING node in it is reported as a *syntax.SyntaxError.
func (p *Parser) Parse(ctx context.Context, path string, text []byte) (*syntax.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if !utf8.Valid(text) {
		return nil, &syntax.SyntaxError{Path: path, Msg: "content is not valid UTF-8"}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsrust.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, text)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(path, root, text)
	}

	w := &walker{src: text}
	return &syntax.File{
		Path:      path,
		Language:  Language,
		Separator: Separator,
		Text:      text,
		Roots:     w.lowerChildren(root),
	}, nil
}

// syntaxError locates the first ERROR or MISSING node in document order.
func syntaxError(path string, root *sitter.Node, src []byte) *syntax.SyntaxError {
	bad := firstError(root)
	if bad == nil {
		return &syntax.SyntaxError{Path: path, Msg: "unparseable input"}
	}
	pt := bad.StartPoint()
	msg := fmt.Sprintf("unexpected %q", truncate(bad.Content(src), 32))
	if bad.IsMissing() {
		msg = fmt.Sprintf("missing %s", bad.Type())
	}
	return &syntax.SyntaxError{
		Path:   path,
		Line:   uint(pt.Row) + 1,
		Column: uint(pt.Column) + 1,
		Msg:    msg,
	}
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
