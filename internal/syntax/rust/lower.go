package rust

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/zheng/cgraph/internal/syntax"
)

// walker lowers a tree-sitter Rust tree into neutral nodes, keeping function
// items, call expressions and named containers and lifting everything else.
type walker struct {
	src []byte
}

func (w *walker) lowerChildren(n *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		out = append(out, w.lower(child)...)
	}
	return out
}

func (w *walker) lower(n *sitter.Node) []*syntax.Node {
	switch n.Type() {
	case "function_item":
		fn := syntax.Func(w.text(n.ChildByFieldName("name")), w.pos(n))
		if body := n.ChildByFieldName("body"); body != nil {
			fn.Children = w.lowerChildren(body)
		}
		return []*syntax.Node{fn}

	case "call_expression":
		target := n.ChildByFieldName("function")
		if target == nil {
			return w.lowerChildren(n)
		}
		path, ok := w.callPath(target)
		if !ok {
			path = nil
		}
		call := syntax.Call(path, w.pos(target))
		// calls inside the target come first textually, then the arguments
		call.Children = append(call.Children, w.lower(target)...)
		if args := n.ChildByFieldName("arguments"); args != nil {
			call.Children = append(call.Children, w.lowerChildren(args)...)
		}
		return []*syntax.Node{call}

	case "mod_item", "trait_item":
		return w.scope(n, w.text(n.ChildByFieldName("name")))

	case "impl_item":
		return w.scope(n, w.typeName(n.ChildByFieldName("type")))

	case "macro_invocation", "macro_definition", "line_comment", "block_comment":
		// macro bodies are unparsed token trees
		return nil
	}
	return w.lowerChildren(n)
}

func (w *walker) scope(n *sitter.Node, name string) []*syntax.Node {
	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	s := syntax.Scope(name, w.pos(n))
	s.Children = w.lowerChildren(body)
	return []*syntax.Node{s}
}

// callPath returns the segments of a plain reference path used as a call
// target. Method calls, closures and any other expression report false.
func (w *walker) callPath(n *sitter.Node) ([]string, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Type() {
	case "identifier", "self", "super", "crate", "metavariable":
		return []string{w.text(n)}, true
	case "scoped_identifier":
		return w.scoped(n)
	case "generic_function":
		// turbofish arguments are not part of the path text
		return w.callPath(n.ChildByFieldName("function"))
	}
	return nil, false
}

func (w *walker) scoped(n *sitter.Node) ([]string, bool) {
	var segs []string
	if prefix := n.ChildByFieldName("path"); prefix != nil {
		p, ok := w.prefixPath(prefix)
		if !ok {
			return nil, false
		}
		segs = append(segs, p...)
	}
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil, false
	}
	return append(segs, w.text(name)), true
}

// prefixPath handles the path part of a scoped identifier, which may also be
// a type (Vec::new, Vec::<u8>::new, <T as Trait>::f).
func (w *walker) prefixPath(n *sitter.Node) ([]string, bool) {
	switch n.Type() {
	case "identifier", "type_identifier", "self", "super", "crate", "metavariable":
		return []string{w.text(n)}, true
	case "scoped_identifier", "scoped_type_identifier":
		return w.scoped(n)
	case "generic_type":
		return w.prefixPath(n.ChildByFieldName("type"))
	case "bracketed_type":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child != nil && child.Type() == "qualified_type" {
				if alias := child.ChildByFieldName("alias"); alias != nil {
					return w.prefixPath(alias)
				}
			}
		}
		// <T>::f keeps only the segments after the qualified self type
		return []string{}, true
	}
	return nil, false
}

func (w *walker) typeName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "generic_type", "reference_type", "pointer_type":
		return w.typeName(n.ChildByFieldName("type"))
	case "scoped_type_identifier":
		return w.text(n.ChildByFieldName("name"))
	}
	return w.text(n)
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *walker) pos(n *sitter.Node) syntax.Pos {
	pt := n.StartPoint()
	return syntax.Pos{
		Offset: int(n.StartByte()),
		Line:   uint(pt.Row) + 1,
		Column: uint(pt.Column) + 1,
	}
}
