// Package golang lowers Go source into the neutral syntax tree using go/parser.
package golang

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"github.com/zheng/cgraph/internal/syntax"
)

const (
	// Language is the registry name of this front-end.
	Language = "go"
	// Separator joins a package qualifier and a function name.
	Separator = "."
)

// Parser implements syntax.Parser for Go. It is stateless and safe for
// concurrent use.
type Parser struct{}

// New returns a Go parser.
func New() *Parser {
	return &Parser{}
}

func (p *Parser) Language() string     { return Language }
func (p *Parser) Extensions() []string { return []string{".go"} }
func (p *Parser) Separator() string    { return Separator }

// Parse parses one Go file. The first scanner error becomes a *syntax.SyntaxError.
func (p *Parser) Parse(ctx context.Context, path string, text []byte) (*syntax.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, text, parser.SkipObjectResolution)
	if err != nil {
		var list scanner.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			first := list[0]
			return nil, &syntax.SyntaxError{
				Path:   path,
				Line:   uint(first.Pos.Line),
				Column: uint(first.Pos.Column),
				Msg:    first.Msg,
				Err:    err,
			}
		}
		return nil, &syntax.SyntaxError{Path: path, Msg: err.Error(), Err: err}
	}

	w := &walker{fset: fset, imports: importNames(file)}
	var roots []*syntax.Node
	for _, decl := range file.Decls {
		roots = append(roots, w.collect(decl)...)
	}
	return &syntax.File{
		Path:      path,
		Language:  Language,
		Separator: Separator,
		Text:      text,
		Roots:     roots,
	}, nil
}

type walker struct {
	fset    *token.FileSet
	imports map[string]bool
}

// collect returns the function and call nodes nearest to root, root included.
// Function literals are not definitions; their calls belong to the enclosing
// declaration.
func (w *walker) collect(root ast.Node) []*syntax.Node {
	var out []*syntax.Node
	ast.Inspect(root, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncDecl:
			if fn := w.funcDecl(n); fn != nil {
				out = append(out, fn)
			}
			return false
		case *ast.CallExpr:
			out = append(out, w.call(n))
			return false
		}
		return true
	})
	return out
}

func (w *walker) funcDecl(decl *ast.FuncDecl) *syntax.Node {
	if decl.Body == nil {
		return nil
	}
	fn := syntax.Func(decl.Name.Name, w.pos(decl.Pos()))
	fn.Children = w.collect(decl.Body)

	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		return syntax.Scope(receiverName(decl.Recv.List[0].Type), w.pos(decl.Pos()), fn)
	}
	return fn
}

func (w *walker) call(expr *ast.CallExpr) *syntax.Node {
	node := syntax.Call(w.callPath(expr.Fun), w.pos(expr.Fun.Pos()))
	node.Children = append(node.Children, w.collect(expr.Fun)...)
	for _, arg := range expr.Args {
		node.Children = append(node.Children, w.collect(arg)...)
	}
	return node
}

// callPath accepts an identifier or an imported package selector, with any
// generic instantiation stripped. Method calls and expression targets yield nil.
func (w *walker) callPath(expr ast.Expr) []string {
	switch e := expr.(type) {
	case *ast.Ident:
		return []string{e.Name}
	case *ast.SelectorExpr:
		if pkg, ok := e.X.(*ast.Ident); ok && w.imports[pkg.Name] {
			return []string{pkg.Name, e.Sel.Name}
		}
	case *ast.IndexExpr:
		if typeShaped(e.Index) {
			return w.callPath(e.X)
		}
	case *ast.IndexListExpr:
		for _, idx := range e.Indices {
			if !typeShaped(idx) {
				return nil
			}
		}
		return w.callPath(e.X)
	}
	return nil
}

// typeShaped reports whether expr could be a type argument. Literals, calls
// and operators never are, so f[0]() is an indexed value, not an instantiation.
// Identifiers stay ambiguous without type information: m[k]() is read as generic.
func typeShaped(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.Ident, *ast.ArrayType, *ast.MapType, *ast.FuncType, *ast.ChanType,
		*ast.InterfaceType, *ast.StructType:
		return true
	case *ast.SelectorExpr:
		_, ok := e.X.(*ast.Ident)
		return ok
	case *ast.StarExpr:
		return typeShaped(e.X)
	case *ast.ParenExpr:
		return typeShaped(e.X)
	case *ast.IndexExpr:
		return typeShaped(e.X) && typeShaped(e.Index)
	case *ast.IndexListExpr:
		if !typeShaped(e.X) {
			return false
		}
		for _, idx := range e.Indices {
			if !typeShaped(idx) {
				return false
			}
		}
		return true
	}
	return false
}

func (w *walker) pos(p token.Pos) syntax.Pos {
	position := w.fset.PositionFor(p, false)
	return syntax.Pos{
		Offset: position.Offset,
		Line:   uint(position.Line),
		Column: uint(position.Column),
	}
}

func receiverName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return receiverName(e.X)
	case *ast.IndexExpr:
		return receiverName(e.X)
	case *ast.IndexListExpr:
		return receiverName(e.X)
	case *ast.ParenExpr:
		return receiverName(e.X)
	}
	return ""
}

var majorVersion = regexp.MustCompile(`^v[0-9]+$`)

// importNames maps the local names of the file's imports. Without type
// information the default name is guessed from the import path.
func importNames(file *ast.File) map[string]bool {
	names := make(map[string]bool, len(file.Imports))
	for _, spec := range file.Imports {
		if spec.Name != nil {
			if spec.Name.Name != "_" && spec.Name.Name != "." {
				names[spec.Name.Name] = true
			}
			continue
		}
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		names[DefaultImportName(path)] = true
	}
	return names
}

// DefaultImportName guesses the package name of an import path:
// "gopkg.in/yaml.v3" is yaml, "github.com/pelletier/go-toml/v2" is toml.
func DefaultImportName(path string) string {
	elems := strings.Split(path, "/")
	name := elems[len(elems)-1]
	if majorVersion.MatchString(name) && len(elems) > 1 {
		name = elems[len(elems)-2]
	}
	if i := strings.Index(name, ".v"); i > 0 && majorVersion.MatchString(name[i+1:]) {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	return strings.ReplaceAll(name, "-", "_")
}
