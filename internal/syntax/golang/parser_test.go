package golang

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/cgraph/internal/syntax"
)

func parse(t *testing.T, src string) *syntax.File {
	t.Helper()
	f, err := New().Parse(context.Background(), "main.go", []byte(src))
	require.NoError(t, err)
	return f
}

func calls(nodes []*syntax.Node) []string {
	var out []string
	for _, n := range nodes {
		if n.IsPlainCall() {
			out = append(out, strings.Join(n.Path, Separator))
		}
		out = append(out, calls(n.Children)...)
	}
	return out
}

func TestParse_FunctionsAndCalls(t *testing.T) {
	f := parse(t, `package main

import (
	"fmt"
	yml "gopkg.in/yaml.v3"
)

func main() {
	run(fmt.Sprint(1))
	yml.Marshal(nil)
	var c client
	c.Do()
}

func run(s string) {}
`)
	require.Len(t, f.Roots, 2)
	main := f.Roots[0]
	assert.Equal(t, syntax.KindFunc, main.Kind)
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, []string{"run", "fmt.Sprint", "yml.Marshal"}, calls(main.Children))

	first := main.Children[0]
	assert.Equal(t, uint(9), first.Pos.Line)
	assert.Equal(t, uint(2), first.Pos.Column)
	assert.Equal(t, ".", f.Separator)
}

func TestParse_MethodsAreScopedByReceiver(t *testing.T) {
	f := parse(t, `package x

type Stack[T any] struct{}

func (s *Stack[T]) Push(v T) { grow() }
func (Stack[T]) Len() int { return count() }
`)
	require.Len(t, f.Roots, 2)
	for _, root := range f.Roots {
		assert.Equal(t, syntax.KindScope, root.Kind)
		assert.Equal(t, "Stack", root.Name)
		require.Len(t, root.Children, 1)
	}
	assert.Equal(t, "Push", f.Roots[0].Children[0].Name)
	assert.Equal(t, []string{"grow"}, calls(f.Roots[0].Children))
	assert.Equal(t, []string{"count"}, calls(f.Roots[1].Children))
}

func TestParse_FuncLitCallsBelongToEnclosingFunction(t *testing.T) {
	f := parse(t, `package x

func outer() {
	go func() { work() }()
	defer cleanup()
}
`)
	require.Len(t, f.Roots, 1)
	outer := f.Roots[0]
	// the immediately invoked literal is a call without a plain path
	require.Len(t, outer.Children, 2)
	assert.Nil(t, outer.Children[0].Path)
	assert.Equal(t, []string{"work", "cleanup"}, calls(outer.Children))
}

func TestParse_GenericInstantiationIsStripped(t *testing.T) {
	f := parse(t, `package x

import "slices"

func f() {
	Map[int, string](nil)
	Keep[int](nil)
	slices.Sort[[]int](nil)
}
`)
	assert.Equal(t, []string{"Map", "Keep", "slices.Sort"}, calls(f.Roots[0].Children))
}

func TestParse_IndexCallsHaveNoPath(t *testing.T) {
	f := parse(t, `package x

func main() {
	handlers[0]()
	table["x"]()
	fns[len(fns)-1]()
	Pair[*T, map[string]int]()
	Box[pkg.Type]()
}
`)
	assert.Equal(t, []string{"len", "Pair", "Box"}, calls(f.Roots[0].Children))
}

func TestParse_BodylessDeclarationIsSkipped(t *testing.T) {
	f := parse(t, `package x

func asm(x int) int
`)
	assert.Empty(t, f.Roots)
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := New().Parse(context.Background(), "bad.go", []byte("package x\n\nfunc f( {\n"))
	require.Error(t, err)

	var synErr *syntax.SyntaxError
	require.ErrorAs(t, err, &synErr)
	assert.Equal(t, "bad.go", synErr.Path)
	assert.Equal(t, uint(3), synErr.Line)
}

func TestDefaultImportName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"fmt", "fmt"},
		{"net/http", "http"},
		{"gopkg.in/yaml.v3", "yaml"},
		{"github.com/pelletier/go-toml/v2", "toml"},
		{"github.com/sabhiram/go-gitignore", "gitignore"},
		{"github.com/google/uuid", "uuid"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultImportName(tt.path))
		})
	}
}
