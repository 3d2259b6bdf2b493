package rust

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
	f, err := New().Parse(context.Background(), "src/lib.rs", []byte(src))
	require.NoError(t, err)
	return f
}

// calls flattens the plain call paths below n in visit order.
func calls(nodes []*syntax.Node) []string {
	var out []string
	for _, n := range nodes {
		if n.Kind == syntax.KindCall && n.IsPlainCall() {
			out = append(out, joinPath(n.Path))
		}
		out = append(out, calls(n.Children)...)
	}
	return out
}

func joinPath(p []string) string {
	return strings.Join(p, Separator)
}

func TestParse_FunctionsAndPlainCalls(t *testing.T) {
	f := parse(t, `fn main() {
    helper();
    a::b::c();
    Vec::new();
    self::local();
}

fn helper() {}
`)
	require.Len(t, f.Roots, 2)
	main := f.Roots[0]
	assert.Equal(t, syntax.KindFunc, main.Kind)
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, []string{"helper", "a::b::c", "Vec::new", "self::local"}, calls(main.Children))

	first := main.Children[0]
	assert.Equal(t, uint(2), first.Pos.Line)
	assert.Equal(t, uint(5), first.Pos.Column)

	assert.Equal(t, "helper", f.Roots[1].Name)
	assert.Empty(t, f.Roots[1].Children)
	assert.Equal(t, Separator, f.Separator)
}

func TestParse_MethodCallsHaveNoPath(t *testing.T) {
	f := parse(t, `fn run(x: Client) {
    x.send(build());
}
`)
	body := f.Roots[0].Children
	require.Len(t, body, 1)
	assert.Nil(t, body[0].Path)
	assert.Equal(t, []string{"build"}, calls(body))
}

func TestParse_TurbofishKeepsBarePath(t *testing.T) {
	f := parse(t, `fn f() { parse::<u32>(); }`)
	assert.Equal(t, []string{"parse"}, calls(f.Roots[0].Children))
}

func TestParse_MacroArgumentsAreNotDescended(t *testing.T) {
	f := parse(t, `fn f() {
    println!("{}", compute());
    after();
}
`)
	assert.Equal(t, []string{"after"}, calls(f.Roots[0].Children))
}

func TestParse_ClosureCallsStayInEnclosingFunction(t *testing.T) {
	f := parse(t, `fn f() {
    let g = || inner();
    g();
}
`)
	// g() is a plain path call too
	assert.Equal(t, []string{"inner", "g"}, calls(f.Roots[0].Children))
}

func TestParse_NestedFunctionsAndScopes(t *testing.T) {
	f := parse(t, `mod net {
    pub struct Client;

    impl Client {
        pub fn new() -> Self {
            fn inner() { deep(); }
            Client
        }
    }

    trait Dial {
        fn dial(&self);
        fn redial(&self) { retry(); }
    }
}
`)
	require.Len(t, f.Roots, 1)
	mod := f.Roots[0]
	assert.Equal(t, syntax.KindScope, mod.Kind)
	assert.Equal(t, "net", mod.Name)
	require.Len(t, mod.Children, 2)

	impl := mod.Children[0]
	assert.Equal(t, syntax.KindScope, impl.Kind)
	assert.Equal(t, "Client", impl.Name)
	require.Len(t, impl.Children, 1)
	newFn := impl.Children[0]
	assert.Equal(t, "new", newFn.Name)
	require.Len(t, newFn.Children, 1)
	assert.Equal(t, "inner", newFn.Children[0].Name)
	assert.Equal(t, []string{"deep"}, calls(newFn.Children))

	trait := mod.Children[1]
	assert.Equal(t, "Dial", trait.Name)
	// signatures without a body are not definitions
	require.Len(t, trait.Children, 1)
	assert.Equal(t, "redial", trait.Children[0].Name)
}

func TestParse_GenericImplUsesBaseTypeName(t *testing.T) {
	f := parse(t, `impl<T> Stack<T> { fn push(&mut self) {} }`)
	require.Len(t, f.Roots, 1)
	assert.Equal(t, "Stack", f.Roots[0].Name)
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := New().Parse(context.Background(), "src/bad.rs", []byte("fn main() {\n    let x = ;\n}\n"))
	require.Error(t, err)

	var synErr *syntax.SyntaxError
	require.ErrorAs(t, err, &synErr)
	assert.Equal(t, "src/bad.rs", synErr.Path)
	assert.Equal(t, uint(2), synErr.Line)
}

func TestParse_InvalidUTF8(t *testing.T) {
	_, err := New().Parse(context.Background(), "x.rs", []byte{0xff, 0xfe})
	var synErr *syntax.SyntaxError
	assert.ErrorAs(t, err, &synErr)
}

func TestParse_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Parse(ctx, "x.rs", []byte("fn f() {}"))
	assert.ErrorIs(t, err, context.Canceled)
}
