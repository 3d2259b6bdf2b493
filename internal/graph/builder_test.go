package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_MergeAppendsAcrossFiles(t *testing.T) {
	a := NewCallGraph(IdentityName)
	a.Ensure(FuncID{File: "a.rs", Name: "main"})
	a.Append(FuncID{File: "a.rs", Name: "main"}, CallEdge{Callee: "helper", OriginFile: "a.rs", Line: 1, Column: 13})

	b := NewCallGraph(IdentityName)
	b.Ensure(FuncID{File: "b.rs", Name: "helper"})
	b.Append(FuncID{File: "b.rs", Name: "main"}, CallEdge{Callee: "other", OriginFile: "b.rs", Line: 9, Column: 5})

	builder := NewBuilder(IdentityName)
	builder.Merge(a)
	builder.Merge(b)

	g := builder.Graph()
	assert.Equal(t, 2, builder.FileCount())
	assert.Equal(t, []string{"main", "helper"}, g.Keys())
	assert.Equal(t, []string{"helper", "other"}, g.Callees("main"))

	helper, ok := g.Lookup("helper")
	require.True(t, ok)
	assert.Empty(t, helper.Edges)
	assert.Equal(t, 2, g.EdgeCount())
}

func TestBuilder_QualifiedKeepsFilesApart(t *testing.T) {
	a := NewCallGraph(IdentityQualified)
	a.Append(FuncID{File: "a.rs", Name: "run"}, CallEdge{Callee: "x", OriginFile: "a.rs", Line: 1, Column: 1})
	b := NewCallGraph(IdentityQualified)
	b.Append(FuncID{File: "b.rs", Name: "run"}, CallEdge{Callee: "y", OriginFile: "b.rs", Line: 1, Column: 1})

	builder := NewBuilder(IdentityQualified)
	builder.Merge(a)
	builder.Merge(b)

	assert.Equal(t, []string{"a.rs::run", "b.rs::run"}, builder.Graph().Keys())
	assert.Equal(t, 2, builder.Graph().Len())
}

func TestParseIdentityMode(t *testing.T) {
	m, err := ParseIdentityMode("")
	require.NoError(t, err)
	assert.Equal(t, IdentityName, m)

	m, err = ParseIdentityMode("qualified")
	require.NoError(t, err)
	assert.Equal(t, IdentityQualified, m)

	_, err = ParseIdentityMode("fuzzy")
	assert.Error(t, err)
}

func TestCallEdge_Label(t *testing.T) {
	assert.Equal(t, "src/a.rs:3:7", CallEdge{OriginFile: "src/a.rs", Line: 3, Column: 7}.Label())
	assert.Equal(t, "src/a.rs", CallEdge{OriginFile: "src/a.rs"}.Label())
}
