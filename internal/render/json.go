package render

import (
	"encoding/json"
	"io"

	"github.com/zheng/cgraph/internal/graph"
)

// JSON renders the graph as one document:
//
//	{"identity":"name","functions":[{"id":..,"name":..,"file":..,"calls":[..]}]}
type JSON struct {
	Indent string
}

type jsonDocument struct {
	Identity  graph.IdentityMode `json:"identity"`
	Functions []jsonFunction     `json:"functions"`
}

type jsonFunction struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	File  string           `json:"file"`
	Scope []string         `json:"scope,omitempty"`
	Calls []graph.CallEdge `json:"calls"`
}

func (j JSON) Render(w io.Writer, g *graph.CallGraph) error {
	doc := jsonDocument{
		Identity:  g.Mode(),
		Functions: make([]jsonFunction, 0, g.Len()),
	}
	for _, e := range g.Entries() {
		doc.Functions = append(doc.Functions, jsonFunction{
			ID:    e.Key,
			Name:  e.Name(),
			File:  e.ID.File,
			Scope: e.ID.Scope,
			Calls: e.Edges,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if j.Indent != "" {
		enc.SetIndent("", j.Indent)
	}
	return enc.Encode(doc)
}
