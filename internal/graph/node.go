package graph

import (
	"fmt"
	"strings"
)

// IdentityMode selects how function definitions are keyed in a CallGraph.
type IdentityMode string

const (
	// IdentityName keys functions by their bare name. Same-named functions in
	// different files or scopes collide into one entry.
	IdentityName IdentityMode = "name"
	// IdentityQualified keys functions by origin file, enclosing scopes and name.
	IdentityQualified IdentityMode = "qualified"
)

// ParseIdentityMode validates a mode string.
func ParseIdentityMode(s string) (IdentityMode, error) {
	switch IdentityMode(s) {
	case IdentityName, "":
		return IdentityName, nil
	case IdentityQualified:
		return IdentityQualified, nil
	}
	return "", fmt.Errorf("invalid identity mode %q (valid: name, qualified)", s)
}

// FuncID is the composite identity of a function definition.
type FuncID struct {
	File  string   `json:"file"`
	Scope []string `json:"scope,omitempty"` // enclosing scopes and functions, outermost first
	Name  string   `json:"name"`
}

// Key returns the map key for this function under mode.
func (id FuncID) Key(mode IdentityMode) string {
	if mode != IdentityQualified {
		return id.Name
	}
	parts := make([]string, 0, len(id.Scope)+2)
	parts = append(parts, id.File)
	parts = append(parts, id.Scope...)
	parts = append(parts, id.Name)
	return strings.Join(parts, "::")
}

// Entry is one caller in the graph with its calls in textual order.
type Entry struct {
	Key   string     `json:"id"`
	ID    FuncID     `json:"-"`
	Edges []CallEdge `json:"calls"`
}

// Name returns the display name of the caller.
func (e *Entry) Name() string {
	return e.ID.Name
}
