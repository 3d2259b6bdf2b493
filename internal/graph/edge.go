package graph

import "fmt"

// CallEdge is one recorded call site inside a caller's body.
// Callee is the call-target path exactly as written, not a resolved definition.
type CallEdge struct {
	Callee     string `json:"callee"`
	OriginFile string `json:"file"`
	Line       uint   `json:"line"`   // 1-based, 0 when unknown
	Column     uint   `json:"column"` // 1-based, 0 when unknown
}

// HasLocation reports whether the edge carries a real position.
// (0, 0) is the degraded "position unavailable" sentinel.
func (e CallEdge) HasLocation() bool {
	return e.Line > 0
}

// Label formats the call site as file:line:column, or just the file
// when the position is unavailable.
func (e CallEdge) Label() string {
	if !e.HasLocation() {
		return e.OriginFile
	}
	return fmt.Sprintf("%s:%d:%d", e.OriginFile, e.Line, e.Column)
}
