package syntax

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedLanguage is returned when no parser is registered for a language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Parser turns one file's text into a neutral tree.
// Implementations must be safe for concurrent use.
type Parser interface {
	Language() string
	Extensions() []string
	Separator() string
	Parse(ctx context.Context, path string, text []byte) (*File, error)
}

// SyntaxError is returned by a Parser that rejects a file's content.
type SyntaxError struct {
	Path   string
	Line   uint
	Column uint
	Msg    string
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("syntax error in %s:%d:%d: %s", e.Path, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("syntax error in %s: %s", e.Path, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Registry maps language names to parsers.
type Registry struct {
	byLang map[string]Parser
}

// NewRegistry registers the given parsers. Later parsers win on conflicts.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{byLang: make(map[string]Parser)}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// Register adds a parser under its language name.
func (r *Registry) Register(p Parser) {
	r.byLang[p.Language()] = p
}

// ForLanguage returns the parser registered for lang.
func (r *Registry) ForLanguage(lang string) (Parser, error) {
	p, ok := r.byLang[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	return p, nil
}
