// Package docmodel holds the query vocabulary and document model shared
// between the session façade and the parse facade, kept separate from
// both so neither has to import the other to see these types.
package docmodel

import (
	"unicode/utf16"

	"github.com/oxide-lang/oxide/internal/langsyntax"
)

// Kind discriminates the two query variants this compiler resolves.
type Kind uint8

const (
	KindDocumentText Kind = iota
	KindSyntaxTree
)

func (k Kind) String() string {
	switch k {
	case KindDocumentText:
		return "DocumentText"
	case KindSyntaxTree:
		return "SyntaxTree"
	default:
		return "Unknown"
	}
}

// Query is the value-typed key into the query graph. It's comparable
// by design so it can be used directly as a map key and compared with
// ==, both of which the graph relies on.
type Query struct {
	Kind Kind
	Path string
}

// Result wraps whichever payload a Query resolved to. Only the field
// matching Kind is ever populated. Two Results compare equal (via the
// struct's built-in ==) exactly when they carry the same Kind and the
// same pointer in the relevant field — a deliberately shallow,
// reference-identity equality that the query graph relies on to
// detect "nothing changed" without doing any structural comparison.
type Result struct {
	Kind Kind
	Text *SourceText
	Tree *ParsedFile
}

// FileHandle is the interned identity of one tracked input file. The
// Database stores and versions a file's text by this identity rather
// than by path directly, so a path's handle stays stable even as its
// text is replaced generation after generation.
type FileHandle struct {
	Path string
}

// SourceText is an immutable snapshot of a file's content, indexed in
// UTF-16 code units to match the position encoding LSP clients send.
// A SourceText is never mutated in place; every edit that changes the
// content produces a new one, while a no-op edit keeps the existing
// one (see InternText), which is what lets the query graph's shallow
// equality check detect an unchanged document by pointer comparison
// alone.
type SourceText struct {
	Units []uint16
}

// NewSourceText encodes s into UTF-16 code units.
func NewSourceText(s string) *SourceText {
	return &SourceText{Units: utf16.Encode([]rune(s))}
}

// String decodes the text back to UTF-8.
func (t *SourceText) String() string {
	if t == nil {
		return ""
	}
	return string(utf16.Decode(t.Units))
}

// ParsedFile is the syntax tree produced for one file at some
// generation, alongside the path it was parsed from.
type ParsedFile struct {
	Path string
	Tree *langsyntax.Tree
}
