// Package parsefacade implements the SyntaxTree query: given a path,
// fetch its current text through the query graph (recording that as a
// dependency) and hand it to the language parser.
package parsefacade

import (
	"fmt"

	"github.com/oxide-lang/oxide/internal/docmodel"
	"github.com/oxide-lang/oxide/internal/langsyntax"
	"github.com/oxide-lang/oxide/internal/querygraph"
)

// Resolve answers a SyntaxTree query. It queries DocumentText for the
// same path through h, which both fetches the current text and
// records SyntaxTree's dependency on it, decodes the UTF-16 text to a
// string, and runs it through the language parser.
//
// q must have Kind == docmodel.KindSyntaxTree; any other kind is a
// caller error.
func Resolve(q docmodel.Query, h *querygraph.Handle[docmodel.Query, docmodel.Result]) docmodel.Result {
	if q.Kind != docmodel.KindSyntaxTree {
		panic(fmt.Sprintf("parsefacade: Resolve called with non-SyntaxTree query %v", q))
	}

	textResult := h.Query(docmodel.Query{Kind: docmodel.KindDocumentText, Path: q.Path})
	tree := langsyntax.Parse([]byte(textResult.Text.String()))

	return docmodel.Result{
		Kind: docmodel.KindSyntaxTree,
		Tree: &docmodel.ParsedFile{Path: q.Path, Tree: tree},
	}
}
