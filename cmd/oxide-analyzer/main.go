// Command oxide-analyzer is the language server process. It speaks a
// minimal line-delimited JSON-RPC protocol over stdio — not full LSP
// framing — wiring a handful of LSP-shaped methods to a session.Session.
// It's always launched by the oxide CLI's "analyzer" subcommand rather
// than invoked directly.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/oxide-lang/oxide/internal/docmodel"
	"github.com/oxide-lang/oxide/internal/rpc"
	"github.com/oxide-lang/oxide/internal/session"
)

func main() {
	workspace := flag.String("workspace", "", "path to the workspace root")
	flag.Parse()

	if *workspace == "" {
		fmt.Fprintln(os.Stderr, "oxide-analyzer: --workspace is required")
		os.Exit(1)
	}

	sess := session.New()
	if err := sess.Initialize(*workspace, session.InitializeOptions{Watch: session.WatchEnabled}); err != nil {
		log.Fatalf("oxide-analyzer: initialize: %v", err)
	}
	defer sess.Close()

	srv := &server{sess: sess, root: *workspace}
	conn := rpc.NewConn(os.Stdin, os.Stdout, map[string]rpc.Handler{
		"initialize":                     srv.initialize,
		"textDocument/didOpen":           srv.didOpen,
		"textDocument/didChange":         srv.didChange,
		"textDocument/didClose":          srv.didClose,
		"textDocument/semanticTokens/full": srv.semanticTokensFull,
	})

	if err := conn.Serve(); err != nil {
		log.Fatalf("oxide-analyzer: %v", err)
	}
}

type server struct {
	sess *session.Session
	root string
}

func (s *server) uriToPath(uri string) string {
	p := strings.TrimPrefix(uri, "file://")
	p = strings.TrimPrefix(p, s.root)
	return strings.TrimPrefix(p, "/")
}

type textDocumentItem struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

type initializeParams struct {
	RootPath string `json:"rootPath"`
}

// textDocumentSyncIncremental is LSP's TextDocumentSyncKind.Incremental:
// didChange deltas carry a range, matching ChangeFile's range-based
// splice rather than replacing a document's full text on every edit.
const textDocumentSyncIncremental = 2

func (s *server) initialize(params json.RawMessage) (any, error) {
	var p initializeParams
	_ = json.Unmarshal(params, &p)
	return map[string]any{
		"capabilities": map[string]any{
			"textDocumentSync": textDocumentSyncIncremental,
			"semanticTokensProvider": map[string]any{
				"legend": map[string]any{
					"tokenTypes":     []string{"keyword"},
					"tokenModifiers": []string{},
				},
				"full": true,
			},
		},
	}, nil
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

func (s *server) didOpen(params json.RawMessage) (any, error) {
	var p didOpenParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("didOpen: %w", err)
	}
	s.sess.OpenFile(s.uriToPath(p.TextDocument.URI), p.TextDocument.Text)
	return nil, nil
}

type lspPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type lspRange struct {
	Start lspPosition `json:"start"`
	End   lspPosition `json:"end"`
}

type contentChange struct {
	Range lspRange `json:"range"`
	Text  string   `json:"text"`
}

type didChangeParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	ContentChanges []contentChange `json:"contentChanges"`
}

func (s *server) didChange(params json.RawMessage) (any, error) {
	var p didChangeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("didChange: %w", err)
	}
	path := s.uriToPath(p.TextDocument.URI)
	for _, change := range p.ContentChanges {
		start := docmodel.Position{Line: change.Range.Start.Line, Character: change.Range.Start.Character}
		end := docmodel.Position{Line: change.Range.End.Line, Character: change.Range.End.Character}
		s.sess.ChangeFile(path, start, end, change.Text)
	}
	return nil, nil
}

type didCloseParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
}

func (s *server) didClose(params json.RawMessage) (any, error) {
	var p didCloseParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("didClose: %w", err)
	}
	s.sess.CloseFile(s.uriToPath(p.TextDocument.URI))
	return nil, nil
}

// semanticTokensFull is a stub: it returns an empty token list rather
// than implementing real semantic highlighting, which is out of scope.
func (s *server) semanticTokensFull(params json.RawMessage) (any, error) {
	return map[string]any{"data": []int{}}, nil
}
