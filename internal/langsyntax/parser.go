package langsyntax

// Parse lexes and parses src, always returning a usable Tree. Malformed
// input never prevents a Tree from being produced: missing tokens are
// recorded as zero-length SynMissing entries and the offending spans
// collected in Tree.Errors, and unrecognized input between
// declarations is recorded as SynSkipped trivia.
func Parse(src []byte) *Tree {
	p := &Parser{
		src:  src,
		raw:  NewLexer(src).Tokenize(),
		tree: &Tree{},
	}

	for !p.atEOF() {
		p.skipTrivia()
		if p.atEOF() {
			break
		}
		if p.peekKind() == KwFn {
			p.parseFnDecl()
			continue
		}
		tok := p.advanceRaw()
		p.emitSkipped(tok)
	}

	return p.tree
}

// Parser drives the recursive descent over a flat token stream,
// recording every token (trivia included) into the resulting Tree in
// source order as it goes.
type Parser struct {
	src  []byte
	raw  []Token
	pos  int
	tree *Tree
}

func (p *Parser) peekKind() TokenKind {
	if p.pos >= len(p.raw) {
		return EOF
	}
	return p.raw[p.pos].Kind
}

func (p *Parser) atEOF() bool {
	return p.peekKind() == EOF
}

func (p *Parser) advanceRaw() Token {
	if p.pos >= len(p.raw) {
		return Token{Kind: EOF, Start: len(p.src), End: len(p.src)}
	}
	tok := p.raw[p.pos]
	if tok.Kind != EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) currentOffset() int {
	if p.pos < len(p.raw) {
		return p.raw[p.pos].Start
	}
	return len(p.src)
}

func (p *Parser) textOf(tok Token) string {
	return string(p.src[tok.Start:tok.End])
}

func (p *Parser) skipTrivia() {
	for p.pos < len(p.raw) && p.raw[p.pos].Kind == Whitespace {
		tok := p.raw[p.pos]
		p.tree.Tokens = append(p.tree.Tokens, SyntaxToken{
			Kind: SynWhitespace, Lexical: Whitespace,
			Start: tok.Start, End: tok.End, NodeIndex: -1,
		})
		p.pos++
	}
}

func (p *Parser) emit(kind SyntaxTokenKind, tok Token, nodeIndex int) {
	p.tree.Tokens = append(p.tree.Tokens, SyntaxToken{
		Kind: kind, Lexical: tok.Kind, Start: tok.Start, End: tok.End, NodeIndex: nodeIndex,
	})
}

func (p *Parser) emitSkipped(tok Token) {
	p.tree.Tokens = append(p.tree.Tokens, SyntaxToken{
		Kind: SynSkipped, Lexical: tok.Kind, Start: tok.Start, End: tok.End, NodeIndex: -1,
	})
}

// recoverTo skips tokens, recording each as SynSkipped, until it finds
// sync or runs out of input. parseInputs uses it after a missing ')'
// to resynchronize on the '{' that opens the function body.
func (p *Parser) recoverTo(sync TokenKind) {
	for {
		p.skipTrivia()
		k := p.peekKind()
		if k == sync || k == EOF {
			return
		}
		p.emitSkipped(p.advanceRaw())
	}
}

func missingResult[T any](p *Parser, expected TokenKind, nodeIndex int, zero T) Result[T] {
	at := p.currentOffset()
	err := newMissingError(expected, at)
	p.tree.Errors = append(p.tree.Errors, err)
	p.tree.Tokens = append(p.tree.Tokens, SyntaxToken{
		Kind: SynMissing, Lexical: expected, Start: at, End: at, NodeIndex: nodeIndex,
	})
	return Missing(zero, err)
}

func (p *Parser) parseFnDecl() {
	nodeIndex := len(p.tree.Nodes)
	p.tree.Nodes = append(p.tree.Nodes, Node{})

	p.emit(SynFnKeyword, p.advanceRaw(), nodeIndex)

	name := p.expectNamed(nodeIndex, SynFnName)
	inputs := p.parseInputs(nodeIndex)
	body := p.parseBody(nodeIndex)

	p.tree.Nodes[nodeIndex] = Node{
		Kind: NodeFnDecl,
		FnDecl: FnDecl{
			Name:   name,
			Inputs: inputs,
			Body:   body,
		},
	}
}

func (p *Parser) expectNamed(nodeIndex int, kind SyntaxTokenKind) Result[string] {
	p.skipTrivia()
	if p.peekKind() != Ident {
		return missingResult(p, Ident, nodeIndex, "")
	}
	tok := p.advanceRaw()
	p.emit(kind, tok, nodeIndex)
	return Ok(p.textOf(tok))
}

func (p *Parser) parseInputs(nodeIndex int) Result[[]Param] {
	p.skipTrivia()
	if p.peekKind() != LParen {
		return missingResult[[]Param](p, LParen, nodeIndex, nil)
	}
	p.emit(SynDelimiter, p.advanceRaw(), nodeIndex)

	var params []Param
	p.skipTrivia()
	for p.peekKind() != RParen && p.peekKind() != LBrace && p.peekKind() != EOF {
		name := p.expectNamed(nodeIndex, SynParamName)

		p.skipTrivia()
		var typ Result[string]
		if p.peekKind() == Colon {
			p.emit(SynDelimiter, p.advanceRaw(), nodeIndex)
			typ = p.expectNamed(nodeIndex, SynParamType)
		} else {
			typ = missingResult(p, Colon, nodeIndex, "")
		}
		params = append(params, Param{Name: name, Type: typ})

		p.skipTrivia()
		if p.peekKind() == Comma {
			p.emit(SynDelimiter, p.advanceRaw(), nodeIndex)
			p.skipTrivia()
			continue
		}
		break
	}

	p.skipTrivia()
	if p.peekKind() == RParen {
		p.emit(SynDelimiter, p.advanceRaw(), nodeIndex)
	} else {
		at := p.currentOffset()
		err := newMissingError(RParen, at)
		p.tree.Errors = append(p.tree.Errors, err)
		p.tree.Tokens = append(p.tree.Tokens, SyntaxToken{
			Kind: SynMissing, Lexical: RParen, Start: at, End: at, NodeIndex: nodeIndex,
		})
		p.recoverTo(LBrace)
	}

	return Ok(params)
}

func (p *Parser) parseBody(nodeIndex int) Result[FnBody] {
	p.skipTrivia()
	if p.peekKind() != LBrace {
		return missingResult(p, LBrace, nodeIndex, FnBody{})
	}
	open := p.advanceRaw()
	p.emit(SynDelimiter, open, nodeIndex)

	depth := 1
	lastEnd := open.End
	for depth > 0 {
		p.skipTrivia()
		switch p.peekKind() {
		case EOF:
			err := newUnexpectedError(p.currentOffset(), p.currentOffset())
			p.tree.Errors = append(p.tree.Errors, err)
			return Missing(FnBody{Start: open.Start, End: lastEnd}, err)
		case LBrace:
			depth++
			tok := p.advanceRaw()
			p.emit(SynDelimiter, tok, nodeIndex)
			lastEnd = tok.End
		case RBrace:
			depth--
			tok := p.advanceRaw()
			p.emit(SynDelimiter, tok, nodeIndex)
			lastEnd = tok.End
		default:
			tok := p.advanceRaw()
			p.emit(SynSkipped, tok, nodeIndex)
			lastEnd = tok.End
		}
	}

	return Ok(FnBody{Start: open.Start, End: lastEnd})
}
