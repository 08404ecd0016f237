package pdf

import (
	"bytes"
	"fmt"
	"io"
)

// LengthResolver resolves an indirect stream /Length value
type LengthResolver func(ref Reference) (int64, bool)

// Parser parses PDF objects from tokens
type Parser struct {
	lexer    *Lexer
	tokens   []Token
	pos      int
	resolver LengthResolver
}

// NewParser creates a new parser for the given lexer
func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

// NewParserFromBytes creates a new parser from byte slice
func NewParserFromBytes(data []byte) *Parser {
	return NewParser(NewLexerFromBytes(data))
}

// SetLengthResolver installs the callback used for indirect /Length values
func (p *Parser) SetLengthResolver(r LengthResolver) {
	p.resolver = r
}

// nextToken gets the next token, buffering for lookahead
func (p *Parser) nextToken() (Token, error) {
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++
		return tok, nil
	}

	tok, err := p.lexer.NextToken()
	if err != nil {
		return Token{}, err
	}

	p.tokens = append(p.tokens, tok)
	p.pos++
	return tok, nil
}

// peekToken peeks at the next token without consuming it
func (p *Parser) peekToken() (Token, error) {
	return p.peekTokenN(0)
}

// peekTokenN peeks at the nth token ahead (0-indexed)
func (p *Parser) peekTokenN(n int) (Token, error) {
	for len(p.tokens) <= p.pos+n {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return Token{}, err
		}
		p.tokens = append(p.tokens, tok)
	}
	return p.tokens[p.pos+n], nil
}

// dropLookahead discards buffered tokens so the lexer can be read directly.
// The lexer is rewound to the first unconsumed token.
func (p *Parser) dropLookahead() {
	if p.pos < len(p.tokens) {
		p.lexer.Seek(p.tokens[p.pos].Pos)
	}
	p.tokens = p.tokens[:0]
	p.pos = 0
}

// ParseObject parses a single PDF object
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.nextToken()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenNull:
		return Null{}, nil

	case TokenBoolean:
		return Boolean(tok.Value.(bool)), nil

	case TokenInteger:
		// num gen R
		next1, err := p.peekToken()
		if err == nil && next1.Type == TokenInteger {
			next2, err := p.peekTokenN(1)
			if err == nil && next2.Type == TokenRef {
				p.nextToken()
				p.nextToken()
				return Reference{
					ObjectNumber:     int(tok.Value.(int64)),
					GenerationNumber: int(next1.Value.(int64)),
				}, nil
			}
		}
		return Integer(tok.Value.(int64)), nil

	case TokenReal:
		return Real(tok.Value.(float64)), nil

	case TokenString:
		return String{Value: tok.Value.([]byte)}, nil

	case TokenHexString:
		return String{Value: tok.Value.([]byte), IsHex: true}, nil

	case TokenName:
		return Name(tok.Value.(string)), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDictionary()

	default:
		return nil, fmt.Errorf("unexpected token type %d at position %d", tok.Type, tok.Pos)
	}
}

// parseArray parses a PDF array [...]
func (p *Parser) parseArray() (Array, error) {
	arr := Array{}

	for {
		tok, err := p.peekToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			p.nextToken()
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated array at position %d", tok.Pos)
		}

		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// parseDictionary parses a PDF dictionary <<...>>
func (p *Parser) parseDictionary() (Dictionary, error) {
	dict := make(Dictionary)

	for {
		keyTok, err := p.nextToken()
		if err != nil {
			return nil, err
		}
		if keyTok.Type == TokenDictEnd {
			return dict, nil
		}
		if keyTok.Type != TokenName {
			return nil, fmt.Errorf("expected name as dictionary key at position %d", keyTok.Pos)
		}

		value, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		// a null value is equivalent to an absent key
		if _, isNull := value.(Null); isNull {
			continue
		}
		dict[Name(keyTok.Value.(string))] = value
	}
}

// ParseIndirectObject parses an indirect object definition (num gen obj ... endobj)
func (p *Parser) ParseIndirectObject() (Reference, Object, error) {
	var ref Reference

	numTok, err := p.nextToken()
	if err != nil {
		return ref, nil, err
	}
	if numTok.Type != TokenInteger {
		return ref, nil, fmt.Errorf("expected object number at position %d", numTok.Pos)
	}
	genTok, err := p.nextToken()
	if err != nil {
		return ref, nil, err
	}
	if genTok.Type != TokenInteger {
		return ref, nil, fmt.Errorf("expected generation number at position %d", genTok.Pos)
	}
	objTok, err := p.nextToken()
	if err != nil {
		return ref, nil, err
	}
	if objTok.Type != TokenObjStart {
		return ref, nil, fmt.Errorf("expected 'obj' keyword at position %d", objTok.Pos)
	}
	ref = Reference{
		ObjectNumber:     int(numTok.Value.(int64)),
		GenerationNumber: int(genTok.Value.(int64)),
	}

	obj, err := p.ParseObject()
	if err != nil {
		return ref, nil, err
	}

	nextTok, err := p.peekToken()
	if err != nil || nextTok.Type != TokenStreamStart {
		// endobj is frequently missing in damaged files; the object is
		// complete without it.
		return ref, obj, nil
	}

	dict, ok := obj.(Dictionary)
	if !ok {
		return ref, nil, fmt.Errorf("stream must have dictionary at position %d", nextTok.Pos)
	}
	p.nextToken()
	p.dropLookahead()
	p.lexer.Seek(nextTok.Pos + int64(len("stream")))
	p.lexer.skipEOL()

	data, err := p.readStreamData(dict)
	if err != nil {
		return ref, nil, err
	}
	return ref, Stream{Dictionary: dict, Data: data}, nil
}

// readStreamData returns the raw stream payload and leaves the lexer
// after the endstream keyword.
func (p *Parser) readStreamData(dict Dictionary) ([]byte, error) {
	start := p.lexer.Position()
	data := p.lexer.Data()

	length := int64(-1)
	switch l := dict.Get("Length").(type) {
	case Integer:
		length = int64(l)
	case Real:
		length = int64(l)
	case Reference:
		if p.resolver != nil {
			if n, ok := p.resolver(l); ok {
				length = n
			}
		}
	}

	if length >= 0 && start+length <= int64(len(data)) && endstreamFollows(data, start+length) {
		p.lexer.Seek(start + length)
		p.nextToken() // endstream
		return data[start : start+length], nil
	}

	// Length is missing or wrong, search for the keyword instead.
	idx := bytes.Index(data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("stream at position %d has no endstream", start)
	}
	end := start + int64(idx)
	p.lexer.Seek(end)
	p.nextToken()

	// the EOL before endstream belongs to the syntax, not the payload
	if end > start && data[end-1] == '\n' {
		end--
	}
	if end > start && data[end-1] == '\r' {
		end--
	}
	return data[start:end], nil
}

func endstreamFollows(data []byte, pos int64) bool {
	for pos < int64(len(data)) && isWhitespace(data[pos]) {
		pos++
	}
	return bytes.HasPrefix(data[pos:], []byte("endstream"))
}
