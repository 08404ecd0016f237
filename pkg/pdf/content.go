package pdf

import (
	"errors"
	"io"
)

// ContentStreamParser parses content streams
type ContentStreamParser struct {
	parser *Parser
}

// NewContentStreamParser creates a new content stream parser
func NewContentStreamParser(data []byte) *ContentStreamParser {
	return &ContentStreamParser{
		parser: NewParserFromBytes(data),
	}
}

// Operation represents a content stream operation. An inline image is
// reported as a single "BI" operation whose only operand is the image
// dictionary; its sample data is skipped.
type Operation struct {
	Operator string
	Operands []Object
}

// ParseOperations parses all operations from a content stream. Malformed
// operands are dropped so that one bad token does not hide the rest of the
// page.
func (p *ContentStreamParser) ParseOperations() ([]Operation, error) {
	var operations []Operation
	var operands []Object

	for {
		tok, err := p.parser.peekToken()
		if err != nil {
			// unknown byte, step over it
			p.parser.dropLookahead()
			if p.parser.lexer.eof() {
				break
			}
			p.parser.lexer.pos++
			operands = nil
			continue
		}

		switch tok.Type {
		case TokenEOF:
			return operations, nil
		case TokenKeyword:
			p.parser.nextToken()
			op := tok.Value.(string)
			if op == "BI" {
				operations = append(operations, p.parseInlineImage())
				operands = nil
				continue
			}
			operations = append(operations, Operation{Operator: op, Operands: operands})
			operands = nil
			continue
		case TokenObjStart, TokenObjEnd, TokenStreamStart, TokenStreamEnd,
			TokenXRef, TokenTrailer, TokenStartXRef, TokenRef,
			TokenArrayEnd, TokenDictEnd:
			p.parser.nextToken()
			continue
		}

		obj, err := p.parser.ParseObject()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			operands = nil
			continue
		}
		operands = append(operands, obj)
	}

	return operations, nil
}

// parseInlineImage reads the key/value pairs between BI and ID and skips
// the image data up to EI.
func (p *ContentStreamParser) parseInlineImage() Operation {
	dict := make(Dictionary)
	for {
		tok, err := p.parser.peekToken()
		if err != nil || tok.Type == TokenEOF {
			break
		}
		if tok.Type == TokenKeyword && tok.Value.(string) == "ID" {
			p.parser.nextToken()
			p.parser.dropLookahead()
			p.parser.lexer.skipInlineImageData()
			break
		}
		if tok.Type != TokenName {
			p.parser.nextToken()
			continue
		}
		p.parser.nextToken()
		value, err := p.parser.ParseObject()
		if err != nil {
			break
		}
		dict[Name(tok.Value.(string))] = value
	}
	return Operation{Operator: "BI", Operands: []Object{dict}}
}
