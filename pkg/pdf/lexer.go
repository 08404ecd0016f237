package pdf

import (
	"bytes"
	"fmt"
	"strconv"
)

// TokenType represents the type of a lexical token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNull
	TokenBoolean
	TokenInteger
	TokenReal
	TokenString
	TokenHexString
	TokenName
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
	TokenStreamStart
	TokenStreamEnd
	TokenObjStart
	TokenObjEnd
	TokenRef
	TokenXRef
	TokenTrailer
	TokenStartXRef
	// TokenKeyword is any other bare word; content stream operators
	// arrive as keywords.
	TokenKeyword
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value interface{}
	Pos   int64
}

// Lexer splits PDF bytes into tokens. It works directly on the backing
// slice so that stream payloads can be returned without copying.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexerFromBytes creates a new lexer from byte slice
func NewLexerFromBytes(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Position returns the current position
func (l *Lexer) Position() int64 {
	return int64(l.pos)
}

// Seek moves the read position to an absolute offset
func (l *Lexer) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(l.data)) {
		return fmt.Errorf("seek to %d out of range", pos)
	}
	l.pos = int(pos)
	return nil
}

// Data returns the bytes the lexer reads from
func (l *Lexer) Data() []byte {
	return l.data
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.data)
}

// skipWhitespace skips whitespace and comments
func (l *Lexer) skipWhitespace() {
	for !l.eof() {
		b := l.data[l.pos]
		if isWhitespace(b) {
			l.pos++
			continue
		}
		if b != '%' {
			return
		}
		for !l.eof() && l.data[l.pos] != '\r' && l.data[l.pos] != '\n' {
			l.pos++
		}
	}
}

// isWhitespace checks if a byte is PDF whitespace
func isWhitespace(b byte) bool {
	return b == 0 || b == '\t' || b == '\n' || b == '\f' || b == '\r' || b == ' '
}

// isDelimiter checks if a byte is a PDF delimiter
func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' ||
		b == '[' || b == ']' || b == '{' || b == '}' ||
		b == '/' || b == '%'
}

// NextToken returns the next token
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	pos := int64(l.pos)
	if l.eof() {
		return Token{Type: TokenEOF, Pos: pos}, nil
	}

	b := l.data[l.pos]
	switch b {
	case '[':
		l.pos++
		return Token{Type: TokenArrayStart, Pos: pos}, nil
	case ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Pos: pos}, nil
	case '(':
		l.pos++
		return l.readLiteralString(pos)
	case '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Pos: pos}, nil
		}
		l.pos++
		return l.readHexString(pos)
	case '>':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Pos: pos}, nil
		}
		return Token{}, fmt.Errorf("unexpected '>' at position %d", pos)
	case '/':
		l.pos++
		return l.readName(pos)
	case '{', '}':
		// PostScript calculator braces, only seen in function streams
		l.pos++
		return Token{Type: TokenKeyword, Value: string(b), Pos: pos}, nil
	case '\'', '"':
		l.pos++
		return Token{Type: TokenKeyword, Value: string(b), Pos: pos}, nil
	}

	if b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9') {
		return l.readNumber(pos)
	}
	if b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '*' {
		return l.readKeyword(pos)
	}
	return Token{}, fmt.Errorf("unexpected character '%c' at position %d", b, pos)
}

// readLiteralString reads a literal string (...)
func (l *Lexer) readLiteralString(pos int64) (Token, error) {
	var buf bytes.Buffer
	depth := 1

	for depth > 0 {
		if l.eof() {
			return Token{}, fmt.Errorf("unterminated string at position %d", pos)
		}
		b := l.data[l.pos]
		l.pos++

		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(b)
			}
		case '\\':
			l.readEscapeSequence(&buf)
		default:
			buf.WriteByte(b)
		}
	}

	return Token{Type: TokenString, Value: buf.Bytes(), Pos: pos}, nil
}

// readEscapeSequence decodes one escape after a backslash
func (l *Lexer) readEscapeSequence(buf *bytes.Buffer) {
	if l.eof() {
		return
	}
	b := l.data[l.pos]
	l.pos++

	switch b {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		// line continuation
		if !l.eof() && l.data[l.pos] == '\n' {
			l.pos++
		}
	case '\n':
	default:
		if b < '0' || b > '7' {
			buf.WriteByte(b)
			return
		}
		val := int(b - '0')
		for i := 0; i < 2 && !l.eof(); i++ {
			next := l.data[l.pos]
			if next < '0' || next > '7' {
				break
			}
			val = val*8 + int(next-'0')
			l.pos++
		}
		buf.WriteByte(byte(val))
	}
}

// readHexString reads a hexadecimal string <...>
func (l *Lexer) readHexString(pos int64) (Token, error) {
	var decoded []byte
	var hi byte
	half := false

	for {
		if l.eof() {
			return Token{}, fmt.Errorf("unterminated hex string at position %d", pos)
		}
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		v, ok := hexValue(b)
		if !ok {
			return Token{}, fmt.Errorf("invalid hex string at position %d", pos)
		}
		if half {
			decoded = append(decoded, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		decoded = append(decoded, hi<<4)
	}

	return Token{Type: TokenHexString, Value: decoded, Pos: pos}, nil
}

func hexValue(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

// readName reads a name object /...
func (l *Lexer) readName(pos int64) (Token, error) {
	var buf bytes.Buffer

	for !l.eof() {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++

		if b == '#' && l.pos+1 < len(l.data) {
			hi, ok1 := hexValue(l.data[l.pos])
			lo, ok2 := hexValue(l.data[l.pos+1])
			if ok1 && ok2 {
				buf.WriteByte(hi<<4 | lo)
				l.pos += 2
				continue
			}
		}
		buf.WriteByte(b)
	}

	return Token{Type: TokenName, Value: buf.String(), Pos: pos}, nil
}

// readNumber reads a number (integer or real)
func (l *Lexer) readNumber(pos int64) (Token, error) {
	start := l.pos
	hasDecimal := false
	hasDigit := false

	for !l.eof() {
		b := l.data[l.pos]
		if b == '+' || b == '-' {
			if l.pos > start {
				break
			}
		} else if b == '.' {
			if hasDecimal {
				break
			}
			hasDecimal = true
		} else if b >= '0' && b <= '9' {
			hasDigit = true
		} else {
			break
		}
		l.pos++
	}

	if !hasDigit {
		return Token{}, fmt.Errorf("invalid number at position %d", pos)
	}

	str := string(l.data[start:l.pos])
	if hasDecimal {
		val, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return Token{}, fmt.Errorf("invalid real number at position %d", pos)
		}
		return Token{Type: TokenReal, Value: val, Pos: pos}, nil
	}

	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("invalid integer at position %d", pos)
	}
	return Token{Type: TokenInteger, Value: val, Pos: pos}, nil
}

// readKeyword reads a bare word (true, false, null, obj, operators, ...)
func (l *Lexer) readKeyword(pos int64) (Token, error) {
	start := l.pos
	for !l.eof() {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
	}

	keyword := string(l.data[start:l.pos])
	switch keyword {
	case "true":
		return Token{Type: TokenBoolean, Value: true, Pos: pos}, nil
	case "false":
		return Token{Type: TokenBoolean, Value: false, Pos: pos}, nil
	case "null":
		return Token{Type: TokenNull, Pos: pos}, nil
	case "obj":
		return Token{Type: TokenObjStart, Pos: pos}, nil
	case "endobj":
		return Token{Type: TokenObjEnd, Pos: pos}, nil
	case "stream":
		return Token{Type: TokenStreamStart, Pos: pos}, nil
	case "endstream":
		return Token{Type: TokenStreamEnd, Pos: pos}, nil
	case "R":
		return Token{Type: TokenRef, Pos: pos}, nil
	case "xref":
		return Token{Type: TokenXRef, Pos: pos}, nil
	case "trailer":
		return Token{Type: TokenTrailer, Pos: pos}, nil
	case "startxref":
		return Token{Type: TokenStartXRef, Pos: pos}, nil
	}
	return Token{Type: TokenKeyword, Value: keyword, Pos: pos}, nil
}

// ReadLine reads until end of line
func (l *Lexer) ReadLine() ([]byte, error) {
	start := l.pos
	for !l.eof() {
		b := l.data[l.pos]
		if b == '\r' || b == '\n' {
			line := l.data[start:l.pos]
			l.pos++
			if b == '\r' && !l.eof() && l.data[l.pos] == '\n' {
				l.pos++
			}
			return line, nil
		}
		l.pos++
	}
	return l.data[start:l.pos], nil
}

// ReadBytes returns the next n bytes. The result aliases the lexer's data.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || l.pos+n > len(l.data) {
		return nil, fmt.Errorf("read of %d bytes at position %d past end of data", n, l.pos)
	}
	b := l.data[l.pos : l.pos+n]
	l.pos += n
	return b, nil
}

// skipEOL consumes the end-of-line marker that follows the stream keyword
func (l *Lexer) skipEOL() {
	if l.eof() {
		return
	}
	switch l.data[l.pos] {
	case '\r':
		l.pos++
		if !l.eof() && l.data[l.pos] == '\n' {
			l.pos++
		}
	case '\n':
		l.pos++
	}
}

// skipInlineImageData skips the binary payload after an ID operator and
// leaves the lexer just past the matching EI.
func (l *Lexer) skipInlineImageData() {
	if !l.eof() && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		if i > 0 && !isWhitespace(l.data[i-1]) {
			continue
		}
		if i+2 < len(l.data) && !isWhitespace(l.data[i+2]) && !isDelimiter(l.data[i+2]) {
			continue
		}
		l.pos = i + 2
		return
	}
	l.pos = len(l.data)
}
