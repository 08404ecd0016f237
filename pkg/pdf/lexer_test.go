package pdf

import (
	"testing"
)

// TestLexerReadLine tests reading lines with every EOL convention
func TestLexerReadLine(t *testing.T) {
	lexer := NewLexerFromBytes([]byte("line1\nline2\rline3\r\nline4"))

	for _, want := range []string{"line1", "line2", "line3", "line4"} {
		line, err := lexer.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine failed: %v", err)
		}
		if string(line) != want {
			t.Errorf("Expected %q, got %q", want, line)
		}
	}
}

// TestIsWhitespace tests whitespace detection
func TestIsWhitespace(t *testing.T) {
	for _, ws := range []byte{' ', '\t', '\n', '\r', '\f', 0} {
		if !isWhitespace(ws) {
			t.Errorf("Expected %d to be whitespace", ws)
		}
	}
	for _, nws := range []byte{'a', '1', '/', '('} {
		if isWhitespace(nws) {
			t.Errorf("Expected %c to not be whitespace", nws)
		}
	}
}

// TestLexerKeywords tests that unknown bare words become keywords
func TestLexerKeywords(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		value interface{}
	}{
		{"obj", TokenObjStart, nil},
		{"endstream", TokenStreamEnd, nil},
		{"R", TokenRef, nil},
		{"Do", TokenKeyword, "Do"},
		{"T*", TokenKeyword, "T*"},
		{"'", TokenKeyword, "'"},
		{"BI", TokenKeyword, "BI"},
	}

	for _, tt := range tests {
		tok, err := NewLexerFromBytes([]byte(tt.input)).NextToken()
		if err != nil {
			t.Errorf("NextToken(%q) failed: %v", tt.input, err)
			continue
		}
		if tok.Type != tt.typ {
			t.Errorf("NextToken(%q) type = %d, expected %d", tt.input, tok.Type, tt.typ)
		}
		if tt.value != nil && tok.Value != tt.value {
			t.Errorf("NextToken(%q) value = %v, expected %v", tt.input, tok.Value, tt.value)
		}
	}
}

// TestLexerComments tests that comments are skipped
func TestLexerComments(t *testing.T) {
	lexer := NewLexerFromBytes([]byte("% header\n42 % trailing\n/Name"))

	tok, _ := lexer.NextToken()
	if tok.Type != TokenInteger || tok.Value.(int64) != 42 {
		t.Fatalf("Expected integer 42, got %+v", tok)
	}
	tok, _ = lexer.NextToken()
	if tok.Type != TokenName || tok.Value.(string) != "Name" {
		t.Fatalf("Expected name, got %+v", tok)
	}
	tok, _ = lexer.NextToken()
	if tok.Type != TokenEOF {
		t.Fatalf("Expected EOF, got %+v", tok)
	}
}

// TestLexerStringEscapes tests literal string escapes
func TestLexerStringEscapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`(a\nb)`, "a\nb"},
		{`(\(x\))`, "(x)"},
		{`(\101\102)`, "AB"},
		{"(nested (parens) ok)", "nested (parens) ok"},
		{"(line\\\ncontinued)", "linecontinued"},
	}

	for _, tt := range tests {
		tok, err := NewLexerFromBytes([]byte(tt.input)).NextToken()
		if err != nil {
			t.Errorf("NextToken(%q) failed: %v", tt.input, err)
			continue
		}
		if got := string(tok.Value.([]byte)); got != tt.expected {
			t.Errorf("NextToken(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

// TestLexerInvalidInput tests errors for malformed tokens
func TestLexerInvalidInput(t *testing.T) {
	for _, input := range []string{"(unterminated", "<4G>", ">", "-", "@"} {
		if _, err := NewLexerFromBytes([]byte(input)).NextToken(); err == nil {
			t.Errorf("NextToken(%q) expected error", input)
		}
	}
}

// TestSkipInlineImageData tests that binary inline data is skipped up to EI
func TestSkipInlineImageData(t *testing.T) {
	data := []byte("ID \x00EI\xffzz\nEI Q")
	lexer := NewLexerFromBytes(data)
	lexer.Seek(2)
	lexer.skipInlineImageData()

	tok, err := lexer.NextToken()
	if err != nil {
		t.Fatalf("NextToken failed: %v", err)
	}
	if tok.Type != TokenKeyword || tok.Value.(string) != "Q" {
		t.Errorf("Expected Q after inline image, got %+v", tok)
	}
}

// TestParserParseNumbers tests parsing integers and reals
func TestParserParseNumbers(t *testing.T) {
	tests := []struct {
		input    string
		expected Object
	}{
		{"42", Integer(42)},
		{"-17", Integer(-17)},
		{"+123", Integer(123)},
		{"3.14", Real(3.14)},
		{".5", Real(0.5)},
		{"10.", Real(10)},
	}

	for _, tt := range tests {
		obj, err := NewParserFromBytes([]byte(tt.input)).ParseObject()
		if err != nil {
			t.Errorf("ParseObject(%s) failed: %v", tt.input, err)
			continue
		}
		if obj != tt.expected {
			t.Errorf("ParseObject(%s) = %v, expected %v", tt.input, obj, tt.expected)
		}
	}
}

// TestParserParseName tests parsing names with hex escapes
func TestParserParseName(t *testing.T) {
	tests := []struct {
		input    string
		expected Name
	}{
		{"/Name", "Name"},
		{"/A#20B", "A B"},
		{"/Im1", "Im1"},
	}

	for _, tt := range tests {
		obj, err := NewParserFromBytes([]byte(tt.input)).ParseObject()
		if err != nil {
			t.Errorf("ParseObject(%s) failed: %v", tt.input, err)
			continue
		}
		if obj != tt.expected {
			t.Errorf("ParseObject(%s) = %v, expected %s", tt.input, obj, tt.expected)
		}
	}
}

// TestParserParseDictionary tests nested dictionaries and references
func TestParserParseDictionary(t *testing.T) {
	parser := NewParserFromBytes([]byte("<< /Type /XObject /Width 2 /SMask 7 0 R /Decode [0 1] /Skip null >>"))
	obj, err := parser.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject dictionary failed: %v", err)
	}

	dict, ok := obj.(Dictionary)
	if !ok {
		t.Fatalf("Expected Dictionary, got %T", obj)
	}
	if w, ok := dict.GetInt("Width"); !ok || w != 2 {
		t.Errorf("Expected Width=2, got %v", w)
	}
	if ref, ok := dict.Get("SMask").(Reference); !ok || ref != (Reference{7, 0}) {
		t.Errorf("Expected SMask 7 0 R, got %v", dict.Get("SMask"))
	}
	if arr, ok := dict.GetArray("Decode"); !ok || len(arr) != 2 {
		t.Errorf("Expected two-element Decode, got %v", arr)
	}
	if _, present := dict["Skip"]; present {
		t.Error("null value should be dropped from dictionary")
	}
}

// TestParserIntegersNotReference tests that two integers without R stay integers
func TestParserIntegersNotReference(t *testing.T) {
	parser := NewParserFromBytes([]byte("[1 0 2]"))
	obj, err := parser.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject failed: %v", err)
	}
	arr := obj.(Array)
	if len(arr) != 3 || arr[0] != Integer(1) || arr[2] != Integer(2) {
		t.Errorf("Expected [1 0 2], got %v", arr)
	}
}

// TestParseIndirectObjectStream tests stream payload extraction
func TestParseIndirectObjectStream(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"exact length", "5 0 obj\n<< /Length 5 >>\nstream\nhello\nendstream\nendobj", "hello"},
		{"crlf", "5 0 obj\n<< /Length 5 >>\nstream\r\nhello\r\nendstream\nendobj", "hello"},
		{"wrong length", "5 0 obj\n<< /Length 99 >>\nstream\nhello\nendstream\nendobj", "hello"},
		{"missing length", "5 0 obj\n<< >>\nstream\nhel\x00lo\nendstream endobj", "hel\x00lo"},
		{"no endobj", "5 0 obj <</Length 2>> stream\nab\nendstream", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, obj, err := NewParserFromBytes([]byte(tt.input)).ParseIndirectObject()
			if err != nil {
				t.Fatalf("ParseIndirectObject failed: %v", err)
			}
			if ref != (Reference{5, 0}) {
				t.Errorf("Expected 5 0 R, got %v", ref)
			}
			stream, ok := obj.(Stream)
			if !ok {
				t.Fatalf("Expected Stream, got %T", obj)
			}
			if string(stream.Data) != tt.want {
				t.Errorf("Data = %q, expected %q", stream.Data, tt.want)
			}
		})
	}
}

// TestParseIndirectLength tests the length resolver callback
func TestParseIndirectLength(t *testing.T) {
	parser := NewParserFromBytes([]byte("3 0 obj << /Length 9 0 R >> stream\nabcendstream\nendobj"))
	parser.SetLengthResolver(func(ref Reference) (int64, bool) {
		if ref.ObjectNumber == 9 {
			return 3, true
		}
		return 0, false
	})

	_, obj, err := parser.ParseIndirectObject()
	if err != nil {
		t.Fatalf("ParseIndirectObject failed: %v", err)
	}
	if got := string(obj.(Stream).Data); got != "abc" {
		t.Errorf("Data = %q, expected abc", got)
	}
}
