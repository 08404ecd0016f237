package pdf

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/novvoo/go-pdfimages/internal/pdftest"
	"github.com/novvoo/go-pdfimages/pkg/inflate"
)

// TestStreamFilters tests filter list normalization
func TestStreamFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter Object
		want   []Name
	}{
		{"none", nil, nil},
		{"single", Name("FlateDecode"), []Name{"FlateDecode"}},
		{"chain", Array{Name("ASCII85Decode"), Name("DCTDecode")}, []Name{"ASCII85Decode", "DCTDecode"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dict := Dictionary{}
			if tt.filter != nil {
				dict["Filter"] = tt.filter
			}
			got := Stream{Dictionary: dict}.Filters()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filters() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestStreamDecode tests decoding through filter chains
func TestStreamDecode(t *testing.T) {
	plain := []byte("image samples")

	tests := []struct {
		name   string
		dict   Dictionary
		data   []byte
		expect []byte
	}{
		{"unfiltered", Dictionary{}, plain, plain},
		{"flate", Dictionary{"Filter": Name("FlateDecode")}, pdftest.Deflate(plain), plain},
		{"hex", Dictionary{"Filter": Name("AHx")}, []byte("48 65 6C6C6F>"), []byte("Hello")},
		{"ascii85", Dictionary{"Filter": Name("ASCII85Decode")}, []byte("87cURD]i,\"Ebo7~>"), []byte("Hello World")},
		{"runlength", Dictionary{"Filter": Name("RunLengthDecode")}, []byte{2, 'a', 'b', 'c', 254, 'z', 128}, []byte("abczzz")},
		{"dct untouched", Dictionary{"Filter": Name("DCTDecode")}, []byte{0xFF, 0xD8}, []byte{0xFF, 0xD8}},
		{
			"hex then flate",
			Dictionary{"Filter": Array{Name("ASCIIHexDecode"), Name("FlateDecode")}},
			[]byte(hexEncode(pdftest.Deflate(plain)) + ">"),
			plain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Stream{Dictionary: tt.dict, Data: tt.data}.Decode()
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if diff := cmp.Diff(tt.expect, got); diff != "" {
				t.Errorf("Decode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestStreamDecodeErrors tests failure reporting
func TestStreamDecodeErrors(t *testing.T) {
	_, err := Stream{Dictionary: Dictionary{"Filter": Name("JBIG2Decode")}}.Decode()
	if !errors.Is(err, ErrUnsupportedFilter) {
		t.Errorf("Expected ErrUnsupportedFilter, got %v", err)
	}

	_, err = Stream{Dictionary: Dictionary{"Filter": Name("FlateDecode")}, Data: []byte{0x78, 0x9c, 0xff, 0xff}}.Decode()
	var de *inflate.DecompressError
	if !errors.As(err, &de) {
		t.Errorf("Expected DecompressError, got %v", err)
	}
}

// TestApplyPredictor tests PNG predictor rows
func TestApplyPredictor(t *testing.T) {
	params := Dictionary{"Predictor": Integer(12), "Columns": Integer(3)}
	data := []byte{
		0, 10, 20, 30, // None
		1, 1, 1, 1, // Sub
		2, 5, 5, 5, // Up
	}
	want := []byte{
		10, 20, 30,
		1, 2, 3,
		6, 7, 8,
	}

	got, err := ApplyPredictor(data, params)
	if err != nil {
		t.Fatalf("ApplyPredictor failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ApplyPredictor mismatch (-want +got):\n%s", diff)
	}

	// a truncated last row is dropped
	short, err := ApplyPredictor(append(data, 0, 9), params)
	if err != nil {
		t.Fatalf("ApplyPredictor failed: %v", err)
	}
	if diff := cmp.Diff(want, short); diff != "" {
		t.Errorf("partial row mismatch (-want +got):\n%s", diff)
	}

	// without a PNG predictor the data passes through
	same, _ := ApplyPredictor(data, Dictionary{"Predictor": Integer(1)})
	if diff := cmp.Diff(data, same); diff != "" {
		t.Errorf("predictor 1 changed data:\n%s", diff)
	}
}

// TestPaethPredictor tests the Paeth selection rule
func TestPaethPredictor(t *testing.T) {
	tests := []struct{ a, b, c, want byte }{
		{0, 0, 0, 0},
		{10, 20, 10, 20},
		{20, 10, 10, 20},
		{5, 5, 10, 5},
	}
	for _, tt := range tests {
		if got := paethPredictor(tt.a, tt.b, tt.c); got != tt.want {
			t.Errorf("paethPredictor(%d,%d,%d) = %d, expected %d", tt.a, tt.b, tt.c, got, tt.want)
		}
	}
}

// TestLZWDecode tests a short LZW sequence
func TestLZWDecode(t *testing.T) {
	// codes 45 45 258 257 at 9 bits; 258 is "--" added after the second code
	data := []byte{0x16, 0x8B, 0x60, 0x50, 0x10}
	got, err := lzwDecompress(data, 1)
	if err != nil {
		t.Fatalf("lzwDecompress failed: %v", err)
	}
	if string(got) != "----" {
		t.Errorf("lzwDecompress = %q, expected ----", got)
	}
}

func hexEncode(data []byte) string {
	const digits = "0123456789ABCDEF"
	out := make([]byte, 0, len(data)*2)
	for _, b := range data {
		out = append(out, digits[b>>4], digits[b&0x0F])
	}
	return string(out)
}
