package inflate

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

func zlibBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

// TestInflateZlib tests a regular zlib stream
func TestInflateZlib(t *testing.T) {
	want := []byte{10, 20, 30, 40, 0, 255}
	got, err := Inflate(zlibBytes(t, want))
	if err != nil {
		t.Fatalf("Inflate failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

// TestInflateRawDeflate tests a headerless DEFLATE stream
func TestInflateRawDeflate(t *testing.T) {
	want := bytes.Repeat([]byte("abc"), 50)

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate writer: %v", err)
	}
	w.Write(want)
	w.Close()

	got, err := Inflate(buf.Bytes())
	if err != nil {
		t.Fatalf("Inflate failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("raw deflate round trip mismatch")
	}
}

// TestInflateBadChecksum tests that a damaged Adler-32 trailer is tolerated
func TestInflateBadChecksum(t *testing.T) {
	want := []byte("checksum trailer damaged")
	data := zlibBytes(t, want)
	data[len(data)-1] ^= 0xFF

	got, err := Inflate(data)
	if err != nil {
		t.Fatalf("Inflate failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// TestInflateCorrupt tests malformed input
func TestInflateCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"reserved block type", []byte{0x78, 0x9c, 0xff, 0xff, 0xff, 0xff}},
		{"truncated", zlibBytes(t, bytes.Repeat([]byte{1, 2, 3, 4}, 64))[:8]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inflate(tt.data)
			if err == nil {
				t.Fatal("Expected error for corrupt stream")
			}
			var de *DecompressError
			if !errors.As(err, &de) {
				t.Errorf("Expected *DecompressError, got %T", err)
			}
		})
	}
}

// TestInflateLimit tests that output past the cap is not produced
func TestInflateLimit(t *testing.T) {
	big := make([]byte, 8<<20)
	data := zlibBytes(t, big)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"capped", 16, 16},
		{"exact", len(big), len(big)},
		{"above", len(big) + 1, len(big)},
		{"unlimited", 0, len(big)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InflateLimit(data, tt.limit)
			if err != nil {
				t.Fatalf("InflateLimit failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Expected %d bytes, got %d", tt.want, len(got))
			}
		})
	}
}
