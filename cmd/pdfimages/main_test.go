package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/novvoo/go-pdfimages/internal/pdftest"
)

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	b := pdftest.New().SinglePage("<< /XObject << /Im1 5 0 R /Im2 6 0 R >> >>", "/Im1 Do /Im2 Do")
	b.Stream(5, "/Subtype /Image /Width 2 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8 /Filter /FlateDecode", pdftest.Deflate([]byte{0, 255}))
	b.Stream(6, "/Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode", []byte{0xff, 0xd8, 0xff, 0xd9})
	pdfPath := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(pdfPath, b.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	root := filepath.Join(dir, "out", "img")
	rootCmd.SetArgs([]string{"extract", "-c", filepath.Join(dir, "none.yaml"), "--log-level", "error", "--strategy", "objects", pdfPath, root})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	f, err := os.Open(root + "-000.png")
	if err != nil {
		t.Fatalf("missing PNG output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Errorf("PNG bounds = %v", b)
	}

	jpg, err := os.ReadFile(root + "-001.jpg")
	if err != nil {
		t.Fatalf("missing JPEG output: %v", err)
	}
	if len(jpg) != 4 || jpg[0] != 0xff || jpg[1] != 0xd8 {
		t.Errorf("JPEG bytes = %x", jpg)
	}
}

func TestExtractCommandRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	rootCmd.SetArgs([]string{"extract", "-c", filepath.Join(dir, "none.yaml"), "--log-level", "error", path, filepath.Join(dir, "img")})
	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error for non-PDF input")
	}
}
