package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/novvoo/go-pdfimages/internal/pdftest"
)

func encryptedPDF(sec *pdftest.Security, contents string) []byte {
	b := pdftest.New()
	b.Object(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.Object(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.Object(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents 4 0 R >>")
	b.Stream(4, "", sec.Encrypt(4, []byte(contents)))
	b.Object(5, fmt.Sprintf("<< /Title %s /Tags [%s] >>", sec.String(5, "Quarterly report"), sec.String(5, "draft")))
	b.Object(6, sec.Dict())
	b.Trailer(sec.Trailer(6))
	return b.Bytes()
}

// TestDecryptDocument tests opening documents with an empty user password
func TestDecryptDocument(t *testing.T) {
	tests := []struct {
		name     string
		revision int
		method   CryptMethod
	}{
		{"rc4 40-bit", 2, CryptRC4},
		{"rc4 128-bit", 3, CryptRC4},
		{"aes 128", 4, CryptAESV2},
		{"aes 256", 5, CryptAESV3},
		{"aes 256 pdf 2.0", 6, CryptAESV3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewDocument(encryptedPDF(pdftest.NewSecurity(tt.revision), "q 1 0 0 1 0 0 cm Q"))
			if err != nil {
				t.Fatalf("Failed to open encrypted document: %v", err)
			}
			defer doc.Close()

			if !doc.IsEncrypted() {
				t.Error("IsEncrypted = false")
			}
			if sh := doc.Security(); sh == nil || sh.StreamMethod != tt.method || sh.StringMethod != tt.method {
				t.Fatalf("security handler = %+v", sh)
			}

			page, err := doc.GetPage(1)
			if err != nil {
				t.Fatalf("GetPage failed: %v", err)
			}
			contents, err := page.GetContents()
			if err != nil {
				t.Fatalf("GetContents failed: %v", err)
			}
			if string(contents) != "q 1 0 0 1 0 0 cm Q" {
				t.Errorf("contents = %q", contents)
			}

			obj, err := doc.GetObject(5)
			if err != nil {
				t.Fatalf("GetObject failed: %v", err)
			}
			info := obj.(Dictionary)
			if title, _ := info.Get("Title").(String); string(title.Value) != "Quarterly report" {
				t.Errorf("Title = %q", title.Value)
			}
			tags, _ := info.GetArray("Tags")
			if tag, _ := tags[0].(String); string(tag.Value) != "draft" {
				t.Errorf("Tags = %v", tags)
			}
		})
	}
}

// TestDecryptWrongPassword tests a user password that is not empty
func TestDecryptWrongPassword(t *testing.T) {
	sec := pdftest.NewSecurity(4)
	// a different document ID changes the file key, so U no longer matches
	id := fmt.Sprintf("<%x>", sec.ID())
	data := bytes.Replace(encryptedPDF(sec, "q Q"), []byte(id), []byte(fmt.Sprintf("<%x>", "another-document")), 1)

	_, err := NewDocument(data)
	if !errors.Is(err, ErrEncrypted) {
		t.Errorf("Expected ErrEncrypted, got %v", err)
	}
}

// TestUnsupportedSecurityHandler tests a non-standard handler
func TestUnsupportedSecurityHandler(t *testing.T) {
	if _, err := NewSecurityHandler(Dictionary{"Filter": Name("Adobe.PubSec"), "V": Integer(4)}, nil); err == nil {
		t.Error("Expected error for public-key security handler")
	}
	if _, err := NewSecurityHandler(Dictionary{"Filter": Name("Standard"), "V": Integer(7)}, nil); err == nil {
		t.Error("Expected error for unknown version")
	}
}

// TestIdentityCryptFilter tests that Identity streams are left alone
func TestIdentityCryptFilter(t *testing.T) {
	dict := Dictionary{
		"Filter": Name("Standard"), "V": Integer(4), "R": Integer(4),
		"CF":   Dictionary{"StdCF": Dictionary{"CFM": Name("AESV2")}},
		"StmF": Name("Identity"), "StrF": Name("StdCF"),
	}
	sh, err := NewSecurityHandler(dict, nil)
	if err != nil {
		t.Fatalf("NewSecurityHandler failed: %v", err)
	}
	if sh.StreamMethod != CryptNone || sh.StringMethod != CryptAESV2 {
		t.Errorf("methods = %v/%v", sh.StreamMethod, sh.StringMethod)
	}

	stream := Stream{Dictionary: Dictionary{}, Data: []byte("plain")}
	out, err := sh.DecryptObject(stream, 7, 0)
	if err != nil {
		t.Fatalf("DecryptObject failed: %v", err)
	}
	if string(out.(Stream).Data) != "plain" {
		t.Errorf("Data = %q", out.(Stream).Data)
	}
}
