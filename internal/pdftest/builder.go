// Package pdftest writes small PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/klauspost/compress/zlib"
)

// Builder collects numbered objects and writes them with a valid xref table.
type Builder struct {
	objects map[int][]byte
	root    int
	trailer string

	// BreakXRef makes Bytes write a startxref offset that points nowhere,
	// forcing readers to rebuild the cross-reference data.
	BreakXRef bool
}

// New returns an empty builder whose catalog is object 1.
func New() *Builder {
	return &Builder{objects: make(map[int][]byte), root: 1}
}

// Object stores a non-stream object body such as "<< /Type /Catalog >>".
func (b *Builder) Object(num int, body string) *Builder {
	b.objects[num] = []byte(body)
	return b
}

// Stream stores a stream object. dict holds the dictionary entries without
// the enclosing brackets; /Length is added.
func (b *Builder) Stream(num int, dict string, data []byte) *Builder {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s /Length %d >>\nstream\n", dict, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	b.objects[num] = buf.Bytes()
	return b
}

// Root sets the catalog object number.
func (b *Builder) Root(num int) *Builder {
	b.root = num
	return b
}

// Trailer appends extra entries to the trailer dictionary.
func (b *Builder) Trailer(entries string) *Builder {
	b.trailer = entries
	return b
}

// Bytes renders the document.
func (b *Builder) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	buf.WriteString("%\xe2\xe3\xcf\xd3\n")

	nums := make([]int, 0, len(b.objects))
	for n := range b.objects {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	offsets := make(map[int]int, len(nums))
	for _, n := range nums {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", n)
		buf.Write(b.objects[n])
		buf.WriteString("\nendobj\n")
	}

	size := 1
	if len(nums) > 0 {
		size = nums[len(nums)-1] + 1
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	for n := 0; n < size; n++ {
		if off, ok := offsets[n]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R %s>>\n", size, b.root, b.trailer)
	if b.BreakXRef {
		xrefOffset = 5
	}
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}

// Deflate compresses data with the zlib wrapper used by FlateDecode.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// SinglePage adds a catalog (1), a page tree (2) and one page (3) whose
// resources and content stream (object 4) are given.
func (b *Builder) SinglePage(resources string, contents string) *Builder {
	b.Object(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.Object(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.Object(3, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources %s /Contents 4 0 R >>", resources))
	b.Stream(4, "", []byte(contents))
	return b
}
