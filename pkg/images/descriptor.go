package images

import (
	"fmt"

	"github.com/novvoo/go-pdfimages/pkg/pdf"
)

// ColorSpace selects the channel expansion rule of an image
type ColorSpace int

const (
	ColorOther ColorSpace = iota
	ColorGray
	ColorRGB
)

func (c ColorSpace) String() string {
	switch c {
	case ColorGray:
		return "gray"
	case ColorRGB:
		return "rgb"
	}
	return "other"
}

// channels returns the bytes per pixel of the color samples
func (c ColorSpace) channels() int {
	switch c {
	case ColorGray:
		return 1
	case ColorRGB:
		return 3
	}
	return 0
}

// Encoding selects the reconstruction path of an image
type Encoding int

const (
	EncodingDeflate Encoding = iota
	EncodingJPEG
	EncodingUnsupported
)

func (e Encoding) String() string {
	switch e {
	case EncodingDeflate:
		return "flate"
	case EncodingJPEG:
		return "jpeg"
	}
	return "other"
}

// Descriptor describes one image XObject found in the document
type Descriptor struct {
	Ref              pdf.Reference
	Width            int
	Height           int
	ColorSpace       ColorSpace
	Encoding         Encoding
	BitsPerComponent int

	// Filters is the declared filter chain; Raw the undecoded payload,
	// aliasing the document buffer.
	Filters     []pdf.Name
	DecodeParms pdf.Dictionary
	Raw         []byte

	// AlphaRef is the SMask reference. Linking clears it when it does not
	// resolve to another scanned image.
	AlphaRef    *pdf.Reference
	IsAlphaMask bool

	// Page is the first page painting the image, 0 when unknown. Name is
	// its resource name on that page.
	Page int
	Name string

	// declaredColor records whether the dictionary had a ColorSpace entry
	declaredColor bool
	dict          pdf.Dictionary
}

// SourceName is the diagnostic identity of the image
func (d *Descriptor) SourceName() string {
	if d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("obj %d %d", d.Ref.ObjectNumber, d.Ref.GenerationNumber)
}
