package images

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/crypto/blake2b"
)

// Status tells decoded images from placeholders
type Status int

const (
	StatusDecoded Status = iota
	StatusPlaceholder
)

func (s Status) String() string {
	if s == StatusPlaceholder {
		return "placeholder"
	}
	return "decoded"
}

// Format is the shape of a record's payload
type Format int

const (
	// FormatRGBA records carry width*height*4 bytes in Pixels
	FormatRGBA Format = iota
	// FormatJPEG records carry a complete JPEG bitstream in Encoded
	FormatJPEG
)

// Strategy names
const (
	StrategyObjects  = "objects"
	StrategyFallback = "fallback"
)

// Record is one extracted image. Records are immutable once returned.
type Record struct {
	Pixels     []byte
	Width      int
	Height     int
	SourcePage int
	SourceName string
	Status     Status
	// Reason explains a placeholder
	Reason   string
	Format   Format
	Encoded  []byte
	Strategy string
}

// IsPlaceholder reports whether the record stands in for a failed image
func (r Record) IsPlaceholder() bool {
	return r.Status == StatusPlaceholder
}

// Image returns the record as an image. JPEG records are decoded.
func (r Record) Image() (image.Image, error) {
	if r.Format == FormatJPEG {
		img, err := jpeg.Decode(bytes.NewReader(r.Encoded))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.SourceName, err)
		}
		return img, nil
	}
	if len(r.Pixels) != r.Width*r.Height*4 {
		return nil, fmt.Errorf("%s: %d pixel bytes for %dx%d", r.SourceName, len(r.Pixels), r.Width, r.Height)
	}
	return &image.NRGBA{
		Pix:    r.Pixels,
		Stride: r.Width * 4,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}, nil
}

// Digest is the hex BLAKE2b-256 of the record payload
func (r Record) Digest() string {
	payload := r.Pixels
	if r.Format == FormatJPEG {
		payload = r.Encoded
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
