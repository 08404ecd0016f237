package render

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/novvoo/go-pdfimages/pkg/pdf"
)

// decodeImage rasterizes an image XObject to packed RGB
func decodeImage(doc *pdf.Document, stream pdf.Stream) (*PixelObject, error) {
	dict := stream.Dictionary
	w, okW := dict.GetInt("Width")
	h, okH := dict.GetInt("Height")
	if !okW || !okH {
		return nil, fmt.Errorf("image without Width/Height")
	}
	width, height := int(w), int(h)
	if err := pdf.ValidateImageSize(width, height); err != nil {
		return nil, err
	}

	var codec pdf.Name
	if filters := stream.Filters(); len(filters) > 0 {
		codec = filters[len(filters)-1]
	}
	if codec == "JPXDecode" {
		return nil, fmt.Errorf("JPEG 2000 images are not supported")
	}

	if codec == "DCTDecode" || codec == "DCT" {
		data, err := stream.DecodeLimit(width*height*4 + 1<<20)
		if err != nil {
			return nil, err
		}
		return decodeJPEG(data)
	}

	mask, _ := dict.GetBool("ImageMask")
	bpc := 8
	if v, ok := dict.GetInt("BitsPerComponent"); ok {
		bpc = int(v)
	}
	cs := &pdf.ColorSpace{Family: "DeviceGray", Components: 1}
	if obj := dict.Get("ColorSpace"); obj != nil && !mask {
		var err error
		if cs, err = doc.ResolveColorSpace(obj); err != nil {
			return nil, err
		}
	}
	if mask {
		bpc = 1
	}

	data, err := stream.DecodeLimit(sampleLimit(stream, width, height, cs.Components*bpc))
	if err != nil {
		return nil, err
	}
	if mask {
		rgb, err := expandMask(data, width, height)
		if err != nil {
			return nil, err
		}
		return &PixelObject{Width: width, Height: height, Data: rgb}, nil
	}

	rgb, err := toRGB(data, width, height, bpc, cs)
	if err != nil {
		return nil, err
	}
	return &PixelObject{Width: width, Height: height, Data: rgb}, nil
}

// sampleLimit bounds the decoded size of a stream to what its geometry
// needs. The slack keeps inner stages of a filter chain intact.
func sampleLimit(stream pdf.Stream, width, height, bitsPerPixel int) int {
	var parms pdf.Dictionary
	if n := len(stream.Filters()); n > 0 {
		parms = stream.DecodeParms(n - 1)
	}
	limit := ((width*bitsPerPixel+7)/8 + pdf.PredictorRowOverhead(parms)) * height
	return limit + limit/64 + 1024
}

// decodeJPEG decodes a DCT stream into the Bitmap shape
func decodeJPEG(data []byte) (*PixelObject, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode JPEG: %w", err)
	}
	b := img.Bounds()
	rgb := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			rgb = append(rgb, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	return &PixelObject{
		Width:  b.Dx(),
		Height: b.Dy(),
		Bitmap: &Bitmap{Width: b.Dx(), Height: b.Dy(), Data: rgb},
	}, nil
}

// toRGB converts samples of the given depth and color space to packed RGB
func toRGB(data []byte, width, height, bpc int, cs *pdf.ColorSpace) ([]byte, error) {
	comps := cs.Components
	if comps == 0 || cs.Family == "Lab" || (cs.Base != nil && cs.Base.Family == "Lab") {
		return nil, fmt.Errorf("unsupported color space %s", cs.Family)
	}
	if bpc != 1 && bpc != 2 && bpc != 4 && bpc != 8 {
		return nil, fmt.Errorf("unsupported bits per component %d", bpc)
	}

	rowBytes := (width*comps*bpc + 7) / 8
	if len(data) < rowBytes*height {
		return nil, fmt.Errorf("image data too short: %d < %d", len(data), rowBytes*height)
	}

	out := make([]byte, 0, width*height*3)
	samples := make([]int, comps)
	maxVal := (1 << bpc) - 1

	for y := 0; y < height; y++ {
		row := data[y*rowBytes : (y+1)*rowBytes]
		for x := 0; x < width; x++ {
			for c := 0; c < comps; c++ {
				samples[c] = readSample(row, x*comps+c, bpc)
			}
			if cs.Family == "Indexed" {
				r, g, b := indexedColor(cs, samples[0])
				out = append(out, r, g, b)
				continue
			}
			out = append(out, samplesToRGB(samples, maxVal)...)
		}
	}
	return out, nil
}

func readSample(row []byte, i, bpc int) int {
	if bpc == 8 {
		return int(row[i])
	}
	bit := i * bpc
	b := row[bit/8]
	shift := 8 - bpc - bit%8
	return int(b>>shift) & ((1 << bpc) - 1)
}

func scale(v, maxVal int) byte {
	if maxVal == 255 {
		return byte(v)
	}
	return byte(v * 255 / maxVal)
}

func samplesToRGB(s []int, maxVal int) []byte {
	switch len(s) {
	case 1:
		g := scale(s[0], maxVal)
		return []byte{g, g, g}
	case 3:
		return []byte{scale(s[0], maxVal), scale(s[1], maxVal), scale(s[2], maxVal)}
	case 4:
		c, m, y, k := int(scale(s[0], maxVal)), int(scale(s[1], maxVal)), int(scale(s[2], maxVal)), int(scale(s[3], maxVal))
		return []byte{
			byte(255 - min(255, c+k)),
			byte(255 - min(255, m+k)),
			byte(255 - min(255, y+k)),
		}
	}
	g := scale(s[0], maxVal)
	return []byte{g, g, g}
}

func indexedColor(cs *pdf.ColorSpace, index int) (byte, byte, byte) {
	if index > cs.HiVal {
		index = cs.HiVal
	}
	n := cs.Base.Components
	off := index * n
	if n == 0 || off+n > len(cs.Lookup) {
		return 0, 0, 0
	}
	s := make([]int, n)
	for i := range s {
		s[i] = int(cs.Lookup[off+i])
	}
	rgb := samplesToRGB(s, 255)
	return rgb[0], rgb[1], rgb[2]
}

// expandMask turns a 1-bit stencil into RGB: painted samples (0) are black
func expandMask(data []byte, width, height int) ([]byte, error) {
	rowBytes := (width + 7) / 8
	if len(data) < rowBytes*height {
		return nil, fmt.Errorf("image mask data too short")
	}
	out := make([]byte, 0, width*height*3)
	for y := 0; y < height; y++ {
		row := data[y*rowBytes : (y+1)*rowBytes]
		for x := 0; x < width; x++ {
			v := byte(255)
			if readSample(row, x, 1) == 0 {
				v = 0
			}
			out = append(out, v, v, v)
		}
	}
	return out, nil
}
