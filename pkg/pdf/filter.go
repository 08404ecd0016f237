package pdf

import (
	"errors"
	"fmt"

	"github.com/novvoo/go-pdfimages/pkg/inflate"
)

// ErrUnsupportedFilter is returned for filters this package cannot undo
var ErrUnsupportedFilter = errors.New("unsupported filter")

// Filters returns the stream's filter chain in application order
func (s Stream) Filters() []Name {
	return filterNames(s.Dictionary.Get("Filter"))
}

func filterNames(obj Object) []Name {
	switch f := obj.(type) {
	case Name:
		return []Name{f}
	case Array:
		var names []Name
		for _, item := range f {
			if n, ok := item.(Name); ok {
				names = append(names, n)
			}
		}
		return names
	}
	return nil
}

// DecodeParms returns the parameter dictionary for the i-th filter
func (s Stream) DecodeParms(i int) Dictionary {
	parms := s.Dictionary.Get("DecodeParms")
	if parms == nil {
		parms = s.Dictionary.Get("DP")
	}
	switch p := parms.(type) {
	case Dictionary:
		if i == 0 {
			return p
		}
	case Array:
		if i < len(p) {
			if d, ok := p[i].(Dictionary); ok {
				return d
			}
		}
	}
	return nil
}

// Decode decodes the stream data based on filters. Image codecs (DCT, JPX)
// are left encoded.
func (s Stream) Decode() ([]byte, error) {
	return s.DecodeLimit(0)
}

// DecodeLimit is Decode with the output of every Flate stage capped at
// limit bytes before predictors are undone. A limit <= 0 means no cap.
func (s Stream) DecodeLimit(limit int) ([]byte, error) {
	data := s.Data
	for i, filter := range s.Filters() {
		var err error
		data, err = applyFilter(data, filter, s.DecodeParms(i), limit)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", filter, err)
		}
	}
	return data, nil
}

// applyFilter applies a single filter to decode data
func applyFilter(data []byte, filter Name, params Dictionary, limit int) ([]byte, error) {
	switch filter {
	case "FlateDecode", "Fl":
		return flateDecode(data, params, limit)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(data)
	case "ASCII85Decode", "A85":
		return ascii85Decode(data)
	case "LZWDecode", "LZW":
		return lzwDecode(data, params)
	case "RunLengthDecode", "RL":
		return runLengthDecode(data)
	case "DCTDecode", "DCT", "JPXDecode":
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, filter)
	}
}

// flateDecode decompresses zlib/deflate data
func flateDecode(data []byte, params Dictionary, limit int) ([]byte, error) {
	decoded, err := inflate.InflateLimit(data, limit)
	if err != nil {
		return nil, err
	}
	return ApplyPredictor(decoded, params)
}

// PredictorRowOverhead reports the extra byte per row a PNG predictor
// adds to the decoded data described by params.
func PredictorRowOverhead(params Dictionary) int {
	if params == nil {
		return 0
	}
	if predictor, _ := params.GetInt("Predictor"); predictor >= 10 {
		return 1
	}
	return 0
}

// ApplyPredictor undoes a PNG predictor described by DecodeParms. Data is
// returned unchanged when no PNG predictor is set. A trailing partial row
// is dropped.
func ApplyPredictor(data []byte, params Dictionary) ([]byte, error) {
	if params == nil {
		return data, nil
	}
	predictor, _ := params.GetInt("Predictor")
	if predictor < 10 {
		// no predictor, or TIFF predictor 2 which image producers rarely use
		return data, nil
	}

	columns, ok := params.GetInt("Columns")
	if !ok {
		columns = 1
	}
	colors, ok := params.GetInt("Colors")
	if !ok {
		colors = 1
	}
	bitsPerComponent, ok := params.GetInt("BitsPerComponent")
	if !ok {
		bitsPerComponent = 8
	}

	bytesPerPixel := int((colors*bitsPerComponent + 7) / 8)
	rowBytes := int((columns*colors*bitsPerComponent + 7) / 8)
	stride := rowBytes + 1
	if rowBytes <= 0 {
		return data, nil
	}

	rows := len(data) / stride
	result := make([]byte, rows*rowBytes)
	prevRow := make([]byte, rowBytes)

	for row := 0; row < rows; row++ {
		filterType := data[row*stride]
		src := data[row*stride+1 : (row+1)*stride]
		dst := result[row*rowBytes : (row+1)*rowBytes]

		for i := 0; i < rowBytes; i++ {
			var left, upLeft byte
			if i >= bytesPerPixel {
				left = dst[i-bytesPerPixel]
				upLeft = prevRow[i-bytesPerPixel]
			}
			up := prevRow[i]

			switch filterType {
			case 1: // Sub
				dst[i] = src[i] + left
			case 2: // Up
				dst[i] = src[i] + up
			case 3: // Average
				dst[i] = src[i] + byte((int(left)+int(up))/2)
			case 4: // Paeth
				dst[i] = src[i] + paethPredictor(left, up, upLeft)
			default:
				dst[i] = src[i]
			}
		}
		copy(prevRow, dst)
	}

	return result, nil
}

// paethPredictor implements the Paeth predictor algorithm
func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// asciiHexDecode decodes ASCII hex encoded data
func asciiHexDecode(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data)/2)
	var hi byte
	half := false

	for _, b := range data {
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		v, ok := hexValue(b)
		if !ok {
			return nil, fmt.Errorf("invalid hex character: %c", b)
		}
		if half {
			result = append(result, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		result = append(result, hi<<4)
	}
	return result, nil
}

// ascii85Decode decodes ASCII85 encoded data
func ascii85Decode(data []byte) ([]byte, error) {
	var result []byte
	var tuple uint32
	count := 0

	for _, b := range data {
		if b == '~' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		if b == 'z' && count == 0 {
			result = append(result, 0, 0, 0, 0)
			continue
		}
		if b < '!' || b > 'u' {
			return nil, fmt.Errorf("invalid ASCII85 character: %c", b)
		}

		tuple = tuple*85 + uint32(b-'!')
		count++
		if count == 5 {
			result = append(result, byte(tuple>>24), byte(tuple>>16), byte(tuple>>8), byte(tuple))
			tuple = 0
			count = 0
		}
	}

	if count > 0 {
		for i := count; i < 5; i++ {
			tuple = tuple*85 + 84
		}
		for i := 0; i < count-1; i++ {
			result = append(result, byte(tuple>>(24-i*8)))
		}
	}
	return result, nil
}

// lzwDecode decodes LZW compressed data
func lzwDecode(data []byte, params Dictionary) ([]byte, error) {
	earlyChange := 1
	if ec, ok := params.GetInt("EarlyChange"); ok {
		earlyChange = int(ec)
	}
	decoded, err := lzwDecompress(data, earlyChange)
	if err != nil {
		return nil, err
	}
	return ApplyPredictor(decoded, params)
}

// lzwDecompress performs LZW decompression with MSB-first codes
func lzwDecompress(data []byte, earlyChange int) ([]byte, error) {
	const (
		clearCode = 256
		eodCode   = 257
	)

	dict := make([][]byte, 4096)
	for i := 0; i < 256; i++ {
		dict[i] = []byte{byte(i)}
	}
	nextCode := 258
	codeSize := 9

	var result []byte
	var prev []byte
	bitPos := 0

	for {
		if bitPos+codeSize > len(data)*8 {
			break
		}
		code := 0
		for i := 0; i < codeSize; i++ {
			bit := bitPos + i
			if data[bit/8]&(1<<(7-bit%8)) != 0 {
				code |= 1 << (codeSize - 1 - i)
			}
		}
		bitPos += codeSize

		if code == eodCode {
			break
		}
		if code == clearCode {
			nextCode = 258
			codeSize = 9
			prev = nil
			continue
		}

		var entry []byte
		switch {
		case code < nextCode && dict[code] != nil:
			entry = dict[code]
		case code == nextCode && prev != nil:
			entry = append(append([]byte(nil), prev...), prev[0])
		default:
			return nil, fmt.Errorf("invalid LZW code: %d", code)
		}
		result = append(result, entry...)

		if prev != nil && nextCode < 4096 {
			dict[nextCode] = append(append([]byte(nil), prev...), entry[0])
			nextCode++
			if nextCode+earlyChange > 1<<codeSize && codeSize < 12 {
				codeSize++
			}
		}
		prev = entry
	}

	return result, nil
}

// runLengthDecode decodes run-length encoded data
func runLengthDecode(data []byte) ([]byte, error) {
	var result []byte

	for i := 0; i < len(data); {
		length := int(data[i])
		i++
		if length == 128 {
			break // EOD
		}

		if length < 128 {
			n := length + 1
			if i+n > len(data) {
				return nil, fmt.Errorf("unexpected end of data")
			}
			result = append(result, data[i:i+n]...)
			i += n
			continue
		}

		if i >= len(data) {
			return nil, fmt.Errorf("unexpected end of data")
		}
		for j := 0; j < 257-length; j++ {
			result = append(result, data[i])
		}
		i++
	}

	return result, nil
}
