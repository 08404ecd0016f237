// Package inflate provides the FlateDecode primitive used for PDF image
// streams.
package inflate

import (
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// DecompressError reports a stream that could not be inflated
type DecompressError struct {
	Err error
}

func (e *DecompressError) Error() string {
	return "inflate: " + e.Err.Error()
}

func (e *DecompressError) Unwrap() error {
	return e.Err
}

// Inflate decompresses zlib-wrapped data. Streams without a valid zlib
// header are retried as raw DEFLATE, which some producers emit. A bad
// Adler-32 trailer is tolerated when the body decoded cleanly.
// Inflate holds no state and is safe for concurrent use.
func Inflate(data []byte) ([]byte, error) {
	return InflateLimit(data, 0)
}

// InflateLimit is Inflate with the output capped at limit bytes. Bytes past
// the cap are never decompressed and the result is truncated without an
// error. A limit <= 0 means no cap.
func InflateLimit(data []byte, limit int) ([]byte, error) {
	if len(data) == 0 {
		return nil, &DecompressError{Err: io.ErrUnexpectedEOF}
	}

	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		if !errors.Is(err, zlib.ErrHeader) {
			return nil, &DecompressError{Err: err}
		}
		return inflateRaw(data, limit)
	}
	defer zr.Close()

	out, err := readAll(zr, limit)
	if err != nil {
		if errors.Is(err, zlib.ErrChecksum) && len(out) > 0 {
			return out, nil
		}
		return nil, &DecompressError{Err: err}
	}
	return out, nil
}

func inflateRaw(data []byte, limit int) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()

	out, err := readAll(fr, limit)
	if err != nil {
		return nil, &DecompressError{Err: err}
	}
	return out, nil
}

func readAll(r io.Reader, limit int) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	var buf bytes.Buffer
	buf.Grow(min(limit, 1<<20))
	_, err := io.Copy(&buf, io.LimitReader(r, int64(limit)))
	return buf.Bytes(), err
}
