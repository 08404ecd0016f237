package images

import (
	"errors"
	"fmt"
)

var (
	// ErrScanSkip marks an image object without usable Width/Height. Such
	// objects are excluded from the index.
	ErrScanSkip = errors.New("image object without geometry")
	// ErrLinkMiss marks an SMask reference that names no scanned image.
	ErrLinkMiss = errors.New("alpha mask reference not found")
	// ErrRetrievalMiss is reported when neither retrieval mode of the
	// rendering subsystem produced an object.
	ErrRetrievalMiss = errors.New("image not available")
	// ErrUnsupported marks images whose encoding or sample layout cannot be
	// reconstructed.
	ErrUnsupported = errors.New("unsupported image")
)

// DecodeError is a failure to reconstruct a single image
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// InputError means the input is not a readable PDF document. It is the only
// error that fails a whole extraction.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Err.Error()
}

func (e *InputError) Unwrap() error { return e.Err }
