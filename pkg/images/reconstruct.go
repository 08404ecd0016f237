package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/novvoo/go-pdfimages/pkg/inflate"
	"github.com/novvoo/go-pdfimages/pkg/pdf"
)

// Expand interleaves color samples and an optional alpha channel into RGBA.
// Gray samples are replicated into R, G and B. Without alpha every pixel is
// opaque; alpha bytes missing at the end of a short mask read as 0.
func Expand(color []byte, width, height int, cs ColorSpace, alpha []byte) ([]byte, error) {
	channels := cs.channels()
	if channels == 0 {
		return nil, fmt.Errorf("%w: color space %s", ErrUnsupported, cs)
	}
	pixels := width * height
	if need := pixels * channels; len(color) < need {
		return nil, fmt.Errorf("color data too short: %d bytes for %dx%d %s", len(color), width, height, cs)
	}

	out := make([]byte, pixels*4)
	for p, c := 0, 0; p < pixels; p, c = p+1, c+channels {
		o := p * 4
		if channels == 1 {
			out[o], out[o+1], out[o+2] = color[c], color[c], color[c]
		} else {
			out[o], out[o+1], out[o+2] = color[c], color[c+1], color[c+2]
		}
		switch {
		case alpha == nil:
			out[o+3] = 255
		case p < len(alpha):
			out[o+3] = alpha[p]
		}
	}
	return out, nil
}

// Reconstructor turns indexed descriptors into records
type Reconstructor struct {
	ix          *Index
	placeholder *PlaceholderGenerator
	workers     int
	log         zerolog.Logger
}

// NewReconstructor creates a reconstructor. workers <= 0 uses one per CPU.
func NewReconstructor(ix *Index, placeholder *PlaceholderGenerator, workers int, log zerolog.Logger) *Reconstructor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Reconstructor{ix: ix, placeholder: placeholder, workers: workers, log: log}
}

// Run reconstructs every primary descriptor on a bounded worker pool and
// returns the records in descriptor order. Once ctx is done no new images
// are started; the finished records are returned with ctx.Err().
func (r *Reconstructor) Run(ctx context.Context) ([]Record, error) {
	primaries := r.ix.Primaries()
	records := make([]Record, len(primaries))
	done := make([]bool, len(primaries))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for k, i := range primaries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			records[k] = r.Reconstruct(i)
			done[k] = true
			return nil
		})
	}
	g.Wait()

	out := make([]Record, 0, len(records))
	for k := range records {
		if done[k] {
			out = append(out, records[k])
		}
	}
	return out, ctx.Err()
}

// Reconstruct produces the record for descriptor i. Failures yield a
// placeholder.
func (r *Reconstructor) Reconstruct(i int) Record {
	d := &r.ix.Descriptors[i]
	rec, err := r.reconstruct(i, d)
	if err != nil {
		derr := &DecodeError{Name: d.SourceName(), Err: err}
		r.log.Warn().Err(derr).Int("page", d.Page).Msg("image replaced by placeholder")
		rec = r.placeholder.Generate(d.SourceName(), d.Page, reason(err))
	}
	rec.Strategy = StrategyObjects
	return rec
}

func (r *Reconstructor) reconstruct(i int, d *Descriptor) (Record, error) {
	if err := pdf.ValidateImageSize(d.Width, d.Height); err != nil {
		return Record{}, err
	}
	rec := Record{
		Width:      d.Width,
		Height:     d.Height,
		SourcePage: d.Page,
		SourceName: d.SourceName(),
		Status:     StatusDecoded,
	}

	switch d.Encoding {
	case EncodingJPEG:
		data, err := jpegData(d)
		if err != nil {
			return Record{}, err
		}
		rec.Format = FormatJPEG
		rec.Encoded = data
		return rec, nil
	case EncodingUnsupported:
		return Record{}, fmt.Errorf("%w: filter %v", ErrUnsupported, d.Filters)
	}

	if d.ColorSpace == ColorOther {
		return Record{}, errUnsupportedColor
	}
	if d.BitsPerComponent != 8 {
		return Record{}, errUnsupportedDepth
	}

	color, err := samples(d, d.ColorSpace.channels())
	if err != nil {
		return Record{}, err
	}

	var alpha []byte
	if mask, ok := r.ix.Mask(i); ok {
		if alpha, err = r.alpha(d, mask); err != nil {
			return Record{}, fmt.Errorf("alpha mask %s: %w", mask.Ref, err)
		}
	}

	if rec.Pixels, err = Expand(color, d.Width, d.Height, d.ColorSpace, alpha); err != nil {
		return Record{}, err
	}
	rec.Format = FormatRGBA
	return rec, nil
}

// alpha decodes the samples of mask. Masks that are not 8-bit Flate data
// are ignored and their image stays opaque.
func (r *Reconstructor) alpha(d, mask *Descriptor) ([]byte, error) {
	if mask.Encoding != EncodingDeflate || mask.BitsPerComponent != 8 {
		r.log.Warn().Str("image", d.SourceName()).Str("smask", mask.Ref.String()).
			Str("encoding", mask.Encoding.String()).Int("bpc", mask.BitsPerComponent).
			Msg("ignoring unsupported alpha mask")
		return nil, nil
	}
	return samples(mask, 1)
}

var (
	errUnsupportedColor = fmt.Errorf("%w: unsupported color space", ErrUnsupported)
	errUnsupportedDepth = fmt.Errorf("%w: unsupported bits per component", ErrUnsupported)
)

// samples undoes the Flate stages of a descriptor. Unfiltered payloads are
// returned as they are. Decompression stops once the declared geometry is
// covered, so the output never exceeds what Expand reads.
func samples(d *Descriptor, channels int) ([]byte, error) {
	limit := (d.Width*channels + pdf.PredictorRowOverhead(d.DecodeParms)) * d.Height
	data := d.Raw
	for k := range d.Filters {
		stage := limit
		if k < len(d.Filters)-1 {
			// inner stages hold compressed data, which may be slightly larger
			stage += limit/64 + 1024
		}
		out, err := inflate.InflateLimit(data, stage)
		if err != nil {
			return nil, err
		}
		data = out
	}
	if d.DecodeParms != nil {
		return pdf.ApplyPredictor(data, d.DecodeParms)
	}
	return data, nil
}

var (
	jpegSOI    = []byte{0xff, 0xd8}
	errNotJPEG = errors.New("filtered DCT data is not a JPEG stream")
)

// jpegData returns the JPEG file of a DCT image. Filters applied on top of
// the DCT data are undone; a stream with DCTDecode as its only filter is
// passed through untouched.
func jpegData(d *Descriptor) ([]byte, error) {
	if len(d.Filters) == 1 {
		return d.Raw, nil
	}
	stream := pdf.Stream{Dictionary: d.dict, Data: d.Raw}
	if stream.Dictionary == nil {
		stream.Dictionary = filterDict(d.Filters)
	}
	// four bytes per pixel plus room for metadata segments
	data, err := stream.DecodeLimit(d.Width*d.Height*4 + 1<<20)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, jpegSOI) {
		return nil, errNotJPEG
	}
	return data, nil
}

func filterDict(filters []pdf.Name) pdf.Dictionary {
	arr := make(pdf.Array, len(filters))
	for i, f := range filters {
		arr[i] = f
	}
	return pdf.Dictionary{"Filter": arr}
}

// reason is the short text shown on a placeholder
func reason(err error) string {
	switch {
	case errors.Is(err, errUnsupportedColor):
		return "unsupported color space"
	case errors.Is(err, errUnsupportedDepth):
		return "unsupported bits per component"
	}
	var derr *inflate.DecompressError
	if errors.As(err, &derr) {
		return "decompression failed"
	}
	return err.Error()
}
