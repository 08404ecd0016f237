package images

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/novvoo/go-pdfimages/pkg/pdf"
	"github.com/novvoo/go-pdfimages/pkg/render"
)

// DefaultAsyncTimeout bounds the wait for an asynchronous pixel object
const DefaultAsyncTimeout = 250 * time.Millisecond

// FallbackOptions configures the rendering-subsystem strategy
type FallbackOptions struct {
	// AsyncTimeout bounds the callback attempt before the synchronous one
	AsyncTimeout time.Duration
	// FirstPage and LastPage limit the scanned pages; 0 means unbounded
	FirstPage int
	LastPage  int
}

// FallbackExtractor retrieves the pixel objects a renderer exposes for the
// images painted on each page
type FallbackExtractor struct {
	opts        FallbackOptions
	placeholder *PlaceholderGenerator
	log         zerolog.Logger
}

// NewFallbackExtractor creates the fallback strategy
func NewFallbackExtractor(opts FallbackOptions, placeholder *PlaceholderGenerator, log zerolog.Logger) *FallbackExtractor {
	if opts.AsyncTimeout <= 0 {
		opts.AsyncTimeout = DefaultAsyncTimeout
	}
	return &FallbackExtractor{
		opts:        opts,
		placeholder: placeholder,
		log:         log.With().Str("strategy", StrategyFallback).Logger(),
	}
}

// Extract renders doc and retrieves its images
func (f *FallbackExtractor) Extract(ctx context.Context, doc *pdf.Document) ([]Record, error) {
	return f.Retrieve(ctx, render.New(doc, render.Options{Logger: f.log}))
}

// Retrieve collects one record per distinct image name painted on each
// page of src. Pages that fail to render are skipped.
func (f *FallbackExtractor) Retrieve(ctx context.Context, src render.Source) ([]Record, error) {
	first, last := max(f.opts.FirstPage, 1), src.NumPages()
	if f.opts.LastPage > 0 && f.opts.LastPage < last {
		last = f.opts.LastPage
	}

	var records []Record
	for n := first; n <= last; n++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		page, err := src.Page(n)
		if err != nil {
			f.log.Warn().Err(err).Int("page", n).Msg("page unavailable")
			continue
		}
		ops, err := page.OperatorList()
		if err != nil {
			f.log.Warn().Err(err).Int("page", n).Msg("operator list unavailable")
			continue
		}

		for _, name := range imageNames(ops) {
			obj := f.fetch(ctx, page, name)
			if obj == nil {
				if err := ctx.Err(); err != nil {
					return records, err
				}
				f.log.Warn().Err(ErrRetrievalMiss).Int("page", n).Str("name", name).Msg("image replaced by placeholder")
				records = append(records, f.fallbackPlaceholder(name, n, "Image not available"))
				continue
			}
			rec, err := FromPixelObject(obj, name, n)
			if err != nil {
				f.log.Warn().Err(&DecodeError{Name: name, Err: err}).Int("page", n).Msg("image replaced by placeholder")
				records = append(records, f.fallbackPlaceholder(name, n, err.Error()))
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// fetch tries the callback mode first and waits at most AsyncTimeout for
// it, then asks synchronously
func (f *FallbackExtractor) fetch(ctx context.Context, page render.Page, name string) *render.PixelObject {
	got := make(chan *render.PixelObject, 1)
	page.PixelObject(name, func(obj *render.PixelObject) {
		select {
		case got <- obj:
		default:
		}
	})

	timer := time.NewTimer(f.opts.AsyncTimeout)
	defer timer.Stop()
	select {
	case obj := <-got:
		if obj != nil {
			return obj
		}
	case <-timer.C:
		f.log.Debug().Str("name", name).Dur("timeout", f.opts.AsyncTimeout).Msg("async retrieval timed out")
	case <-ctx.Done():
		return nil
	}

	if obj, ok := page.PixelObjectSync(name); ok {
		return obj
	}
	return nil
}

func (f *FallbackExtractor) fallbackPlaceholder(name string, page int, reason string) Record {
	rec := f.placeholder.Generate(name, page, reason)
	rec.Strategy = StrategyFallback
	return rec
}

// imageNames returns the distinct names painted by ops in first-use order
func imageNames(ops []render.Op) []string {
	seen := make(map[string]bool)
	var names []string
	for _, op := range ops {
		name, ok := op.ImageName()
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// FromPixelObject expands a rendered pixel object into an opaque RGBA
// record. Bitmap pixels take precedence over Data.
func FromPixelObject(obj *render.PixelObject, name string, page int) (Record, error) {
	width, height, data := obj.Width, obj.Height, obj.Data
	if obj.Bitmap != nil {
		data = obj.Bitmap.Data
		if obj.Bitmap.Width > 0 && obj.Bitmap.Height > 0 {
			width, height = obj.Bitmap.Width, obj.Bitmap.Height
		}
	}
	if len(data) == 0 {
		return Record{}, fmt.Errorf("no pixel data")
	}
	if err := pdf.ValidateImageSize(width, height); err != nil {
		return Record{}, err
	}
	pixels, err := Expand(data, width, height, ColorRGB, nil)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Pixels:     pixels,
		Width:      width,
		Height:     height,
		SourcePage: page,
		SourceName: name,
		Status:     StatusDecoded,
		Format:     FormatRGBA,
		Strategy:   StrategyFallback,
	}, nil
}
