// Package images extracts the raster images embedded in a PDF document and
// rebuilds them as RGBA pixel buffers, applying SMask alpha channels.
//
// Two independent strategies produce records: ObjectExtractor scans the
// document's indirect objects, FallbackExtractor asks a page renderer for
// the image objects each page paints. Per-image failures become
// placeholder records; only unreadable input fails an extraction.
package images

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/novvoo/go-pdfimages/pkg/pdf"
)

// Extractor produces the image records of a document
type Extractor interface {
	Extract(ctx context.Context, doc *pdf.Document) ([]Record, error)
}

// Options configures a Pipeline
type Options struct {
	// Workers bounds parallel reconstruction; 0 uses one per CPU
	Workers int
	// Strategies lists the enabled extractors by name. Empty enables the
	// object scan only.
	Strategies  []string
	Fallback    FallbackOptions
	Placeholder PlaceholderOptions
	Logger      zerolog.Logger
}

// ObjectExtractor scans indirect objects, links alpha masks and
// reconstructs every primary image
type ObjectExtractor struct {
	workers     int
	placeholder *PlaceholderGenerator
	log         zerolog.Logger
}

// NewObjectExtractor creates the object scan strategy
func NewObjectExtractor(workers int, placeholder *PlaceholderGenerator, log zerolog.Logger) *ObjectExtractor {
	return &ObjectExtractor{
		workers:     workers,
		placeholder: placeholder,
		log:         log.With().Str("strategy", StrategyObjects).Logger(),
	}
}

// Index scans doc and links its descriptors
func (e *ObjectExtractor) Index(doc *pdf.Document) *Index {
	return BuildIndex(NewScanner(doc, e.log).Scan(), e.log)
}

func (e *ObjectExtractor) Extract(ctx context.Context, doc *pdf.Document) ([]Record, error) {
	ix := e.Index(doc)
	records, err := NewReconstructor(ix, e.placeholder, e.workers, e.log).Run(ctx)

	placeholders := 0
	for _, rec := range records {
		if rec.IsPlaceholder() {
			placeholders++
		}
	}
	e.log.Info().
		Int("descriptors", len(ix.Descriptors)).
		Int("records", len(records)).
		Int("placeholders", placeholders).
		Bool("reconstructed_xref", doc.Reconstructed).
		Msg("object scan finished")
	return records, err
}

// Pipeline runs the enabled strategies against one document
type Pipeline struct {
	extractors []Extractor
}

// NewPipeline builds the strategies named in opts
func NewPipeline(opts Options) (*Pipeline, error) {
	placeholder := NewPlaceholderGenerator(opts.Placeholder)
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = []string{StrategyObjects}
	}

	p := &Pipeline{}
	for _, name := range strategies {
		switch name {
		case StrategyObjects:
			p.extractors = append(p.extractors, NewObjectExtractor(opts.Workers, placeholder, opts.Logger))
		case StrategyFallback:
			p.extractors = append(p.extractors, NewFallbackExtractor(opts.Fallback, placeholder, opts.Logger))
		default:
			return nil, fmt.Errorf("unknown extraction strategy %q", name)
		}
	}
	return p, nil
}

// Extract runs every strategy concurrently and concatenates their records
// in strategy order. Records are not deduplicated across strategies.
func (p *Pipeline) Extract(ctx context.Context, doc *pdf.Document) ([]Record, error) {
	results := make([][]Record, len(p.extractors))

	g, gctx := errgroup.WithContext(ctx)
	for i, ex := range p.extractors {
		g.Go(func() error {
			records, err := ex.Extract(gctx, doc)
			results[i] = records
			var inputErr *InputError
			if errors.As(err, &inputErr) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Record
	for _, records := range results {
		out = append(out, records...)
	}
	return out, ctx.Err()
}

// Open parses data as a PDF document. Any failure is an *InputError.
func Open(data []byte) (*pdf.Document, error) {
	doc, err := pdf.NewDocument(data)
	if err != nil {
		return nil, &InputError{Err: err}
	}
	return doc, nil
}

// Extract opens data and runs a pipeline configured by opts
func Extract(ctx context.Context, data []byte, opts Options) ([]Record, error) {
	doc, err := Open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	p, err := NewPipeline(opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	records, err := p.Extract(ctx, doc)
	if err != nil {
		return records, err
	}
	opts.Logger.Info().Int("pages", doc.NumPages()).Int("records", len(records)).Dur("elapsed", time.Since(start)).Msg("extraction finished")
	return records, nil
}
