// Package render exposes the drawing operations of PDF pages and the
// rasterized image objects they paint, addressed by generated names.
package render

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/novvoo/go-pdfimages/pkg/pdf"
)

// maxFormDepth bounds nesting of Form XObjects
const maxFormDepth = 12

// PixelObject is a rasterized image. Data holds packed RGB samples; some
// objects carry them in Bitmap instead.
type PixelObject struct {
	Width  int
	Height int
	Data   []byte
	Bitmap *Bitmap
}

// Bitmap is the alternate pixel shape used for images decoded by an
// image codec.
type Bitmap struct {
	Width  int
	Height int
	Data   []byte
}

// Page is a rendered page
type Page interface {
	Number() int
	OperatorList() ([]Op, error)
	// PixelObject delivers the named object to cb from another goroutine.
	// cb receives nil when the object cannot be produced.
	PixelObject(name string, cb func(*PixelObject))
	PixelObjectSync(name string) (*PixelObject, bool)
}

// Source hands out rendered pages, numbered from 1
type Source interface {
	NumPages() int
	Page(n int) (Page, error)
}

// Options configures a Renderer
type Options struct {
	Logger zerolog.Logger
}

// Renderer renders pages of one document. It is safe for concurrent use.
type Renderer struct {
	doc *pdf.Document
	log zerolog.Logger

	mu    sync.Mutex
	pages map[int]*pageHandle
}

// New creates a renderer for doc
func New(doc *pdf.Document, opts Options) *Renderer {
	return &Renderer{
		doc:   doc,
		log:   opts.Logger.With().Str("component", "render").Logger(),
		pages: make(map[int]*pageHandle),
	}
}

// NumPages returns the number of pages
func (r *Renderer) NumPages() int {
	return r.doc.NumPages()
}

// Page returns the handle for page n (1-indexed). Handles are cached.
func (r *Renderer) Page(n int) (Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.pages[n]; ok {
		return h, nil
	}
	page, err := r.doc.GetPage(n)
	if err != nil {
		return nil, err
	}
	h := &pageHandle{
		r:       r,
		page:    page,
		objects: make(map[string]*pixelEntry),
	}
	r.pages[n] = h
	return h, nil
}

type pageHandle struct {
	r    *Renderer
	page *pdf.Page

	opsOnce sync.Once
	ops     []Op
	opsErr  error
	streams map[string]pdf.Stream

	mu      sync.Mutex
	objects map[string]*pixelEntry
}

type pixelEntry struct {
	once sync.Once
	obj  *PixelObject
	err  error
}

func (h *pageHandle) Number() int {
	return h.page.Number
}

// OperatorList returns the page's drawing operations. Form XObjects are
// expanded in place between begin and end markers.
func (h *pageHandle) OperatorList() ([]Op, error) {
	h.opsOnce.Do(func() {
		contents, err := h.page.GetContents()
		if err != nil {
			h.opsErr = fmt.Errorf("page %d contents: %w", h.page.Number, err)
			return
		}
		b := &opBuilder{
			doc:     h.page.Document(),
			page:    h.page.Number,
			ids:     make(map[pdf.Reference]string),
			streams: make(map[string]pdf.Stream),
			active:  make(map[pdf.Reference]bool),
		}
		b.walk(contents, h.page.Resources, 0)
		h.ops = b.ops
		h.streams = b.streams
	})
	return h.ops, h.opsErr
}

func (h *pageHandle) PixelObject(name string, cb func(*PixelObject)) {
	go func() {
		obj, ok := h.PixelObjectSync(name)
		if !ok {
			obj = nil
		}
		cb(obj)
	}()
}

func (h *pageHandle) PixelObjectSync(name string) (*PixelObject, bool) {
	if _, err := h.OperatorList(); err != nil {
		return nil, false
	}
	stream, ok := h.streams[name]
	if !ok {
		return nil, false
	}

	h.mu.Lock()
	entry, ok := h.objects[name]
	if !ok {
		entry = &pixelEntry{}
		h.objects[name] = entry
	}
	h.mu.Unlock()

	entry.once.Do(func() {
		entry.obj, entry.err = decodeImage(h.page.Document(), stream)
		if entry.err != nil {
			h.r.log.Debug().Err(entry.err).Str("name", name).Int("page", h.page.Number).Msg("pixel object unavailable")
		}
	})
	return entry.obj, entry.err == nil
}

// opBuilder flattens a content stream and its forms into an operator list
type opBuilder struct {
	doc     *pdf.Document
	page    int
	ops     []Op
	ids     map[pdf.Reference]string
	streams map[string]pdf.Stream
	active  map[pdf.Reference]bool
	lastImg string
}

func (b *opBuilder) walk(content []byte, resources pdf.Dictionary, depth int) {
	operations, _ := pdf.NewContentStreamParser(content).ParseOperations()
	for _, op := range operations {
		switch op.Operator {
		case "Do":
			b.paintXObject(op, resources, depth)
			continue
		case "BI":
			b.lastImg = ""
			b.ops = append(b.ops, Op{Code: OpPaintInlineImageXObject, Operator: op.Operator, Args: operandArgs(op)})
			continue
		}
		b.ops = append(b.ops, Op{Code: OpOther, Operator: op.Operator, Args: operandArgs(op)})
	}
}

func operandArgs(op pdf.Operation) []any {
	args := make([]any, len(op.Operands))
	for i, v := range op.Operands {
		args[i] = v
	}
	return args
}

func (b *opBuilder) paintXObject(op pdf.Operation, resources pdf.Dictionary, depth int) {
	if len(op.Operands) == 0 {
		return
	}
	name, ok := op.Operands[len(op.Operands)-1].(pdf.Name)
	if !ok {
		return
	}
	xobjects, ok := b.doc.ResolveDict(resources.Get("XObject"))
	if !ok {
		return
	}
	entry := xobjects.Get(string(name))
	ref, _ := entry.(pdf.Reference)
	obj, err := b.doc.ResolveObject(entry)
	if err != nil {
		return
	}
	stream, ok := obj.(pdf.Stream)
	if !ok {
		return
	}

	switch subtype, _ := stream.Dictionary.GetName("Subtype"); subtype {
	case "Image":
		b.paintImage(ref, stream)
	case "Form":
		if depth >= maxFormDepth || b.active[ref] {
			return
		}
		data, err := stream.Decode()
		if err != nil {
			return
		}
		formResources := resources
		if res, ok := b.doc.ResolveDict(stream.Dictionary.Get("Resources")); ok {
			formResources = res
		}

		if ref != (pdf.Reference{}) {
			b.active[ref] = true
		}
		b.lastImg = ""
		b.ops = append(b.ops, Op{Code: OpPaintFormXObjectBegin, Operator: "Do", Args: []any{string(name)}})
		b.walk(data, formResources, depth+1)
		b.ops = append(b.ops, Op{Code: OpPaintFormXObjectEnd, Operator: "Do", Args: []any{string(name)}})
		b.lastImg = ""
		delete(b.active, ref)
	}
}

func (b *opBuilder) paintImage(ref pdf.Reference, stream pdf.Stream) {
	id, seen := b.ids[ref]
	if !seen || ref == (pdf.Reference{}) {
		id = fmt.Sprintf("img_p%d_%d", b.page-1, len(b.streams)+1)
		b.streams[id] = stream
		if ref != (pdf.Reference{}) {
			b.ids[ref] = id
		}
	}

	w, _ := stream.Dictionary.GetInt("Width")
	hgt, _ := stream.Dictionary.GetInt("Height")

	code := OpPaintImageXObject
	for _, f := range stream.Filters() {
		if f == "DCTDecode" || f == "DCT" {
			code = OpPaintJpegXObject
		}
	}
	if id == b.lastImg && code == OpPaintImageXObject {
		code = OpPaintImageXObjectRepeat
	}
	b.lastImg = id
	b.ops = append(b.ops, Op{Code: code, Operator: "Do", Args: []any{id, int(w), int(hgt)}})
}
