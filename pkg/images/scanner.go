package images

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/novvoo/go-pdfimages/pkg/pdf"
)

// maxFormDepth bounds the Form XObject recursion of page association
const maxFormDepth = 12

// Scanner walks the indirect objects of a document and describes every
// image stream it finds
type Scanner struct {
	doc *pdf.Document
	log zerolog.Logger
}

// NewScanner creates a scanner for doc
func NewScanner(doc *pdf.Document, log zerolog.Logger) *Scanner {
	return &Scanner{doc: doc, log: log}
}

// Scan returns descriptors in ascending object number. Image objects
// without a positive Width and Height are skipped.
func (s *Scanner) Scan() []Descriptor {
	var descs []Descriptor
	for ref, obj := range s.doc.IndirectObjects() {
		stream, ok := obj.(pdf.Stream)
		if !ok {
			continue
		}
		if subtype, _ := stream.Dictionary.GetName("Subtype"); subtype != "Image" {
			continue
		}
		desc, ok := s.describe(ref, stream)
		if !ok {
			s.log.Debug().Err(ErrScanSkip).Str("ref", ref.String()).Msg("skipping image object")
			continue
		}
		descs = append(descs, desc)
	}

	s.associate(descs)
	return descs
}

func (s *Scanner) describe(ref pdf.Reference, stream pdf.Stream) (Descriptor, bool) {
	dict := stream.Dictionary
	width, okW := s.intValue(dict.Get("Width"))
	height, okH := s.intValue(dict.Get("Height"))
	if !okW || !okH || width <= 0 || height <= 0 {
		return Descriptor{}, false
	}

	desc := Descriptor{
		Ref:              ref,
		Width:            width,
		Height:           height,
		BitsPerComponent: 8,
		Filters:          stream.Filters(),
		Raw:              stream.Data,
		dict:             dict,
	}
	desc.Encoding = classifyEncoding(desc.Filters)
	if n := len(desc.Filters); n > 0 {
		desc.DecodeParms = stream.DecodeParms(n - 1)
	}
	if bpc, ok := s.intValue(dict.Get("BitsPerComponent")); ok {
		desc.BitsPerComponent = bpc
	}
	if cs := dict.Get("ColorSpace"); cs != nil {
		desc.declaredColor = true
		desc.ColorSpace = s.classifyColorSpace(cs)
	}
	if smask, ok := dict.Get("SMask").(pdf.Reference); ok {
		desc.AlphaRef = &smask
	}
	return desc, true
}

func (s *Scanner) intValue(obj pdf.Object) (int, bool) {
	resolved, err := s.doc.ResolveObject(obj)
	if err != nil {
		return 0, false
	}
	switch v := resolved.(type) {
	case pdf.Integer:
		return int(v), true
	case pdf.Real:
		return int(v), true
	}
	return 0, false
}

// classifyEncoding maps a filter chain to a reconstruction path. DCT
// anywhere in the chain wins; otherwise only Flate stages are accepted.
func classifyEncoding(filters []pdf.Name) Encoding {
	for _, f := range filters {
		if f == "DCTDecode" || f == "DCT" {
			return EncodingJPEG
		}
	}
	for _, f := range filters {
		if f != "FlateDecode" && f != "Fl" {
			return EncodingUnsupported
		}
	}
	return EncodingDeflate
}

func (s *Scanner) classifyColorSpace(obj pdf.Object) ColorSpace {
	cs, err := s.doc.ResolveColorSpace(obj)
	if err != nil {
		s.log.Debug().Err(err).Msg("unresolvable color space")
		return ColorOther
	}
	switch cs.Family {
	case "DeviceGray":
		return ColorGray
	case "DeviceRGB":
		return ColorRGB
	case "ICCBased":
		switch cs.Components {
		case 1:
			return ColorGray
		case 3:
			return ColorRGB
		}
	}
	return ColorOther
}

// associate records the first page and resource name under which each
// descriptor is painted
func (s *Scanner) associate(descs []Descriptor) {
	if len(descs) == 0 {
		return
	}
	byRef := make(map[pdf.Reference]int, len(descs))
	for i := range descs {
		byRef[descs[i].Ref] = i
	}

	for _, page := range s.doc.Pages {
		visited := make(map[pdf.Reference]bool)
		s.associateResources(descs, byRef, page.Number, page.Resources, visited, 0)
	}
}

func (s *Scanner) associateResources(descs []Descriptor, byRef map[pdf.Reference]int, page int, resources pdf.Dictionary, visited map[pdf.Reference]bool, depth int) {
	xobjects, ok := s.doc.ResolveDict(resources.Get("XObject"))
	if !ok || depth > maxFormDepth {
		return
	}

	names := make([]string, 0, len(xobjects))
	for name := range xobjects {
		names = append(names, string(name))
	}
	sort.Strings(names)

	for _, name := range names {
		ref, ok := xobjects.Get(name).(pdf.Reference)
		if !ok || visited[ref] {
			continue
		}
		visited[ref] = true

		if i, ok := byRef[ref]; ok {
			if descs[i].Page == 0 {
				descs[i].Page = page
				descs[i].Name = name
			}
			continue
		}

		obj, err := s.doc.ResolveObject(ref)
		if err != nil {
			continue
		}
		form, ok := obj.(pdf.Stream)
		if !ok {
			continue
		}
		if subtype, _ := form.Dictionary.GetName("Subtype"); subtype != "Form" {
			continue
		}
		formResources, ok := s.doc.ResolveDict(form.Dictionary.Get("Resources"))
		if !ok {
			formResources = resources
		}
		s.associateResources(descs, byRef, page, formResources, visited, depth+1)
	}
}
