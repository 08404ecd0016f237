package images

import (
	"github.com/rs/zerolog"

	"github.com/novvoo/go-pdfimages/pkg/pdf"
)

// Index is the linked descriptor list of one document. It is read-only
// after BuildIndex returns.
type Index struct {
	Descriptors []Descriptor

	byRef map[pdf.Reference]int
	masks map[int]int
}

// BuildIndex links every descriptor to its alpha mask. Links are processed
// in descriptor order and the first one wins: a descriptor already used as
// a mask cannot carry a mask of its own, and a descriptor that has a mask
// cannot become one. Rejected or dangling links are cleared.
func BuildIndex(descs []Descriptor, log zerolog.Logger) *Index {
	ix := &Index{
		Descriptors: descs,
		byRef:       make(map[pdf.Reference]int, len(descs)),
		masks:       make(map[int]int),
	}
	for i := range descs {
		if _, dup := ix.byRef[descs[i].Ref]; !dup {
			ix.byRef[descs[i].Ref] = i
		}
	}

	for i := range descs {
		d := &descs[i]
		if d.AlphaRef == nil {
			continue
		}
		j, ok := ix.byRef[*d.AlphaRef]
		_, targetLinked := ix.masks[j]
		if !ok || j == i || d.IsAlphaMask || targetLinked {
			log.Debug().Err(ErrLinkMiss).Str("image", d.SourceName()).Str("smask", d.AlphaRef.String()).Msg("dropping alpha link")
			d.AlphaRef = nil
			continue
		}

		mask := &descs[j]
		mask.IsAlphaMask = true
		if !mask.declaredColor {
			mask.ColorSpace = ColorGray
		}
		ix.masks[i] = j
	}
	return ix
}

// Lookup returns the index of the descriptor for ref
func (ix *Index) Lookup(ref pdf.Reference) (int, bool) {
	i, ok := ix.byRef[ref]
	return i, ok
}

// Primaries returns the indices of descriptors that are not alpha masks
func (ix *Index) Primaries() []int {
	var out []int
	for i := range ix.Descriptors {
		if !ix.Descriptors[i].IsAlphaMask {
			out = append(out, i)
		}
	}
	return out
}

// Mask returns the alpha mask linked to descriptor i
func (ix *Index) Mask(i int) (*Descriptor, bool) {
	j, ok := ix.masks[i]
	if !ok {
		return nil, false
	}
	return &ix.Descriptors[j], true
}
