package render

import "fmt"

// OpCode classifies an entry of a page's operator list
type OpCode int

const (
	OpOther OpCode = iota
	OpPaintImageXObject
	OpPaintImageXObjectRepeat
	OpPaintJpegXObject
	OpPaintInlineImageXObject
	OpPaintFormXObjectBegin
	OpPaintFormXObjectEnd
)

var opNames = map[OpCode]string{
	OpOther:                   "other",
	OpPaintImageXObject:       "paintImageXObject",
	OpPaintImageXObjectRepeat: "paintImageXObjectRepeat",
	OpPaintJpegXObject:        "paintJpegXObject",
	OpPaintInlineImageXObject: "paintInlineImageXObject",
	OpPaintFormXObjectBegin:   "paintFormXObjectBegin",
	OpPaintFormXObjectEnd:     "paintFormXObjectEnd",
}

func (c OpCode) String() string {
	if s, ok := opNames[c]; ok {
		return s
	}
	return fmt.Sprintf("OpCode(%d)", int(c))
}

// PaintsImage reports whether the operation paints a named image object
func (c OpCode) PaintsImage() bool {
	return c == OpPaintImageXObject || c == OpPaintImageXObjectRepeat || c == OpPaintJpegXObject
}

// Op is one drawing instruction. For image paints Args[0] is the image
// object name followed by its width and height.
type Op struct {
	Code     OpCode
	Operator string
	Args     []any
}

// ImageName returns the object name painted by op
func (op Op) ImageName() (string, bool) {
	if !op.Code.PaintsImage() || len(op.Args) == 0 {
		return "", false
	}
	name, ok := op.Args[0].(string)
	return name, ok
}
