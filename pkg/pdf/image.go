package pdf

import (
	"errors"
	"fmt"
)

const (
	// MaxImageDimension caps the width and height of a decoded image.
	MaxImageDimension = 32768
	// MaxImagePixels caps width*height of a decoded image (64 Mi pixels).
	MaxImagePixels int64 = 64 * 1024 * 1024
)

// ErrImageBounds is returned for image geometry outside the decode limits
var ErrImageBounds = errors.New("image bounds out of range")

// ValidateImageSize checks that an image of width x height may be decoded
func ValidateImageSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %d x %d", ErrImageBounds, width, height)
	}
	if width > MaxImageDimension || height > MaxImageDimension {
		return fmt.Errorf("%w: dimension exceeds %d (%d x %d)", ErrImageBounds, MaxImageDimension, width, height)
	}
	if pixels := int64(width) * int64(height); pixels > MaxImagePixels {
		return fmt.Errorf("%w: %d pixels exceeds %d", ErrImageBounds, pixels, MaxImagePixels)
	}
	return nil
}

// ColorSpace is a resolved image color space
type ColorSpace struct {
	// Family is the color space name: DeviceGray, DeviceRGB, DeviceCMYK,
	// Indexed, ICCBased, Separation, ...
	Family Name
	// Components is the number of color components per sample
	Components int
	// Base, HiVal and Lookup describe an Indexed space
	Base   *ColorSpace
	HiVal  int
	Lookup []byte
}

// ResolveColorSpace resolves a /ColorSpace value. ICCBased spaces report
// their component count from /N; abbreviated inline names are accepted.
func (d *Document) ResolveColorSpace(obj Object) (*ColorSpace, error) {
	return d.resolveColorSpace(obj, 0)
}

func (d *Document) resolveColorSpace(obj Object, depth int) (*ColorSpace, error) {
	if depth > 4 {
		return nil, fmt.Errorf("color space nested too deeply")
	}
	resolved, err := d.ResolveObject(obj)
	if err != nil {
		return nil, err
	}

	switch v := resolved.(type) {
	case Name:
		switch v {
		case "DeviceGray", "G", "CalGray":
			return &ColorSpace{Family: "DeviceGray", Components: 1}, nil
		case "DeviceRGB", "RGB", "CalRGB":
			return &ColorSpace{Family: "DeviceRGB", Components: 3}, nil
		case "DeviceCMYK", "CMYK":
			return &ColorSpace{Family: "DeviceCMYK", Components: 4}, nil
		}
		return &ColorSpace{Family: v}, nil

	case Array:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty color space array")
		}
		family, ok := v[0].(Name)
		if !ok {
			return nil, fmt.Errorf("color space family is %T", v[0])
		}
		switch family {
		case "DeviceGray", "DeviceRGB", "DeviceCMYK", "G", "RGB", "CMYK":
			return d.resolveColorSpace(family, depth+1)
		case "CalGray":
			return &ColorSpace{Family: "DeviceGray", Components: 1}, nil
		case "CalRGB":
			return &ColorSpace{Family: "DeviceRGB", Components: 3}, nil
		case "Lab":
			return &ColorSpace{Family: "Lab", Components: 3}, nil
		case "ICCBased":
			if len(v) < 2 {
				return nil, fmt.Errorf("ICCBased without profile")
			}
			profile, ok := d.ResolveDict(v[1])
			if !ok {
				return nil, fmt.Errorf("ICCBased profile is not a stream")
			}
			n, _ := profile.GetInt("N")
			cs := &ColorSpace{Family: "ICCBased", Components: int(n)}
			return cs, nil
		case "Indexed", "I":
			return d.resolveIndexed(v, depth)
		}
		return &ColorSpace{Family: family}, nil
	}
	return nil, fmt.Errorf("unsupported color space %v", resolved)
}

func (d *Document) resolveIndexed(v Array, depth int) (*ColorSpace, error) {
	if len(v) < 4 {
		return nil, fmt.Errorf("malformed Indexed color space")
	}
	base, err := d.resolveColorSpace(v[1], depth+1)
	if err != nil {
		return nil, fmt.Errorf("Indexed base: %w", err)
	}
	hival, ok := v[2].(Integer)
	if !ok || hival < 0 || hival > 255 {
		return nil, fmt.Errorf("Indexed hival %v", v[2])
	}

	lookupObj, err := d.ResolveObject(v[3])
	if err != nil {
		return nil, err
	}
	var lookup []byte
	switch l := lookupObj.(type) {
	case String:
		lookup = l.Value
	case Stream:
		if lookup, err = l.Decode(); err != nil {
			return nil, fmt.Errorf("Indexed lookup: %w", err)
		}
	default:
		return nil, fmt.Errorf("Indexed lookup is %T", lookupObj)
	}

	return &ColorSpace{
		Family:     "Indexed",
		Components: 1,
		Base:       base,
		HiVal:      int(hival),
		Lookup:     lookup,
	}, nil
}
