package interp

import (
	"image/color"

	"github.com/pkg/errors"
)

func errNotAnImage() error { return errors.New("interp: series is not an image") }

// ColorFormat selects one of the three native pixel layouts spec §6
// names as a host collaborator: "ARGB packed big-endian, or BGRA/RGBA
// packed little-endian, selected once per host at build or startup."
// Image codecs themselves stay out of scope (spec §1's Non-goals); only
// the bit-layout conversion is implemented, over stdlib image/color
// rather than golang.org/x/image (see DESIGN.md).
type ColorFormat uint8

const (
	ColorARGB32 ColorFormat = iota // big-endian: byte 0 = A, 1 = R, 2 = G, 3 = B
	ColorBGRA32                    // little-endian word, B in the low byte
	ColorRGBA32                    // little-endian word, R in the low byte
)

// ToRGBAColor unpacks a native pixel word into a color.RGBA using the
// given format.
func ToRGBAColor(pixel uint32, format ColorFormat) color.RGBA {
	switch format {
	case ColorARGB32:
		return color.RGBA{
			A: byte(pixel >> 24),
			R: byte(pixel >> 16),
			G: byte(pixel >> 8),
			B: byte(pixel),
		}
	case ColorBGRA32:
		return color.RGBA{
			B: byte(pixel),
			G: byte(pixel >> 8),
			R: byte(pixel >> 16),
			A: byte(pixel >> 24),
		}
	case ColorRGBA32:
		return color.RGBA{
			R: byte(pixel),
			G: byte(pixel >> 8),
			B: byte(pixel >> 16),
			A: byte(pixel >> 24),
		}
	default:
		return color.RGBA{}
	}
}

// ToPixelColor is ToRGBAColor's inverse, packing a color.RGBA back into
// a native pixel word under the given format.
func ToPixelColor(c color.RGBA, format ColorFormat) uint32 {
	switch format {
	case ColorARGB32:
		return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
	case ColorBGRA32:
		return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
	case ColorRGBA32:
		return uint32(c.A)<<24 | uint32(c.B)<<16 | uint32(c.G)<<8 | uint32(c.R)
	default:
		return 0
	}
}

// SetImagePixel and ImagePixel read/write one pixel of an IMAGE!
// series (spec §3.1's KindImage, backed by a byte-series whose wide is
// 4 and whose misc field holds {Width, Height int} per series.go's
// polymorphic misc convention).
type ImageDimensions struct {
	Width, Height int
}

func (in *Interpreter) SetImagePixel(h SeriesHandle, x, y int, c color.RGBA, format ColorFormat) error {
	dims, err := in.imageDims(h)
	if err != nil {
		return err
	}
	b, err := in.series.Bytes(h)
	if err != nil {
		return err
	}
	off := (y*dims.Width + x) * 4
	pixel := ToPixelColor(c, format)
	b[off+0] = byte(pixel)
	b[off+1] = byte(pixel >> 8)
	b[off+2] = byte(pixel >> 16)
	b[off+3] = byte(pixel >> 24)
	return nil
}

func (in *Interpreter) ImagePixel(h SeriesHandle, x, y int, format ColorFormat) (color.RGBA, error) {
	dims, err := in.imageDims(h)
	if err != nil {
		return color.RGBA{}, err
	}
	b, err := in.series.Bytes(h)
	if err != nil {
		return color.RGBA{}, err
	}
	off := (y*dims.Width + x) * 4
	pixel := uint32(b[off+0]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
	return ToRGBAColor(pixel, format), nil
}

func (in *Interpreter) imageDims(h SeriesHandle) (ImageDimensions, error) {
	v, err := in.series.Misc(h)
	if err != nil {
		return ImageDimensions{}, err
	}
	d, ok := v.(ImageDimensions)
	if !ok {
		return ImageDimensions{}, errNotAnImage()
	}
	return d, nil
}
