package interp

import (
	"image/color"
	"testing"
)

func TestColorFormatRoundTrip(t *testing.T) {
	c := color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x44}
	for _, format := range []ColorFormat{ColorARGB32, ColorBGRA32, ColorRGBA32} {
		pixel := ToPixelColor(c, format)
		back := ToRGBAColor(pixel, format)
		if back != c {
			t.Errorf("format %d: round trip mismatch, got %+v, want %+v", format, back, c)
		}
	}
}

func TestARGB32ByteLayout(t *testing.T) {
	c := color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x44}
	pixel := ToPixelColor(c, ColorARGB32)
	if byte(pixel>>24) != 0x44 || byte(pixel>>16) != 0x11 || byte(pixel>>8) != 0x22 || byte(pixel) != 0x33 {
		t.Errorf("unexpected ARGB32 byte layout for pixel %08x", pixel)
	}
}

func TestImagePixelReadWrite(t *testing.T) {
	in := New(Options{})
	h := in.series.NewByteSeries(1, 16, true)
	if err := in.series.SetMisc(h, ImageDimensions{Width: 2, Height: 2}); err != nil {
		t.Fatal(err)
	}
	// Pre-size the byte backing store to hold all four pixels.
	if err := in.series.AppendBytes(h, make([]byte, 16)); err != nil {
		t.Fatal(err)
	}

	c := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	if err := in.SetImagePixel(h, 1, 1, c, ColorRGBA32); err != nil {
		t.Fatal(err)
	}
	got, err := in.ImagePixel(h, 1, 1, ColorRGBA32)
	if err != nil {
		t.Fatal(err)
	}
	if got != c {
		t.Errorf("expected %+v, got %+v", c, got)
	}
}

func TestImagePixelOnNonImageErrors(t *testing.T) {
	in := New(Options{})
	h := in.series.NewArray(0, true)
	if _, err := in.ImagePixel(h, 0, 0, ColorARGB32); err == nil {
		t.Error("expected ImagePixel on a non-image series to error")
	}
}
