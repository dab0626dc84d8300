package interp

// Rendering cells back to source text (mold/form) is out of scope for
// this build (spec §1's Non-goals) — there is no lexer to round-trip
// against. Mold is the one seam a real molder would plug into: it
// writes only the name of the value's kind to dst, no payload. Nothing
// in this package calls it; trace.go renders frame labels without it.
func Mold(c Cell, dst *ByteSeries) {
	dst.WriteString(c.Kind().String())
}

// ByteSeries is Mold's consumed sink: an append-only byte buffer over
// a managed byte-backed series, the shape a real molder would render
// into (spec §6 "Molder interface (consumed)").
type ByteSeries struct {
	in *Interpreter
	h  SeriesHandle
}

// NewByteSeriesWriter wraps an existing byte-backed series handle for
// incremental appends.
func NewByteSeriesWriter(in *Interpreter, h SeriesHandle) *ByteSeries {
	return &ByteSeries{in: in, h: h}
}

func (b *ByteSeries) WriteString(s string) {
	_ = b.in.series.AppendBytes(b.h, []byte(s))
}

func (b *ByteSeries) Handle() SeriesHandle { return b.h }
