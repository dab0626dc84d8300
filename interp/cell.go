package interp

import "github.com/pkg/errors"

// header is the bitfield word described in spec §3.1. It is kept as a
// single machine word (here, a uint32; the payload below supplies the
// remaining three words of the four-word cell) so that IsEnd can be
// tested with one load, as the invariant in spec §3.2 requires.
type header uint32

const (
	headerKindMask     header = 0xFF
	headerNotEnd       header = 1 << 8
	headerIsCell       header = 1 << 9
	headerFalsey       header = 1 << 10
	headerRelative     header = 1 << 11
	headerThrown       header = 1 << 12
	headerUnevaluated  header = 1 << 13
	headerStackLife    header = 1 << 14
	headerLine         header = 1 << 15
	headerExtraShift           = 16
	headerExtraMask    header = 0xFF << headerExtraShift
)

// SeriesHandle is a stable index into an Interpreter's series arena.
// Cells never hold raw pointers to series (DESIGN NOTES §9, "Cyclic
// object graphs"); zero is the nil handle.
type SeriesHandle uint32

// ContextHandle is a stable index into an Interpreter's context arena.
type ContextHandle uint32

// FunctionHandle is a stable index into an Interpreter's function arena.
type FunctionHandle uint32

// Binding is the tagged union described in spec §3.1.3: a cell with
// Relative()==true targets a FunctionHandle (the function whose body
// the cell textually belongs to); otherwise it targets a ContextHandle
// (zero meaning unbound).
type Binding struct {
	relative bool
	ctx      ContextHandle
	fn       FunctionHandle
}

// Unbound is the zero value of Binding: no context, not relative.
var Unbound = Binding{}

// SpecificBinding returns a Binding that resolves to ctx directly.
func SpecificBinding(ctx ContextHandle) Binding { return Binding{ctx: ctx} }

// RelativeBinding returns a Binding relative to fn's body.
func RelativeBinding(fn FunctionHandle) Binding { return Binding{relative: true, fn: fn} }

// IsRelative reports whether the binding still needs a Specifier.
func (b Binding) IsRelative() bool { return b.relative }

// Context returns the bound context; valid only when !IsRelative().
func (b Binding) Context() ContextHandle { return b.ctx }

// Function returns the textually-enclosing function; valid only when
// IsRelative().
func (b Binding) Function() FunctionHandle { return b.fn }

// Cell is the fixed-size tagged value unit described in spec §3.1: one
// header word followed by a three-word payload. Every live variable,
// stack slot, array element, and function argument is a Cell.
type Cell struct {
	head    header
	payload [3]uint64
	bind    Binding // part of payload conceptually; split out for type safety
}

// ---- header accessors (spec §4.1) ----

// Kind returns the cell's kind. Calling Kind on an end marker is
// meaningless per spec §4.1 ("must never be used to conclude a kind");
// callers must check IsEnd first.
func (c *Cell) Kind() Kind { return Kind(c.head & headerKindMask) }

// IsEnd reports whether this slot is an end marker (not_end == 0).
func (c *Cell) IsEnd() bool { return c.head&headerNotEnd == 0 }

// IsCell reports whether the runtime has formatted this slot as a cell.
func (c *Cell) IsCell() bool { return c.head&headerIsCell != 0 }

// IsFalsey reports the falsey header bit (spec §4.1 is_falsey).
func (c *Cell) IsFalsey() bool { return c.head&headerFalsey != 0 }

// IsTruthy is the complement of IsFalsey, valid only on non-void cells:
// on a void cell it returns an error (spec §3.1 header bit table; §4.1
// "Void cells are neither"). IsFalsey makes no void check; it reads the
// header bit and reports false for a void cell.
func (c *Cell) IsTruthy() (bool, error) {
	if c.Kind() == KindVoid {
		return false, errors.New("interp: truth test on void value")
	}
	return !c.IsFalsey(), nil
}

// Relative reports the relative header bit.
func (c *Cell) Relative() bool { return c.head&headerRelative != 0 }

// Thrown reports whether this cell is currently acting as a throw label.
func (c *Cell) Thrown() bool { return c.head&headerThrown != 0 }

// SetThrown sets or clears the thrown bit in place.
func (c *Cell) SetThrown(v bool) { c.setFlag(headerThrown, v) }

// Unevaluated reports whether the value arrived literally from source.
func (c *Cell) Unevaluated() bool { return c.head&headerUnevaluated != 0 }

// SetUnevaluated sets or clears the unevaluated bit.
func (c *Cell) SetUnevaluated(v bool) { c.setFlag(headerUnevaluated, v) }

// StackLifetime reports whether the payload's binding must not outlive
// the current call.
func (c *Cell) StackLifetime() bool { return c.head&headerStackLife != 0 }

// HasLeadingNewline reports the line bit (preceded by a source newline).
func (c *Cell) HasLeadingNewline() bool { return c.head&headerLine != 0 }

// SetLeadingNewline sets or clears the line bit.
func (c *Cell) SetLeadingNewline(v bool) { c.setFlag(headerLine, v) }

// Extra returns the 8 kind-specific header bits (spec §3.1: "8 further
// bits are kind-specific").
func (c *Cell) Extra() uint8 { return uint8((c.head & headerExtraMask) >> headerExtraShift) }

func (c *Cell) setFlag(bit header, v bool) {
	if v {
		c.head |= bit
	} else {
		c.head &^= bit
	}
}

// ---- construction / mutation (spec §4.1) ----

// FormatAsCell marks a slot as formatted for cell use (sets the `cell`
// bit only), matching the precondition ResetHeader requires. It does
// not otherwise touch the slot.
func (c *Cell) FormatAsCell() { c.head |= headerIsCell }

// ResetHeader clears all header bits except the formatted-as-cell bit,
// sets not_end=1, writes kind and the kind-specific extra bits, and
// leaves the payload untouched (spec §4.1 reset_header). The caller
// must initialize the payload afterward; the precondition is that the
// slot has already been formatted via FormatAsCell.
func (c *Cell) ResetHeader(k Kind, extra uint8) {
	formatted := c.head & headerIsCell
	c.head = formatted | headerNotEnd | header(k) | (header(extra) << headerExtraShift)
}

// MakeEnd writes the end-marker sentinel into the slot (spec §3.2): a
// header whose not_end bit is clear. Per spec, any other header bit is
// then meaningless, so the rest of the header word and payload are
// left as-is (spec allows the payload to double as non-cell data).
func (c *Cell) MakeEnd() { c.head &^= headerNotEnd }

// MoveValue copies src into c, preserving c's own stack-lifetime bit
// (spec §4.1 move_value). It does not perform the relative-to-specific
// reification the spec describes for a stack-bound source moving to a
// longer-lived destination; per spec §9 Open Questions that case is a
// stub that must fault rather than silently produce a dangling
// binding, so MoveValue returns an error when it would be required.
func (c *Cell) MoveValue(src *Cell) error {
	if src.Relative() && src.StackLifetime() && !c.StackLifetime() {
		return errors.New("interp: move_value would outlive a relative stack binding (spec §9 open question, left as a fault)")
	}
	keepStackLife := c.head & headerStackLife
	c.head = (src.head &^ headerStackLife) | keepStackLife
	c.payload = src.payload
	c.bind = src.bind
	return nil
}

// Derelativize produces a specifically-bound copy of src into c. If
// src is already specific this is equivalent to MoveValue. If src is
// relative, specifier (the calling context) replaces the function
// reference to yield a concrete binding (spec §4.1 derelativize).
func (c *Cell) Derelativize(src *Cell, specifier ContextHandle) error {
	if !src.Relative() {
		return c.MoveValue(src)
	}
	keepStackLife := c.head & headerStackLife
	c.head = (src.head &^ (headerStackLife | headerRelative)) | keepStackLife
	c.payload = src.payload
	c.bind = SpecificBinding(specifier)
	return nil
}

// Payload accessors. These are the narrow, kind-checked replacements
// for the original's macro-heavy cell accessors (DESIGN NOTES §9).

func (c *Cell) rawInt() int64    { return int64(c.payload[0]) }
func (c *Cell) setRawInt(v int64) { c.payload[0] = uint64(v) }
