package interp

import (
	"math"

	"github.com/pkg/errors"
)

// This file holds the per-kind constructors and accessors for the
// payload union described in spec §3.1.2. Each constructor formats the
// cell and fills the payload; each accessor kind-checks before
// unpacking, replacing the original's macro accessors with methods
// that can be asserted in tests (DESIGN NOTES §9).

func wrongKind(got Kind, want ...Kind) error {
	return errors.Errorf("interp: expected %v, got %s", want, got)
}

// ---- logic! ----

func (c *Cell) SetLogic(v bool) {
	c.FormatAsCell()
	c.ResetHeader(KindLogic, 0)
	if v {
		c.payload[0] = 1
	} else {
		c.payload[0] = 0
		c.head |= headerFalsey
	}
}

func (c *Cell) Logic() (bool, error) {
	if c.Kind() != KindLogic {
		return false, wrongKind(c.Kind(), KindLogic)
	}
	return c.payload[0] != 0, nil
}

// SetBlank writes the blank! value, the other falsey kind (spec §3.1).
func (c *Cell) SetBlank() {
	c.FormatAsCell()
	c.ResetHeader(KindBlank, 0)
	c.head |= headerFalsey
}

// SetVoid marks the cell as holding no value (spec §3.1.1). Void is an
// internal variable state, never a storable array element.
func (c *Cell) SetVoid() {
	c.FormatAsCell()
	c.ResetHeader(KindVoid, 0)
}

// ---- integer! ----

func (c *Cell) SetInteger(v int64) {
	c.FormatAsCell()
	c.ResetHeader(KindInteger, 0)
	c.setRawInt(v)
}

func (c *Cell) Integer() (int64, error) {
	if c.Kind() != KindInteger {
		return 0, wrongKind(c.Kind(), KindInteger)
	}
	return c.rawInt(), nil
}

// ---- decimal! / percent! ----

func (c *Cell) SetDecimal(v float64) {
	c.FormatAsCell()
	c.ResetHeader(KindDecimal, 0)
	c.payload[0] = math.Float64bits(v)
}

func (c *Cell) Decimal() (float64, error) {
	if c.Kind() != KindDecimal && c.Kind() != KindPercent {
		return 0, wrongKind(c.Kind(), KindDecimal, KindPercent)
	}
	return math.Float64frombits(c.payload[0]), nil
}

func (c *Cell) SetPercent(v float64) {
	c.FormatAsCell()
	c.ResetHeader(KindPercent, 0)
	c.payload[0] = math.Float64bits(v)
}

// ---- money! ----
// Money is modeled as an integer numerator over a fixed 1e9
// denominator (stdlib-only fixed point; no third-party decimal library
// is used).

const moneyScale = 1_000_000_000

func (c *Cell) SetMoney(v float64) {
	c.FormatAsCell()
	c.ResetHeader(KindMoney, 0)
	c.setRawInt(int64(v * moneyScale))
}

func (c *Cell) Money() (float64, error) {
	if c.Kind() != KindMoney {
		return 0, wrongKind(c.Kind(), KindMoney)
	}
	return float64(c.rawInt()) / moneyScale, nil
}

// ---- char! ----

func (c *Cell) SetChar(r rune) {
	c.FormatAsCell()
	c.ResetHeader(KindChar, 0)
	c.payload[0] = uint64(r)
}

func (c *Cell) Char() (rune, error) {
	if c.Kind() != KindChar {
		return 0, wrongKind(c.Kind(), KindChar)
	}
	return rune(c.payload[0]), nil
}

// ---- pair! ----

func (c *Cell) SetPair(x, y float64) {
	c.FormatAsCell()
	c.ResetHeader(KindPair, 0)
	c.payload[0] = math.Float64bits(x)
	c.payload[1] = math.Float64bits(y)
}

func (c *Cell) Pair() (x, y float64, err error) {
	if c.Kind() != KindPair {
		return 0, 0, wrongKind(c.Kind(), KindPair)
	}
	return math.Float64frombits(c.payload[0]), math.Float64frombits(c.payload[1]), nil
}

// ---- tuple! ----
// A tuple stores up to 16 bytes packed eight per word across
// payload[0] and payload[1], with the
// element count in the kind-specific extra header bits.

func (c *Cell) SetTuple(parts []byte) error {
	if len(parts) > 16 {
		return errors.New("interp: tuple! supports at most 16 elements")
	}
	c.FormatAsCell()
	c.ResetHeader(KindTuple, uint8(len(parts)))
	c.payload[0], c.payload[1] = 0, 0
	for i, b := range parts {
		word := i / 8
		shift := uint((i % 8) * 8)
		c.payload[word] |= uint64(b) << shift
	}
	return nil
}

func (c *Cell) Tuple() ([]byte, error) {
	if c.Kind() != KindTuple {
		return nil, wrongKind(c.Kind(), KindTuple)
	}
	n := int(c.Extra())
	out := make([]byte, n)
	for i := range out {
		word := i / 8
		shift := uint((i % 8) * 8)
		out[i] = byte(c.payload[word] >> shift)
	}
	return out, nil
}

// ---- date! / time! ----
// Time stores nanoseconds-since-midnight in payload[0] and a UTC-offset
// in minutes in payload[1]; date additionally stores a Unix day number
// in payload[2], composing both kinds out of the same three payload
// words without needing a fourth word.

func (c *Cell) SetTime(nanos int64, offsetMinutes int32) {
	c.FormatAsCell()
	c.ResetHeader(KindTime, 0)
	c.payload[0] = uint64(nanos)
	c.payload[1] = uint64(uint32(offsetMinutes))
}

func (c *Cell) Time() (nanos int64, offsetMinutes int32, err error) {
	if c.Kind() != KindTime && c.Kind() != KindDate {
		return 0, 0, wrongKind(c.Kind(), KindTime, KindDate)
	}
	return int64(c.payload[0]), int32(c.payload[1]), nil
}

func (c *Cell) SetDate(unixDay int64, nanos int64, offsetMinutes int32) {
	c.FormatAsCell()
	c.ResetHeader(KindDate, 0)
	c.payload[0] = uint64(nanos)
	c.payload[1] = uint64(uint32(offsetMinutes))
	c.payload[2] = uint64(unixDay)
}

func (c *Cell) DateDay() (int64, error) {
	if c.Kind() != KindDate {
		return 0, wrongKind(c.Kind(), KindDate)
	}
	return int64(c.payload[2]), nil
}

// ---- handle! ----

func (c *Cell) SetHandle(v uintptr) {
	c.FormatAsCell()
	c.ResetHeader(KindHandle, 0)
	c.payload[0] = uint64(v)
}

func (c *Cell) Handle() (uintptr, error) {
	if c.Kind() != KindHandle {
		return 0, wrongKind(c.Kind(), KindHandle)
	}
	return uintptr(c.payload[0]), nil
}

// ---- series-like payload (spec §3.1.2) ----
// binary/string/file/email/url/tag/image/bitset/block/group/path/
// set-path/get-path/lit-path/map cells store {series handle, index,
// binding}.

func (c *Cell) setSeriesLike(k Kind, s SeriesHandle, index uint32, bind Binding) {
	c.FormatAsCell()
	extra := uint8(0)
	if bind.relative {
		extra = 1
	}
	c.ResetHeader(k, extra)
	if bind.relative {
		c.head |= headerRelative
	}
	c.payload[0] = uint64(s)
	c.payload[1] = uint64(index)
	c.bind = bind
}

func (c *Cell) SetBlock(s SeriesHandle, index uint32, bind Binding) { c.setSeriesLike(KindBlock, s, index, bind) }
func (c *Cell) SetGroup(s SeriesHandle, index uint32, bind Binding) { c.setSeriesLike(KindGroup, s, index, bind) }
func (c *Cell) SetPath(s SeriesHandle, index uint32, bind Binding)  { c.setSeriesLike(KindPath, s, index, bind) }
func (c *Cell) SetString(s SeriesHandle, index uint32)              { c.setSeriesLike(KindString, s, index, Unbound) }
func (c *Cell) SetBinary(s SeriesHandle, index uint32)              { c.setSeriesLike(KindBinary, s, index, Unbound) }
func (c *Cell) SetBitset(s SeriesHandle)                            { c.setSeriesLike(KindBitset, s, 0, Unbound) }
func (c *Cell) SetImage(s SeriesHandle)                             { c.setSeriesLike(KindImage, s, 0, Unbound) }
func (c *Cell) SetMap(s SeriesHandle)                               { c.setSeriesLike(KindMap, s, 0, Unbound) }

// Series returns the backing SeriesHandle and element index of a
// series-backed cell.
func (c *Cell) Series() (SeriesHandle, uint32, error) {
	if !c.Kind().IsSeriesBacked() {
		return 0, 0, errors.Errorf("interp: %s is not series-backed", c.Kind())
	}
	return SeriesHandle(c.payload[0]), uint32(c.payload[1]), nil
}

// Binding returns the cell's binding target (spec §3.1.3).
func (c *Cell) Binding() Binding { return c.bind }

// SetIndex rewrites the series index in place (used by series
// iteration: "head/tail/at" operations, spec §4.2).
func (c *Cell) SetIndex(index uint32) { c.payload[1] = uint64(index) }

// ---- word-like payload (spec §3.1.2) ----
// word/set-word/get-word/lit-word/refinement/issue cells store
// {binding target, cached index in context, symbol id}.

func (c *Cell) setWordLike(k Kind, sym SymbolID, bind Binding) {
	c.FormatAsCell()
	c.ResetHeader(k, 0)
	if bind.relative {
		c.head |= headerRelative
	}
	c.bind = bind
	c.payload[1] = 0 // cached index, filled by Bind
	c.payload[2] = uint64(sym)
}

func (c *Cell) SetWord(sym SymbolID, bind Binding)       { c.setWordLike(KindWord, sym, bind) }
func (c *Cell) SetSetWord(sym SymbolID, bind Binding)    { c.setWordLike(KindSetWord, sym, bind) }
func (c *Cell) SetGetWord(sym SymbolID, bind Binding)    { c.setWordLike(KindGetWord, sym, bind) }
func (c *Cell) SetLitWord(sym SymbolID, bind Binding)    { c.setWordLike(KindLitWord, sym, bind) }
func (c *Cell) SetRefinement(sym SymbolID, bind Binding) { c.setWordLike(KindRefinement, sym, bind) }

// Symbol returns the interned symbol id of a word-like cell.
func (c *Cell) Symbol() (SymbolID, error) {
	if !c.Kind().IsAnyWord() && c.Kind() != KindIssue {
		return 0, errors.Errorf("interp: %s is not word-like", c.Kind())
	}
	return SymbolID(c.payload[2]), nil
}

// CachedIndex returns the word's cached lookup index into its bound
// context's varlist, 0 meaning "not yet cached" (spec §3.1.2).
func (c *Cell) CachedIndex() uint32      { return uint32(c.payload[1]) }
func (c *Cell) SetCachedIndex(idx uint32) { c.payload[1] = uint64(idx) }

// ---- typeset! (spec §3.1.2) ----

func (c *Cell) SetTypeset(sym SymbolID, bits TypesetBitset) {
	c.FormatAsCell()
	c.ResetHeader(KindTypeset, 0)
	c.payload[0] = uint64(sym)
	c.payload[1] = uint64(bits)
}

func (c *Cell) Typeset() (SymbolID, TypesetBitset, error) {
	if c.Kind() != KindTypeset {
		return 0, 0, wrongKind(c.Kind(), KindTypeset)
	}
	return SymbolID(c.payload[0]), TypesetBitset(c.payload[1]), nil
}

// ---- datatype! (spec §3.1.2) ----

func (c *Cell) SetDatatype(k Kind, spec SeriesHandle) {
	c.FormatAsCell()
	c.ResetHeader(KindDatatype, 0)
	c.payload[0] = uint64(k)
	c.payload[1] = uint64(spec)
}

func (c *Cell) Datatype() (Kind, SeriesHandle, error) {
	if c.Kind() != KindDatatype {
		return 0, 0, wrongKind(c.Kind(), KindDatatype)
	}
	return Kind(c.payload[0]), SeriesHandle(c.payload[1]), nil
}

// ---- context-like payload (spec §3.1.2) ----
// object/module/error/port/frame cells store {varlist handle, optional
// spec, optional body, optional frame back-pointer}. The frame
// back-pointer for a live frame-context is kept on the contextRecord
// itself (see context.go) rather than duplicated in every cell copy.

func (c *Cell) SetContext(k Kind, ctx ContextHandle) {
	if !k.IsAnyContext() {
		panic("interp: SetContext requires an ANY-CONTEXT! kind")
	}
	c.FormatAsCell()
	c.ResetHeader(k, 0)
	c.payload[0] = uint64(ctx)
}

func (c *Cell) Context() (ContextHandle, error) {
	if !c.Kind().IsAnyContext() {
		return 0, errors.Errorf("interp: %s is not a context", c.Kind())
	}
	return ContextHandle(c.payload[0]), nil
}

// ---- function-like payload (spec §3.1.2, §3.5) ----

func (c *Cell) SetFunction(k Kind, fn FunctionHandle) {
	if !k.IsAnyFunction() {
		panic("interp: SetFunction requires an ANY-FUNCTION! kind")
	}
	c.FormatAsCell()
	c.ResetHeader(k, 0)
	c.payload[0] = uint64(fn)
}

func (c *Cell) Function() (FunctionHandle, error) {
	if !c.Kind().IsAnyFunction() {
		return 0, errors.Errorf("interp: %s is not a function", c.Kind())
	}
	return FunctionHandle(c.payload[0]), nil
}

// ---- varargs! (spec §4.4 step 3 "Variadic") ----
// A varargs cell references the frame it was produced by, so the
// callee can pull further values from that frame's live feed.

func (c *Cell) SetVarargs(owner FrameHandle, paramIndex uint32) {
	c.FormatAsCell()
	c.ResetHeader(KindVarargs, 0)
	c.payload[0] = uint64(owner)
	c.payload[1] = uint64(paramIndex)
}

func (c *Cell) Varargs() (FrameHandle, uint32, error) {
	if c.Kind() != KindVarargs {
		return 0, 0, wrongKind(c.Kind(), KindVarargs)
	}
	return FrameHandle(c.payload[0]), uint32(c.payload[1]), nil
}

// ---- bar!/lit-bar! (no payload) ----

func (c *Cell) SetBar() {
	c.FormatAsCell()
	c.ResetHeader(KindBar, 0)
}

func (c *Cell) SetLitBar() {
	c.FormatAsCell()
	c.ResetHeader(KindLitBar, 0)
}
