package interp

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// SeriesFlags mirrors the flags field of spec §3.3.
type SeriesFlags uint32

const (
	FlagIsArray SeriesFlags = 1 << iota
	FlagManaged
	FlagFixedSize
	FlagExternal
	FlagProtected
	FlagPowerOfTwoSized
	FlagLocked
	FlagHasDynamic
	FlagInaccessible
	FlagIsRunning
	FlagContextVarlist
	FlagContextKeylist
	FlagIsParamlist
)

// seriesHeader is one node of the series arena (spec §3.3). wide is
// the element size in bytes: 1 for byte-series, 2 for wide-char
// series, cellSize for any array-backed series (cell-array, keylist,
// varlist, paramlist).
type seriesHeader struct {
	bytes []byte // raw backing store of a byte-series; an array's elements are in cells instead
	cells []Cell
	len   uint32
	rest  uint32
	bias  uint32
	wide  uint32
	flags SeriesFlags

	// misc is polymorphic per spec §3.3: owning frame for a varlist,
	// dispatcher function for a function body, subfeed pointer for a
	// chained variadic, image dimensions, or a map's hash index.
	misc interface{}

	// link is polymorphic per spec §3.3: keylist handle for a
	// varlist, meta-context handle for a keylist/paramlist.
	link uint64
}

const cellSize = 32 // bytes; matches the 4-machine-word cell on a 64-bit host (spec §3.1)

func (s *seriesHeader) isArray() bool { return s.flags&FlagIsArray != 0 }

// SeriesArena owns every live Series for one Interpreter instance.
// Cells reference series only by SeriesHandle (an arena index), never
// by pointer, matching DESIGN NOTES §9's "arena-allocated nodes
// referenced by stable indices" treatment of the original's cyclic
// series graphs.
type SeriesArena struct {
	nodes []*seriesHeader
	free  []SeriesHandle
}

func newSeriesArena() *SeriesArena {
	a := &SeriesArena{}
	// handle 0 is reserved as the nil handle; push a dummy node.
	a.nodes = append(a.nodes, nil)
	return a
}

func (a *SeriesArena) get(h SeriesHandle) (*seriesHeader, error) {
	if h == 0 || int(h) >= len(a.nodes) || a.nodes[h] == nil {
		return nil, errors.New("interp: use of a freed or nil series handle")
	}
	return a.nodes[h], nil
}

// NewByteSeries allocates a byte-series (binary!/string! share width 1
// here; wide-char strings use width 2) of the given initial capacity.
func (a *SeriesArena) NewByteSeries(wide, capacity uint32, managed bool) SeriesHandle {
	s := &seriesHeader{wide: wide, rest: capacity, bytes: make([]byte, 0, capacity*wide)}
	if managed {
		s.flags |= FlagManaged
	}
	return a.push(s)
}

// NewArray allocates a cell-array of N cells (managed or unmanaged),
// per spec §6 "Array construction". An array is always followed, per
// spec §3.2's invariant, by an implicit end marker: ArrayAt synthesizes
// an end marker for index == len without needing a stored extra cell,
// since Go slices carry their own length.
func (a *SeriesArena) NewArray(capacity uint32, managed bool) SeriesHandle {
	s := &seriesHeader{wide: cellSize, rest: capacity, cells: make([]Cell, 0, capacity), flags: FlagIsArray}
	if managed {
		s.flags |= FlagManaged
	}
	return a.push(s)
}

func (a *SeriesArena) push(s *seriesHeader) SeriesHandle {
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.nodes[h] = s
		return h
	}
	a.nodes = append(a.nodes, s)
	return SeriesHandle(len(a.nodes) - 1)
}

// Free releases an unmanaged series explicitly (spec §3.3.1). Freeing
// a managed series is a programming error: managed is a one-way
// transition.
func (a *SeriesArena) Free(h SeriesHandle) error {
	s, err := a.get(h)
	if err != nil {
		return err
	}
	if s.flags&FlagManaged != 0 {
		return errors.New("interp: cannot Free a managed series (spec §3.3.1: becoming managed is one-way)")
	}
	a.nodes[h] = nil
	a.free = append(a.free, h)
	return nil
}

// Manage transitions a series to GC-visible. Idempotent and monotonic
// per spec §4.2.
func (a *SeriesArena) Manage(h SeriesHandle) error {
	s, err := a.get(h)
	if err != nil {
		return err
	}
	s.flags |= FlagManaged
	return nil
}

func (a *SeriesArena) IsManaged(h SeriesHandle) bool {
	s, err := a.get(h)
	return err == nil && s.flags&FlagManaged != 0
}

// Len returns the element count.
func (a *SeriesArena) Len(h SeriesHandle) (uint32, error) {
	s, err := a.get(h)
	if err != nil {
		return 0, err
	}
	return s.len, nil
}

// ArrayCells returns the live cell slice of an array-backed series
// (length s.len, as the invariant in spec §8 requires:
// "iterating A yields exactly A.len cells").
func (a *SeriesArena) ArrayCells(h SeriesHandle) ([]Cell, error) {
	s, err := a.get(h)
	if err != nil {
		return nil, err
	}
	if !s.isArray() {
		return nil, errors.New("interp: series is not an array")
	}
	return s.cells[:s.len], nil
}

// ArrayAt returns a pointer to the cell at index (spec §4.2 "at").
func (a *SeriesArena) ArrayAt(h SeriesHandle, index uint32) (*Cell, error) {
	s, err := a.get(h)
	if err != nil {
		return nil, err
	}
	if !s.isArray() {
		return nil, errors.New("interp: series is not an array")
	}
	if index > s.len {
		return nil, errors.Errorf("interp: index %d out of range (len %d)", index, s.len)
	}
	if index == s.len {
		// Synthesize the end marker the invariant in spec §3.2 requires
		// immediately follow the array's live data.
		var end Cell
		end.MakeEnd()
		return &end, nil
	}
	return &s.cells[index], nil
}

// AppendCell appends one cell to an array series, growing capacity
// with amortized doubling (spec §4.2's bias-amortized resize).
func (a *SeriesArena) AppendCell(h SeriesHandle, v Cell) error {
	s, err := a.get(h)
	if err != nil {
		return err
	}
	if !s.isArray() {
		return errors.New("interp: series is not an array")
	}
	if s.flags&FlagProtected != 0 {
		return errors.New("interp: series is protected")
	}
	if s.flags&FlagFixedSize != 0 && uint32(len(s.cells)) >= s.rest {
		return errors.New("interp: series is fixed-size")
	}
	s.cells = append(s.cells, v)
	s.len++
	return nil
}

// InsertCell inserts v at index, shifting later elements right.
func (a *SeriesArena) InsertCell(h SeriesHandle, index uint32, v Cell) error {
	s, err := a.get(h)
	if err != nil {
		return err
	}
	if !s.isArray() {
		return errors.New("interp: series is not an array")
	}
	if s.flags&FlagProtected != 0 {
		return errors.New("interp: series is protected")
	}
	if index > s.len {
		return errors.New("interp: insert index out of range")
	}
	s.cells = slices.Insert(s.cells, int(index), v)
	s.len++
	return nil
}

// RemoveCell removes the element at index.
func (a *SeriesArena) RemoveCell(h SeriesHandle, index uint32) error {
	s, err := a.get(h)
	if err != nil {
		return err
	}
	if !s.isArray() {
		return errors.New("interp: series is not an array")
	}
	if s.flags&FlagProtected != 0 {
		return errors.New("interp: series is protected")
	}
	if index >= s.len {
		return errors.New("interp: remove index out of range")
	}
	s.cells = slices.Delete(s.cells, int(index), int(index)+1)
	s.len--
	return nil
}

// Clear empties the series without freeing its backing capacity.
func (a *SeriesArena) Clear(h SeriesHandle) error {
	s, err := a.get(h)
	if err != nil {
		return err
	}
	if s.isArray() {
		s.cells = s.cells[:0]
	} else {
		s.bytes = s.bytes[:0]
	}
	s.len = 0
	return nil
}

// Bytes returns the live byte slice of a byte-backed series.
func (a *SeriesArena) Bytes(h SeriesHandle) ([]byte, error) {
	s, err := a.get(h)
	if err != nil {
		return nil, err
	}
	if s.isArray() {
		return nil, errors.New("interp: series is array-backed, not byte-backed")
	}
	return s.bytes[:s.len*s.wide], nil
}

// AppendBytes appends raw bytes to a byte-backed series.
func (a *SeriesArena) AppendBytes(h SeriesHandle, b []byte) error {
	s, err := a.get(h)
	if err != nil {
		return err
	}
	if s.isArray() {
		return errors.New("interp: series is array-backed, not byte-backed")
	}
	if s.flags&FlagProtected != 0 {
		return errors.New("interp: series is protected")
	}
	s.bytes = append(s.bytes, b...)
	s.len += uint32(len(b)) / s.wide
	return nil
}

// Protect sets or clears the protected flag (spec §4.2, boundary
// scenario §8.9).
func (a *SeriesArena) Protect(h SeriesHandle, v bool) error {
	s, err := a.get(h)
	if err != nil {
		return err
	}
	if v {
		s.flags |= FlagProtected
	} else {
		s.flags &^= FlagProtected
	}
	return nil
}

func (a *SeriesArena) IsProtected(h SeriesHandle) bool {
	s, err := a.get(h)
	return err == nil && s.flags&FlagProtected != 0
}

// SetMisc/Misc/SetLink/Link expose the polymorphic misc/link fields
// (spec §3.3) to the context, function, and GC code.
func (a *SeriesArena) SetMisc(h SeriesHandle, v interface{}) error {
	s, err := a.get(h)
	if err != nil {
		return err
	}
	s.misc = v
	return nil
}

func (a *SeriesArena) Misc(h SeriesHandle) (interface{}, error) {
	s, err := a.get(h)
	if err != nil {
		return nil, err
	}
	return s.misc, nil
}

func (a *SeriesArena) SetLink(h SeriesHandle, v uint64) error {
	s, err := a.get(h)
	if err != nil {
		return err
	}
	s.link = v
	return nil
}

func (a *SeriesArena) Link(h SeriesHandle) (uint64, error) {
	s, err := a.get(h)
	if err != nil {
		return 0, err
	}
	return s.link, nil
}

func (a *SeriesArena) MarkInaccessible(h SeriesHandle) error {
	s, err := a.get(h)
	if err != nil {
		return err
	}
	s.flags |= FlagInaccessible
	s.misc = nil
	return nil
}

func (a *SeriesArena) IsInaccessible(h SeriesHandle) bool {
	s, err := a.get(h)
	return err == nil && s.flags&FlagInaccessible != 0
}

// each returns the arena's live handles for GC tracing (gc.go) without
// exposing the backing slice.
func (a *SeriesArena) each(fn func(SeriesHandle, *seriesHeader)) {
	for i := 1; i < len(a.nodes); i++ {
		if a.nodes[i] != nil {
			fn(SeriesHandle(i), a.nodes[i])
		}
	}
}
