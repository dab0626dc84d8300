package interp

import "github.com/pkg/errors"

// KeyFlags are the per-key flags stored alongside each keylist typeset
// (spec §3.4).
type KeyFlags uint8

const (
	KeyHidden KeyFlags = 1 << iota
	KeyLocked
	KeyUnbindable
	KeyDurable
	KeyVariadic
	KeyEndable
	KeyLookback
)

// contextRecord is the (varlist, keylist) pair of spec §3.4. The
// varlist/keylist themselves live in the shared SeriesArena (as
// cell-arrays); Context only remembers which two series form the pair
// and, for a frame context, which live frame backs it.
type contextRecord struct {
	kind    Kind // object/module/frame/error/port
	varlist SeriesHandle
	keylist SeriesHandle
	frame   FrameHandle // 0 unless this is a frame context backed by a live call
}

// ContextArena owns every live Context for one Interpreter.
type ContextArena struct {
	series  *SeriesArena
	symbols *SymbolTable
	records []*contextRecord
}

func newContextArena(series *SeriesArena, symbols *SymbolTable) *ContextArena {
	a := &ContextArena{series: series, symbols: symbols}
	a.records = append(a.records, nil) // handle 0 reserved
	return a
}

func (a *ContextArena) get(h ContextHandle) (*contextRecord, error) {
	if h == 0 || int(h) >= len(a.records) || a.records[h] == nil {
		return nil, errors.New("interp: use of a freed or nil context handle")
	}
	return a.records[h], nil
}

// keyEntry mirrors one keylist slot: a typeset cell plus flags.
// NewContext packs the flags into the typeset cell's extra header bits,
// and SetVar reads them back out via Cell.Extra().
type keyEntry struct {
	symbol SymbolID
	types  TypesetBitset
	flags  KeyFlags
}

// NewContext allocates a context of the given kind with N keys (spec
// §4.3 "Allocate with N keys"). Slot 0 of both varlist and keylist is
// the rootkey/self-reference slot the spec requires; slots 1..N follow.
func (a *ContextArena) NewContext(kind Kind, keys []keyEntry, managed bool) (ContextHandle, error) {
	n := uint32(len(keys))
	varlist := a.series.NewArray(n+1, managed)
	keylist := a.series.NewArray(n+1, managed)

	var selfVar Cell
	selfVar.FormatAsCell()
	if err := a.series.AppendCell(varlist, selfVar); err != nil {
		return 0, err
	}
	var rootKey Cell
	rootKey.FormatAsCell()
	rootKey.SetTypeset(0, 0)
	if err := a.series.AppendCell(keylist, rootKey); err != nil {
		return 0, err
	}

	for _, k := range keys {
		var vc Cell
		vc.SetVoid()
		if err := a.series.AppendCell(varlist, vc); err != nil {
			return 0, err
		}
		var kc Cell
		kc.SetTypeset(k.symbol, k.types)
		kc.head |= header(k.flags) << headerExtraShift
		if err := a.series.AppendCell(keylist, kc); err != nil {
			return 0, err
		}
	}

	if err := a.series.SetLink(varlist, uint64(keylist)); err != nil {
		return 0, err
	}

	rec := &contextRecord{kind: kind, varlist: varlist, keylist: keylist}
	a.records = append(a.records, rec)
	h := ContextHandle(len(a.records) - 1)

	self, err := a.series.ArrayAt(varlist, 0)
	if err != nil {
		return 0, err
	}
	self.SetContext(kind, h)

	if managed {
		if err := a.series.Manage(varlist); err != nil {
			return 0, err
		}
		if err := a.series.Manage(keylist); err != nil {
			return 0, err
		}
	}
	return h, nil
}

// Invariant check (spec §3.4): varlist.len == keylist.len, both >= 1.
func (a *ContextArena) checkInvariant(h ContextHandle) error {
	rec, err := a.get(h)
	if err != nil {
		return err
	}
	vl, err := a.series.Len(rec.varlist)
	if err != nil {
		return err
	}
	kl, err := a.series.Len(rec.keylist)
	if err != nil {
		return err
	}
	if vl != kl || vl < 1 {
		return errors.Errorf("interp: context invariant violated: varlist.len=%d keylist.len=%d", vl, kl)
	}
	return nil
}

// IndexOf resolves a symbol to its 1-based variable index, or 0 if
// absent (spec §4.3 "resolve symbol→index").
func (a *ContextArena) IndexOf(h ContextHandle, sym SymbolID) (uint32, error) {
	rec, err := a.get(h)
	if err != nil {
		return 0, err
	}
	n, err := a.series.Len(rec.keylist)
	if err != nil {
		return 0, err
	}
	for i := uint32(1); i < n; i++ {
		kc, err := a.series.ArrayAt(rec.keylist, i)
		if err != nil {
			return 0, err
		}
		ksym, _, err := kc.Typeset()
		if err != nil {
			return 0, err
		}
		if a.symbols.SameIdentifier(ksym, sym) {
			return i, nil
		}
	}
	return 0, nil
}

// GetVar returns the variable at 1-based index.
func (a *ContextArena) GetVar(h ContextHandle, index uint32) (*Cell, error) {
	rec, err := a.get(h)
	if err != nil {
		return nil, err
	}
	if a.series.IsInaccessible(rec.varlist) {
		return nil, errors.New("interp: frame context is inaccessible (its call has ended)")
	}
	return a.series.ArrayAt(rec.varlist, index)
}

// SetVar assigns the variable at 1-based index, respecting the key's
// locked/protected flags (spec §4.3).
func (a *ContextArena) SetVar(h ContextHandle, index uint32, v Cell) error {
	rec, err := a.get(h)
	if err != nil {
		return err
	}
	if a.series.IsInaccessible(rec.varlist) {
		return errors.New("interp: frame context is inaccessible (its call has ended)")
	}
	if a.series.IsProtected(rec.varlist) {
		return errors.New("interp: context is protected")
	}
	kc, err := a.series.ArrayAt(rec.keylist, index)
	if err != nil {
		return err
	}
	if KeyFlags(kc.Extra())&KeyLocked != 0 {
		return errors.New("interp: word is protected")
	}
	dst, err := a.series.ArrayAt(rec.varlist, index)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// AppendKey appends one new key+value pair, copy-on-write on a shared
// keylist (spec §4.3 "append key (copy-on-write on shared keylist)").
// "Shared" is detected via ContextArena.refcount: AppendKey duplicates
// the keylist when more than one context record links to the same
// keylist handle.
func (a *ContextArena) AppendKey(h ContextHandle, sym SymbolID, types TypesetBitset, flags KeyFlags, initial Cell) error {
	rec, err := a.get(h)
	if err != nil {
		return err
	}
	if a.refcount(rec.keylist) > 1 {
		dup, err := a.cloneKeylist(rec.keylist)
		if err != nil {
			return err
		}
		rec.keylist = dup
		if err := a.series.SetLink(rec.varlist, uint64(dup)); err != nil {
			return err
		}
	}
	var kc Cell
	kc.SetTypeset(sym, types)
	kc.head |= header(flags) << headerExtraShift
	if err := a.series.AppendCell(rec.keylist, kc); err != nil {
		return err
	}
	return a.series.AppendCell(rec.varlist, initial)
}

// refcount is a coarse approximation: it counts live contexts whose
// varlist links to keylist. A production GC would maintain a true
// reference count on the series header; this walks the (typically
// small) context table, which is sufficient for the copy-on-write
// check the spec requires.
func (a *ContextArena) refcount(keylist SeriesHandle) int {
	n := 0
	for _, rec := range a.records {
		if rec != nil && rec.keylist == keylist {
			n++
		}
	}
	return n
}

func (a *ContextArena) cloneKeylist(h SeriesHandle) (SeriesHandle, error) {
	cells, err := a.series.ArrayCells(h)
	if err != nil {
		return 0, err
	}
	dup := a.series.NewArray(uint32(len(cells)), a.series.IsManaged(h))
	for _, c := range cells {
		if err := a.series.AppendCell(dup, c); err != nil {
			return 0, err
		}
	}
	return dup, nil
}

// Kind, Varlist, Keylist are plain field accessors.
func (a *ContextArena) Kind(h ContextHandle) (Kind, error) {
	rec, err := a.get(h)
	if err != nil {
		return 0, err
	}
	return rec.kind, nil
}

func (a *ContextArena) Varlist(h ContextHandle) (SeriesHandle, error) {
	rec, err := a.get(h)
	if err != nil {
		return 0, err
	}
	return rec.varlist, nil
}

func (a *ContextArena) Keylist(h ContextHandle) (SeriesHandle, error) {
	rec, err := a.get(h)
	if err != nil {
		return 0, err
	}
	return rec.keylist, nil
}

// Reify promotes a live call Frame's stack-backed argument storage to
// a heap varlist node that shares the same memory, per spec §4.3 "A
// context may be 'reified' from a live frame". It records the frame
// handle on the context record and the frame in the varlist's misc
// field; it sets no stack-backed flag on the series, so nothing in the
// varlist's flags distinguishes it from a heap varlist. When the frame
// later ends, MarkInaccessible (series.go) is called so
// dereferencing the reified context afterward faults rather than
// reading freed chunk-stack memory.
func (a *ContextArena) Reify(fr *Frame, kind Kind, varlist, keylist SeriesHandle) ContextHandle {
	rec := &contextRecord{kind: kind, varlist: varlist, keylist: keylist, frame: fr.handle}
	a.records = append(a.records, rec)
	h := ContextHandle(len(a.records) - 1)
	_ = a.series.SetMisc(varlist, fr)
	return h
}

// EndFrame marks a reified frame-context inaccessible once its call
// has returned (spec §3.3.1).
func (a *ContextArena) EndFrame(h ContextHandle) error {
	rec, err := a.get(h)
	if err != nil {
		return err
	}
	return a.series.MarkInaccessible(rec.varlist)
}
