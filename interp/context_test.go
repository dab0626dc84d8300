package interp

import "testing"

func newTestContextArena(t *testing.T) (*ContextArena, *SeriesArena) {
	t.Helper()
	series := newSeriesArena()
	symbols := newSymbolTable()
	return newContextArena(series, symbols), series
}

func TestContextAppendKeyAndIndexOf(t *testing.T) {
	ctxs, _ := newTestContextArena(t)
	symbols := ctxs.symbols

	h, err := ctxs.NewContext(KindObject, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	symX := symbols.Intern("x")
	var init Cell
	init.SetInteger(10)
	if err := ctxs.AppendKey(h, symX, AllKinds(), 0, init); err != nil {
		t.Fatal(err)
	}

	idx, err := ctxs.IndexOf(h, symX)
	if err != nil {
		t.Fatal(err)
	}
	if idx == 0 {
		t.Fatal("expected a nonzero index for an appended key")
	}

	v, err := ctxs.GetVar(h, idx)
	if err != nil {
		t.Fatal(err)
	}
	n, err := v.Integer()
	if err != nil || n != 10 {
		t.Errorf("expected 10, got %v (err %v)", n, err)
	}

	symY := symbols.Intern("y")
	if missing, err := ctxs.IndexOf(h, symY); err != nil || missing != 0 {
		t.Errorf("expected IndexOf of an absent symbol to be 0, got %d (err %v)", missing, err)
	}
}

func TestContextSetVarRespectsLock(t *testing.T) {
	ctxs, _ := newTestContextArena(t)
	symbols := ctxs.symbols

	h, err := ctxs.NewContext(KindObject, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	sym := symbols.Intern("locked")
	var init Cell
	init.SetInteger(1)
	if err := ctxs.AppendKey(h, sym, AllKinds(), KeyLocked, init); err != nil {
		t.Fatal(err)
	}
	idx, err := ctxs.IndexOf(h, sym)
	if err != nil {
		t.Fatal(err)
	}

	var two Cell
	two.SetInteger(2)
	if err := ctxs.SetVar(h, idx, two); err == nil {
		t.Error("expected SetVar to reject writing a locked key")
	}
}

func TestContextVarlistKeylistInvariant(t *testing.T) {
	ctxs, series := newTestContextArena(t)
	h, err := ctxs.NewContext(KindObject, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctxs.checkInvariant(h); err != nil {
		t.Fatal(err)
	}

	var v Cell
	v.SetInteger(1)
	sym := ctxs.symbols.Intern("z")
	if err := ctxs.AppendKey(h, sym, AllKinds(), 0, v); err != nil {
		t.Fatal(err)
	}
	if err := ctxs.checkInvariant(h); err != nil {
		t.Fatal(err)
	}

	vl, err := ctxs.Varlist(h)
	if err != nil {
		t.Fatal(err)
	}
	kl, err := ctxs.Keylist(h)
	if err != nil {
		t.Fatal(err)
	}
	vlen, _ := series.Len(vl)
	klen, _ := series.Len(kl)
	if vlen != klen {
		t.Errorf("varlist/keylist length mismatch: %d vs %d", vlen, klen)
	}
}
