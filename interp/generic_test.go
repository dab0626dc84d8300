package interp

import "testing"

// TestDoLiteral exercises the simplest possible Do: a block holding a
// single inert value evaluates to itself.
func TestDoLiteral(t *testing.T) {
	i := New(Options{})
	arr := i.series.NewArray(1, false)
	var v Cell
	v.SetInteger(42)
	if err := i.series.AppendCell(arr, v); err != nil {
		t.Fatal(err)
	}
	res, err := i.Do(arr)
	if err != nil {
		t.Error(err)
	}
	n, err := res.Integer()
	if err != nil || n != 42 {
		t.Errorf("expected 42, got %v (err %v)", n, err)
	}
}

// TestDoSetWordThenWord mirrors the teacher's own pattern of running
// two Eval calls back to back and checking the second sees the first's
// effect (generic_test.go originally did this across two i.Eval calls
// against a compiled Go program; here it is a set-word followed by a
// word lookup against the global object).
func TestDoSetWordThenWord(t *testing.T) {
	i := New(Options{})
	sym := i.symbols.Intern("x")

	assign := i.series.NewArray(2, false)
	var sw Cell
	sw.SetSetWord(sym, SpecificBinding(i.globalObject))
	var val Cell
	val.SetInteger(7)
	if err := i.series.AppendCell(assign, sw); err != nil {
		t.Fatal(err)
	}
	if err := i.series.AppendCell(assign, val); err != nil {
		t.Fatal(err)
	}
	if err := i.contexts.AppendKey(i.globalObject, sym, AllKinds(), 0, func() Cell { var c Cell; c.SetVoid(); return c }()); err != nil {
		t.Fatal(err)
	}
	if _, err := i.Do(assign); err != nil {
		t.Error(err)
	}

	read := i.series.NewArray(1, false)
	var w Cell
	w.SetWord(sym, SpecificBinding(i.globalObject))
	if err := i.series.AppendCell(read, w); err != nil {
		t.Fatal(err)
	}
	res, err := i.Do(read)
	if err != nil {
		t.Error(err)
	}
	n, err := res.Integer()
	if err != nil || n != 7 {
		t.Errorf("expected 7, got %v (err %v)", n, err)
	}
}
