package interp

import "testing"

// buildPathCall builds a PATH! cell "headName/ref1/ref2/..." as a
// standalone array cell, the way a scanner would have produced it.
func buildPathCall(t *testing.T, in *Interpreter, headName string, refs ...string) Cell {
	t.Helper()
	steps := in.series.NewArray(uint32(1+len(refs)), false)
	var head Cell
	head.SetWord(in.symbols.Intern(headName), SpecificBinding(in.globalObject))
	if err := in.series.AppendCell(steps, head); err != nil {
		t.Fatal(err)
	}
	for _, r := range refs {
		var w Cell
		w.SetWord(in.symbols.Intern(r), Unbound)
		if err := in.series.AppendCell(steps, w); err != nil {
			t.Fatal(err)
		}
	}
	var path Cell
	path.SetPath(steps, 0, Unbound)
	return path
}

// TestRefinementPickupOutOfOrder pins the out-of-order refinement
// pickup behavior: calling f/b/a 10 20 against func [/a x /b y][...]
// assigns x=20 (a's arg, second in path order) and y=10 (b's arg,
// first in path order) — values are consumed in the order refinements
// were written in the call path, not the order they were declared.
func TestRefinementPickupOutOfOrder(t *testing.T) {
	in := New(Options{})

	symA := in.symbols.Intern("a")
	symX := in.symbols.Intern("x")
	symB := in.symbols.Intern("b")
	symY := in.symbols.Intern("y")

	specs := []ParamSpec{
		{Symbol: symA, Class: ParamRefinement},
		{Symbol: symX, Class: ParamNormal, Types: AllKinds()},
		{Symbol: symB, Class: ParamRefinement},
		{Symbol: symY, Class: ParamNormal, Types: AllKinds()},
	}

	var gotX, gotY Cell
	fn, err := in.DefineNative(in.globalObject, "f", specs, false, func(in2 *Interpreter, fr *Frame) EvalResult {
		gotX = fr.chunkArgs[1]
		gotY = fr.chunkArgs[3]
		return Ok()
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = fn

	call := buildPathCall(t, in, "f", "b", "a")
	src := in.series.NewArray(3, false)
	if err := in.series.AppendCell(src, call); err != nil {
		t.Fatal(err)
	}
	var v1, v2 Cell
	v1.SetInteger(10)
	v2.SetInteger(20)
	if err := in.series.AppendCell(src, v1); err != nil {
		t.Fatal(err)
	}
	if err := in.series.AppendCell(src, v2); err != nil {
		t.Fatal(err)
	}

	if _, err := in.Do(src); err != nil {
		t.Fatal(err)
	}

	xn, _ := gotX.Integer()
	yn, _ := gotY.Integer()
	if xn != 20 {
		t.Errorf("expected x=20, got %d", xn)
	}
	if yn != 10 {
		t.Errorf("expected y=10, got %d", yn)
	}
}

// TestRefinementNotRequested confirms an unrequested refinement leaves
// its flag false and its sub-argument void, per spec §4.4's boundary
// scenario for "f 1" against func [a /b c][...].
func TestRefinementNotRequested(t *testing.T) {
	in := New(Options{})
	symA := in.symbols.Intern("a")
	symB := in.symbols.Intern("b")
	symC := in.symbols.Intern("c")

	specs := []ParamSpec{
		{Symbol: symA, Class: ParamNormal, Types: AllKinds()},
		{Symbol: symB, Class: ParamRefinement},
		{Symbol: symC, Class: ParamNormal, Types: AllKinds()},
	}

	var bFlag, cVal Cell
	_, err := in.DefineNative(in.globalObject, "f", specs, false, func(in2 *Interpreter, fr *Frame) EvalResult {
		bFlag = fr.chunkArgs[1]
		cVal = fr.chunkArgs[2]
		return Ok()
	})
	if err != nil {
		t.Fatal(err)
	}

	src := in.series.NewArray(2, false)
	var w Cell
	w.SetWord(in.symbols.Intern("f"), SpecificBinding(in.globalObject))
	var one Cell
	one.SetInteger(1)
	if err := in.series.AppendCell(src, w); err != nil {
		t.Fatal(err)
	}
	if err := in.series.AppendCell(src, one); err != nil {
		t.Fatal(err)
	}

	if _, err := in.Do(src); err != nil {
		t.Fatal(err)
	}

	b, err := bFlag.Logic()
	if err != nil || b {
		t.Errorf("expected b=false, got %v (err %v)", b, err)
	}
	if cVal.Kind() != KindVoid {
		t.Errorf("expected c to be void, got %s", cVal.Kind())
	}
}

// TestLookbackDispatch defines a minimal infix "+" and checks that
// "1 + 2" dispatches it with the left operand taken from the value
// already computed for the literal 1, per spec §4.5 step 10.
func TestLookbackDispatch(t *testing.T) {
	in := New(Options{})
	symL := in.symbols.Intern("a")
	symR := in.symbols.Intern("b")
	specs := []ParamSpec{
		{Symbol: symL, Class: ParamNormal, Types: AllKinds()},
		{Symbol: symR, Class: ParamNormal, Types: AllKinds()},
	}
	fn, err := in.DefineNative(in.globalObject, "+", specs, false, func(in2 *Interpreter, fr *Frame) EvalResult {
		l, lerr := fr.chunkArgs[0].Integer()
		r, rerr := fr.chunkArgs[1].Integer()
		if lerr != nil || rerr != nil {
			return FatalResult(lerr)
		}
		fr.out.SetInteger(l + r)
		return Ok()
	})
	if err != nil {
		t.Fatal(err)
	}
	rec, err := in.functions.Record(fn)
	if err != nil {
		t.Fatal(err)
	}
	rec.Lookback = true

	src := in.series.NewArray(3, false)
	var one, plus, two Cell
	one.SetInteger(1)
	plus.SetWord(in.symbols.Intern("+"), SpecificBinding(in.globalObject))
	two.SetInteger(2)
	for _, c := range []Cell{one, plus, two} {
		if err := in.series.AppendCell(src, c); err != nil {
			t.Fatal(err)
		}
	}

	res, err := in.Do(src)
	if err != nil {
		t.Fatal(err)
	}
	n, err := res.Integer()
	if err != nil || n != 3 {
		t.Errorf("expected 3, got %v (err %v)", n, err)
	}
}
