package interp

import "testing"

func TestCellIntegerRoundTrip(t *testing.T) {
	var c Cell
	c.SetInteger(-123)
	v, err := c.Integer()
	if err != nil {
		t.Fatal(err)
	}
	if v != -123 {
		t.Errorf("got %d, want -123", v)
	}
}

func TestCellTruthyFalseyMutualExclusive(t *testing.T) {
	var logic, blank, voidC, intC Cell
	logic.SetLogic(false)
	blank.SetBlank()
	voidC.SetVoid()
	intC.SetInteger(0)

	if !logic.IsFalsey() {
		t.Error("false logic should be falsey")
	}
	if !blank.IsFalsey() {
		t.Error("blank should be falsey")
	}
	if intC.IsFalsey() {
		t.Error("integer 0 is truthy in this type system, not falsey")
	}
	if _, err := voidC.IsTruthy(); err == nil {
		t.Error("void should error when asked for truthiness")
	}
}

func TestCellEndMarkerInvariant(t *testing.T) {
	var end Cell
	end.MakeEnd()
	if !end.IsEnd() {
		t.Error("MakeEnd should produce IsEnd() == true")
	}
	var i Cell
	i.SetInteger(5)
	if i.IsEnd() {
		t.Error("a formatted integer cell must not read as an end marker")
	}
}

func TestMoveValueRejectsRelativeStackEscape(t *testing.T) {
	var src, dst Cell
	src.SetWord(1, RelativeBinding(1))
	src.head |= headerStackLife
	// dst does NOT carry the stack-life bit, modeling a longer-lived
	// destination: moving a stack-relative cell into it must fault
	// rather than let the binding outlive its originating call.
	if err := dst.MoveValue(&src); err == nil {
		t.Error("expected MoveValue to reject a relative stack-life cell moving into a longer-lived destination")
	}
}

func TestTypesetBitset(t *testing.T) {
	ts := TypesetBitset(0).Set(KindInteger).Set(KindDecimal)
	if !ts.Has(KindInteger) || !ts.Has(KindDecimal) {
		t.Error("expected typeset to contain both kinds")
	}
	if ts.Has(KindWord) {
		t.Error("expected typeset to exclude word!")
	}
}
