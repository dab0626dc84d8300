package interp

import "testing"

func TestChunkStackPushCellsAreEndMarkers(t *testing.T) {
	cs := newChunkStack()
	id := cs.Push(3)
	for i, c := range cs.Cells(id) {
		if !c.IsEnd() {
			t.Errorf("cell %d of a freshly pushed chunk should be an end marker", i)
		}
	}
}

func TestChunkStackPopOutOfOrderRejected(t *testing.T) {
	cs := newChunkStack()
	id1 := cs.Push(2)
	id2 := cs.Push(2)
	if err := cs.Pop(id1); err == nil {
		t.Error("expected popping a non-top chunk to fail")
	}
	if err := cs.Pop(id2); err != nil {
		t.Fatal(err)
	}
	if err := cs.Pop(id1); err != nil {
		t.Fatal(err)
	}
}

func TestChunkStackUnwindToLevel(t *testing.T) {
	cs := newChunkStack()
	cs.Push(1)
	level := cs.Level()
	cs.Push(1)
	cs.Push(1)
	cs.UnwindTo(level)
	if cs.Level() != level {
		t.Errorf("expected level %d after UnwindTo, got %d", level, cs.Level())
	}
}

func TestChunkStackCellsAreWritable(t *testing.T) {
	cs := newChunkStack()
	id := cs.Push(1)
	var v Cell
	v.SetInteger(42)
	cs.Cells(id)[0] = v
	n, err := cs.Cells(id)[0].Integer()
	if err != nil || n != 42 {
		t.Errorf("expected the chunk slot to hold the assigned value, got %v (err %v)", n, err)
	}
}
