package interp

import "testing"

// TestArrayEndMarkerSynthesis pins spec §3.2's invariant: reading an
// array one past its live length always yields an END! cell, never an
// out-of-range error or stale data.
func TestArrayEndMarkerSynthesis(t *testing.T) {
	a := newSeriesArena()
	h := a.NewArray(2, true)

	var v Cell
	v.SetInteger(9)
	if err := a.AppendCell(h, v); err != nil {
		t.Fatal(err)
	}

	end, err := a.ArrayAt(h, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !end.IsEnd() {
		t.Error("expected the cell at index==len to read as END!")
	}

	if _, err := a.ArrayAt(h, 2); err == nil {
		t.Error("expected an error reading past the synthesized end marker")
	}
}

func TestAppendInsertRemoveCell(t *testing.T) {
	a := newSeriesArena()
	h := a.NewArray(0, true)

	var one, two, three Cell
	one.SetInteger(1)
	two.SetInteger(2)
	three.SetInteger(3)

	if err := a.AppendCell(h, one); err != nil {
		t.Fatal(err)
	}
	if err := a.AppendCell(h, three); err != nil {
		t.Fatal(err)
	}
	if err := a.InsertCell(h, 1, two); err != nil {
		t.Fatal(err)
	}

	cells, err := a.ArrayCells(h)
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(cells))
	}
	for i, want := range []int64{1, 2, 3} {
		got, _ := cells[i].Integer()
		if got != want {
			t.Errorf("cell %d: got %d, want %d", i, got, want)
		}
	}

	if err := a.RemoveCell(h, 1); err != nil {
		t.Fatal(err)
	}
	cells, err = a.ArrayCells(h)
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 2 {
		t.Fatalf("expected 2 cells after removal, got %d", len(cells))
	}
	got, _ := cells[1].Integer()
	if got != 3 {
		t.Errorf("expected cell 1 to be 3 after removing the middle cell, got %d", got)
	}
}

// TestManageIsOneWay pins the GC contract: once a series is managed it
// cannot be force-freed directly, only reclaimed by the collector.
func TestManageIsOneWay(t *testing.T) {
	a := newSeriesArena()
	h := a.NewArray(0, false)

	if a.IsManaged(h) {
		t.Error("a series constructed with managed=false should start unmanaged")
	}
	if err := a.Manage(h); err != nil {
		t.Fatal(err)
	}
	if !a.IsManaged(h) {
		t.Error("Manage should mark the series managed")
	}
	if err := a.Free(h); err == nil {
		t.Error("expected Free to reject an explicit free of a managed series")
	}
}

func TestFreeUnmanagedSeries(t *testing.T) {
	a := newSeriesArena()
	h := a.NewArray(0, false)
	if err := a.Free(h); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Len(h); err == nil {
		t.Error("expected Len on a freed handle to error")
	}
}

func TestProtectRejectsMutation(t *testing.T) {
	a := newSeriesArena()
	h := a.NewArray(0, true)
	var v Cell
	v.SetInteger(1)
	if err := a.AppendCell(h, v); err != nil {
		t.Fatal(err)
	}
	if err := a.Protect(h, true); err != nil {
		t.Fatal(err)
	}
	if !a.IsProtected(h) {
		t.Error("expected IsProtected to report true after Protect(h, true)")
	}
	if err := a.AppendCell(h, v); err == nil {
		t.Error("expected AppendCell to a protected series to fail")
	}
	if err := a.RemoveCell(h, 0); err == nil {
		t.Error("expected RemoveCell on a protected series to fail")
	}
}
