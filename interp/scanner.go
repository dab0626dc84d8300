package interp

// Scanning source text into cells is out of scope for this build (spec
// §1's Non-goals). ArrayFromScan is the one seam a real scanner would
// plug into: given a slice of already-formed cells (produced by
// whatever lexer a host wires in), it builds the managed array Do
// expects, the same way the teacher hands a parsed AST to Eval rather
// than parsing inline.
func (in *Interpreter) ArrayFromScan(cells []Cell) SeriesHandle {
	h := in.series.NewArray(uint32(len(cells)), true)
	for _, c := range cells {
		_ = in.series.AppendCell(h, c) // capacity was sized for len(cells); cannot fail
	}
	return h
}
