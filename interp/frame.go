package interp

// FrameHandle is an arena index identifying a live evaluator frame
// (spec §4.5). Frames are not garbage-collected objects themselves;
// the handle exists so a reified frame-context (context.go's Reify)
// and a VARARGS! cell (cell_values.go's SetVarargs) can name a frame
// without holding a raw pointer, matching the handle discipline used
// for SeriesHandle/ContextHandle/FunctionHandle (DESIGN NOTES §9).
type FrameHandle uint32

// EvalType is the evaluator's fast dispatch tag, read off a
// pre-fetched cell's kind before the main switch in evalDispatch (spec
// §4.5: "a fast dispatch tag ... indexed directly by kind byte for
// branch-predictor-friendly speed").
type EvalType uint8

const (
	EvalInert EvalType = iota
	EvalBarType
	EvalGroupType
	EvalWordType
	EvalSetWordType
	EvalGetWordType
	EvalLitWordType
	EvalPathType
	EvalSetPathType
	EvalGetPathType
	EvalLitPathType
	EvalFunctionType
)

// evalTypeTable maps Kind to EvalType. Built once in init() rather
// than switched on per-cell, per spec's branch-predictor-friendly
// framing.
var evalTypeTable [kindCount]EvalType

func init() {
	for k := range evalTypeTable {
		evalTypeTable[k] = EvalInert
	}
	evalTypeTable[KindBar] = EvalBarType
	evalTypeTable[KindLitBar] = EvalInert // lit-bar is a passive value, unlike bar
	evalTypeTable[KindGroup] = EvalGroupType
	evalTypeTable[KindWord] = EvalWordType
	evalTypeTable[KindSetWord] = EvalSetWordType
	evalTypeTable[KindGetWord] = EvalGetWordType
	evalTypeTable[KindLitWord] = EvalLitWordType
	evalTypeTable[KindPath] = EvalPathType
	evalTypeTable[KindSetPath] = EvalSetPathType
	evalTypeTable[KindGetPath] = EvalGetPathType
	evalTypeTable[KindLitPath] = EvalLitPathType
	evalTypeTable[KindFunction] = EvalFunctionType
	evalTypeTable[KindRoutine] = EvalFunctionType
}

// VariadicFeed models the "C variadic pointer" alternative to an
// array+index source the spec allows a frame to read from (spec §4.5:
// "source: an array+index or a C variadic pointer"; §4.5.2 covers
// reifying it). pull is a Go closure standing in for the native
// va_list walk; Frame.ReifyVariadic drains the frame's current value
// and everything the feed still yields into a real array so the feed
// can be captured into a durable context like any other argument list.
type VariadicFeed struct {
	pull    func() (Cell, bool)
	reified SeriesHandle // 0 until Reify is called
}

// Frame is the evaluator's stack frame (spec §4.5). One Frame exists
// per nested Do_Core/function-call level; its chain (via anc) is the
// root set gc.go walks and the backtrace trace.go renders.
type Frame struct {
	handle FrameHandle
	interp *Interpreter

	// --- source feed ---
	sourceArray SeriesHandle // 0 if variadic-fed
	sourceIndex uint32
	variadic    *VariadicFeed
	specifier   Binding // binds relative words/arrays read from this feed

	// --- prefetch state (spec §4.5) ---
	value    Cell // the prefetched next cell to evaluate
	hasValue bool
	evalType EvalType
	gotten      Cell // cached lookup of the next word's binding
	gottenValid bool
	pending     *Cell // EVAL-injected value spliced into the feed (spec §4.5.1)

	// --- output ---
	out     Cell // where this frame's result (or thrown label) is written
	scratch Cell // scratch cell owned by the frame; GC-traced (spec §4.5)

	label SymbolID      // name of the function being run in this frame, for traces
	fn    FunctionHandle // the function this frame is dispatching, 0 if none
	anc   *Frame         // the calling frame, nil for the topmost

	state FrameState

	// Argument storage for the call this frame is dispatching (set by
	// FulfillAndCall in function.go just before invoking the
	// dispatcher): chunkArgs/chunkID for a non-durable call, argsCtx
	// for a durable one.
	chunkArgs []Cell
	chunkID   int
	argsCtx   ContextHandle
}

// FrameState records what a Frame is currently doing, used by gc.go to
// decide whether its in-progress argument storage must be traced as a
// root and by trace.go to label a backtrace line.
type FrameState uint8

const (
	FrameEvaluating FrameState = iota
	FrameFulfillingArgs
	FrameDispatching
	FrameDone
)

// registerFrame slots fr into in.frames, reusing a hole left by
// releaseFrame when one is available (the same free-list discipline
// SeriesArena.push uses) rather than growing the slice forever.
func (in *Interpreter) registerFrame(fr *Frame) {
	if n := len(in.frameFree); n > 0 {
		h := in.frameFree[n-1]
		in.frameFree = in.frameFree[:n-1]
		in.frames[h] = fr
		fr.handle = h
		return
	}
	in.frames = append(in.frames, fr)
	fr.handle = FrameHandle(len(in.frames) - 1)
}

// releaseFrame retires a frame once its call has returned (spec §4.5:
// a frame exists "per nested Do_Core/function-call level"). Without
// this, every frame ever allocated would stay in in.frames forever and
// gc.go's root walk would keep tracing long-dead calls' out/scratch/
// argument cells as permanently reachable.
func (in *Interpreter) releaseFrame(fr *Frame) {
	fr.state = FrameDone
	in.frames[fr.handle] = nil
	in.frameFree = append(in.frameFree, fr.handle)
}

// newFrame allocates a frame reading from an array series starting at
// index, bound by specifier (spec §4.5 "Allocate a frame").
func (in *Interpreter) newFrame(source SeriesHandle, index uint32, specifier Binding, anc *Frame) *Frame {
	fr := &Frame{
		interp:      in,
		sourceArray: source,
		sourceIndex: index,
		specifier:   specifier,
		anc:         anc,
		chunkID:     -1,
	}
	in.registerFrame(fr)
	return fr
}

// newVariadicFrame allocates a frame pulling cells from a variadic feed
// instead of an array (spec §4.5.2).
func (in *Interpreter) newVariadicFrame(pull func() (Cell, bool), specifier Binding, anc *Frame) *Frame {
	fr := &Frame{
		interp:    in,
		variadic:  &VariadicFeed{pull: pull},
		specifier: specifier,
		anc:       anc,
		chunkID:   -1,
	}
	in.registerFrame(fr)
	return fr
}

// IsSourceExhausted reports whether the feed has no further cells to
// prefetch, i.e. the evaluator has reached the END marker that
// terminates every array (spec §3.2's invariant) or the variadic feed
// returned false.
func (fr *Frame) IsSourceExhausted() bool {
	if fr.pending != nil {
		return false
	}
	if fr.variadic != nil {
		if fr.variadic.reified == 0 {
			// Pull one cell ahead; a cell that arrives is kept as pending
			// so the next Fetch returns it.
			v, ok := fr.variadic.pull()
			if ok {
				fr.Inject(v)
			}
			return !ok
		}
		return fr.sourceIndex >= fr.mustLen()
	}
	n, err := fr.interp.series.Len(fr.sourceArray)
	if err != nil {
		return true
	}
	return fr.sourceIndex >= n
}

func (fr *Frame) mustLen() uint32 {
	n, _ := fr.interp.series.Len(fr.variadic.reified)
	return n
}

// Fetch prefetches the next cell into fr.value and sets fr.evalType,
// advancing the feed (spec §4.5 "the stepping loop ... prefetches the
// next cell"). It returns false once the feed is exhausted.
func (fr *Frame) Fetch() (bool, error) {
	if fr.pending != nil {
		fr.value = *fr.pending
		fr.pending = nil
		fr.hasValue = true
		fr.evalType = evalTypeTable[fr.value.Kind()]
		fr.gottenValid = false
		return true, nil
	}
	if fr.variadic != nil {
		if fr.variadic.reified != 0 {
			return fr.fetchFromReified()
		}
		v, ok := fr.variadic.pull()
		if !ok {
			fr.hasValue = false
			return false, nil
		}
		fr.value = v
		fr.hasValue = true
		fr.evalType = evalTypeTable[fr.value.Kind()]
		fr.gottenValid = false
		return true, nil
	}
	n, err := fr.interp.series.Len(fr.sourceArray)
	if err != nil {
		return false, err
	}
	if fr.sourceIndex >= n {
		fr.hasValue = false
		return false, nil
	}
	cell, err := fr.interp.series.ArrayAt(fr.sourceArray, fr.sourceIndex)
	if err != nil {
		return false, err
	}
	fr.value = *cell
	fr.sourceIndex++
	fr.hasValue = true
	fr.evalType = evalTypeTable[fr.value.Kind()]
	fr.gottenValid = false
	return true, nil
}

func (fr *Frame) fetchFromReified() (bool, error) {
	n, err := fr.interp.series.Len(fr.variadic.reified)
	if err != nil {
		return false, err
	}
	if fr.sourceIndex >= n {
		fr.hasValue = false
		return false, nil
	}
	cell, err := fr.interp.series.ArrayAt(fr.variadic.reified, fr.sourceIndex)
	if err != nil {
		return false, err
	}
	fr.value = *cell
	fr.sourceIndex++
	fr.hasValue = true
	fr.evalType = evalTypeTable[fr.value.Kind()]
	fr.gottenValid = false
	return true, nil
}

// Inject splices a value into the feed ahead of whatever would be
// fetched next, implementing the EVAL instruction of spec §4.5.1
// ("pending: set when an EVAL instruction has spliced a value").
func (fr *Frame) Inject(v Cell) {
	cp := v
	fr.pending = &cp
}

// ReifyVariadic materializes a variadic feed's remaining values into a
// real managed array (spec §4.5.2 "Reifying a variadic feed"), so it
// can be captured by a durable context exactly like an array-backed
// one. Safe to call more than once; subsequent calls are no-ops.
func (fr *Frame) ReifyVariadic() error {
	if fr.variadic == nil || fr.variadic.reified != 0 {
		return nil
	}
	arr := fr.interp.series.NewArray(4, true)
	if fr.hasValue {
		if err := fr.interp.series.AppendCell(arr, fr.value); err != nil {
			return err
		}
	}
	for {
		v, ok := fr.variadic.pull()
		if !ok {
			break
		}
		if err := fr.interp.series.AppendCell(arr, v); err != nil {
			return err
		}
	}
	fr.variadic.reified = arr
	// fr.value, if already fetched, was appended at index 0 above and is
	// still the frame's current value; the next Fetch must resume past it.
	fr.sourceIndex = 0
	if fr.hasValue {
		fr.sourceIndex = 1
	}
	return nil
}
