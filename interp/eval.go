package interp

import "github.com/pkg/errors"

// evalStep prefetches one cell from fr and evaluates exactly one
// expression starting there, writing the result into out (spec §4.5's
// stepping loop, one iteration). It is the unit both DoToEnd's driving
// loop and argument fulfillment (function.go's fill closure) build on.
func (in *Interpreter) evalStep(fr *Frame, out *Cell) EvalResult {
	ok, err := fr.Fetch()
	if err != nil {
		return FatalResult(err)
	}
	if !ok {
		out.SetVoid()
		return Ok()
	}
	return in.evalDispatch(fr, out)
}

// evalDispatch evaluates the cell already prefetched into fr.value,
// branching on fr.evalType (spec §4.5's "table indexed directly by
// kind byte").
func (in *Interpreter) evalDispatch(fr *Frame, out *Cell) EvalResult {
	switch fr.evalType {
	case EvalInert:
		*out = fr.value
		return Ok()
	case EvalBarType:
		out.SetVoid()
		return Ok()
	case EvalGroupType:
		return in.evalGroup(fr, out)
	case EvalWordType:
		return in.evalWord(fr, out)
	case EvalSetWordType:
		return in.evalSetWord(fr, out)
	case EvalGetWordType:
		return in.evalGetWord(fr, out)
	case EvalLitWordType:
		return in.evalLitWord(fr, out)
	case EvalPathType:
		return in.evalPath(fr, out)
	case EvalSetPathType:
		return in.evalSetPath(fr, out)
	case EvalGetPathType:
		return in.evalGetPath(fr, out)
	case EvalLitPathType:
		*out = fr.value
		return Ok()
	case EvalFunctionType:
		fnH, err := fr.value.Function()
		if err != nil {
			return FatalResult(err)
		}
		return in.FulfillAndCall(fr, fnH, nil, nil, out)
	default:
		return FatalResult(errors.New("interp: unhandled eval type"))
	}
}

// DoToEnd runs fr to exhaustion, evaluating each expression in turn
// and leaving the last one's value in out (spec §4.5's top-level
// "Do" driving the stepping loop to the end of an array; also what a
// plain function's body dispatcher runs). It also implements the
// left-associative lookback dispatch of step 10: after an ordinary
// expression produces a value, if the very next source cell is a word
// bound to a lookback (infix) function, that function consumes the
// already-computed value as its left argument instead of out being
// handed to the caller.
func (in *Interpreter) DoToEnd(fr *Frame, out *Cell) EvalResult {
	out.SetVoid()
	for {
		if in.HaltRequested() {
			var label Cell
			label.SetWord(SymbolID(labelHalt), Unbound)
			return MakeThrow(out, label)
		}
		r := in.evalStep(fr, out)
		if !r.IsOk() {
			return r
		}
		for {
			fnH, isFn, peekErr := in.peekLookback(fr)
			if peekErr != nil {
				return FatalResult(peekErr)
			}
			if !isFn {
				break
			}
			if _, err := fr.Fetch(); err != nil {
				return FatalResult(err)
			}
			left := *out
			r = in.FulfillAndCall(fr, fnH, nil, &left, out)
			if !r.IsOk() {
				return r
			}
		}
		if fr.IsSourceExhausted() {
			return Ok()
		}
	}
}

// peekLookback reports whether the very next (not-yet-fetched) source
// cell is a word bound to a lookback function, without consuming it.
func (in *Interpreter) peekLookback(fr *Frame) (FunctionHandle, bool, error) {
	if fr.variadic != nil || fr.pending != nil {
		return 0, false, nil
	}
	n, err := in.series.Len(fr.sourceArray)
	if err != nil {
		return 0, false, err
	}
	if fr.sourceIndex >= n {
		return 0, false, nil
	}
	cell, err := in.series.ArrayAt(fr.sourceArray, fr.sourceIndex)
	if err != nil {
		return 0, false, err
	}
	if cell.Kind() != KindWord {
		return 0, false, nil
	}
	w := *cell
	varCell, err := in.getWordVar(fr, &w)
	if err != nil || varCell == nil {
		return 0, false, nil
	}
	if !varCell.Kind().IsAnyFunction() {
		return 0, false, nil
	}
	fnH, err := varCell.Function()
	if err != nil {
		return 0, false, nil
	}
	rec, err := in.functions.Record(fnH)
	if err != nil || !rec.Lookback {
		return 0, false, nil
	}
	return fnH, true, nil
}

func errHalt() error { return errors.New("interp: halted") }

func (in *Interpreter) evalGroup(fr *Frame, out *Cell) EvalResult {
	s, idx, err := fr.value.Series()
	if err != nil {
		return FatalResult(err)
	}
	child := in.newFrame(s, idx, fr.specifier, fr)
	r := in.DoToEnd(child, out)
	in.releaseFrame(child)
	return r
}

func (in *Interpreter) evalWord(fr *Frame, out *Cell) EvalResult {
	w := fr.value
	varCell, err := in.getWordVar(fr, &w)
	if err != nil {
		return FatalResult(err)
	}
	if varCell.Kind().IsAnyFunction() {
		fnH, ferr := varCell.Function()
		if ferr != nil {
			return FatalResult(ferr)
		}
		return in.FulfillAndCall(fr, fnH, nil, nil, out)
	}
	*out = *varCell
	return Ok()
}

func (in *Interpreter) evalGetWord(fr *Frame, out *Cell) EvalResult {
	w := fr.value
	varCell, err := in.getWordVar(fr, &w)
	if err != nil {
		return FatalResult(err)
	}
	*out = *varCell
	return Ok()
}

func (in *Interpreter) evalLitWord(fr *Frame, out *Cell) EvalResult {
	sym, err := fr.value.Symbol()
	if err != nil {
		return FatalResult(err)
	}
	out.SetWord(sym, fr.value.Binding())
	return Ok()
}

func (in *Interpreter) evalSetWord(fr *Frame, out *Cell) EvalResult {
	w := fr.value
	var val Cell
	r := in.evalStep(fr, &val)
	if !r.IsOk() {
		return r
	}
	if err := in.setWordVar(fr, &w, val); err != nil {
		return FatalResult(err)
	}
	*out = val
	return Ok()
}

// locateWord resolves a word cell to either a direct chunk-storage
// pointer (non-durable call locals) or a (context, index) pair
// (durable calls, objects, modules). CachedIndex (cell_values.go) is
// filled in on w when it is first resolved, and a later call with the
// same w skips the symbol scan. The evaluator passes copies of source
// cells here, so the cell stored in the source array keeps no cached
// index and each evaluation of it repeats the scan.
func (in *Interpreter) locateWord(fr *Frame, w *Cell) (chunkSlot *Cell, ctx ContextHandle, idx uint32, err error) {
	sym, err := w.Symbol()
	if err != nil {
		return nil, 0, 0, err
	}
	b := w.Binding()
	if b.IsRelative() {
		fn := b.Function()
		if fr.fn != fn {
			return nil, 0, 0, errors.Errorf("interp: %s is bound relative to a call that is not currently running", in.symbols.Text(sym))
		}
		idx = w.CachedIndex()
		if idx == 0 {
			specs, serr := in.ParamSpecs(fn)
			if serr != nil {
				return nil, 0, 0, serr
			}
			for _, sp := range specs {
				if in.symbols.SameIdentifier(sp.Symbol, sym) {
					idx = sp.Index
					break
				}
			}
			if idx == 0 {
				return nil, 0, 0, ErrUnboundWord(in.symbols.Text(sym))
			}
			w.SetCachedIndex(idx)
		}
		if fr.argsCtx != 0 {
			return nil, fr.argsCtx, idx, nil
		}
		if int(idx-1) >= len(fr.chunkArgs) {
			return nil, 0, 0, errors.New("interp: argument index out of range")
		}
		return &fr.chunkArgs[idx-1], 0, 0, nil
	}
	ctx = b.Context()
	if ctx == 0 {
		return nil, 0, 0, ErrUnboundWord(in.symbols.Text(sym))
	}
	idx = w.CachedIndex()
	if idx == 0 {
		idx, err = in.contexts.IndexOf(ctx, sym)
		if err != nil {
			return nil, 0, 0, err
		}
		if idx == 0 {
			return nil, 0, 0, ErrUnboundWord(in.symbols.Text(sym))
		}
		w.SetCachedIndex(idx)
	}
	return nil, ctx, idx, nil
}

func (in *Interpreter) getWordVar(fr *Frame, w *Cell) (*Cell, error) {
	slot, ctx, idx, err := in.locateWord(fr, w)
	if err != nil {
		return nil, err
	}
	if slot != nil {
		return slot, nil
	}
	return in.contexts.GetVar(ctx, idx)
}

func (in *Interpreter) setWordVar(fr *Frame, w *Cell, val Cell) error {
	slot, ctx, idx, err := in.locateWord(fr, w)
	if err != nil {
		return err
	}
	if slot != nil {
		*slot = val
		return nil
	}
	return in.contexts.SetVar(ctx, idx, val)
}

// pickStep resolves one path step against the current selected value
// (spec §6's path-selection collaborator, narrowed here to ANY-CONTEXT!
// field selection and ANY-ARRAY! 1-based indexing — the two cases the
// boundary scenarios exercise).
func (in *Interpreter) pickStep(cur *Cell, step Cell) (Cell, error) {
	switch {
	case cur.Kind().IsAnyContext():
		ctx, err := cur.Context()
		if err != nil {
			return Cell{}, err
		}
		sym, serr := step.Symbol()
		if serr != nil {
			return Cell{}, errors.New("interp: path step on a context must be a word")
		}
		idx, ierr := in.contexts.IndexOf(ctx, sym)
		if ierr != nil {
			return Cell{}, ierr
		}
		if idx == 0 {
			return Cell{}, ErrUnboundWord(in.symbols.Text(sym))
		}
		v, gerr := in.contexts.GetVar(ctx, idx)
		if gerr != nil {
			return Cell{}, gerr
		}
		return *v, nil
	case cur.Kind().IsAnyArray():
		n, ierr := step.Integer()
		if ierr != nil {
			return Cell{}, errors.New("interp: path step on a block must be an integer")
		}
		s, _, serr := cur.Series()
		if serr != nil {
			return Cell{}, serr
		}
		v, aerr := in.series.ArrayAt(s, uint32(n-1))
		if aerr != nil {
			return Cell{}, aerr
		}
		return *v, nil
	default:
		return Cell{}, errors.Errorf("interp: path selection not supported for %s", cur.Kind())
	}
}

func (in *Interpreter) pathCells(fr *Frame) ([]Cell, error) {
	s, idx, err := fr.value.Series()
	if err != nil {
		return nil, err
	}
	cells, err := in.series.ArrayCells(s)
	if err != nil {
		return nil, err
	}
	if int(idx) > len(cells) {
		return nil, errors.New("interp: path index out of range")
	}
	return cells[idx:], nil
}

func (in *Interpreter) evalPath(fr *Frame, out *Cell) EvalResult {
	steps, err := in.pathCells(fr)
	if err != nil {
		return FatalResult(err)
	}
	if len(steps) == 0 {
		return FatalResult(errors.New("interp: empty path"))
	}
	if steps[0].Kind() != KindWord {
		return FatalResult(errors.New("interp: only word-headed paths are supported"))
	}
	head := steps[0]
	headVar, err := in.getWordVar(fr, &head)
	if err != nil {
		return FatalResult(err)
	}
	if headVar.Kind().IsAnyFunction() {
		fnH, ferr := headVar.Function()
		if ferr != nil {
			return FatalResult(ferr)
		}
		refs := make([]SymbolID, 0, len(steps)-1)
		for _, st := range steps[1:] {
			sym, serr := st.Symbol()
			if serr != nil {
				return FatalResult(errors.New("interp: refinement path step must be a word"))
			}
			refs = append(refs, sym)
		}
		return in.FulfillAndCall(fr, fnH, refs, nil, out)
	}
	cur := *headVar
	for _, st := range steps[1:] {
		next, perr := in.pickStep(&cur, st)
		if perr != nil {
			return FatalResult(perr)
		}
		cur = next
	}
	*out = cur
	return Ok()
}

func (in *Interpreter) evalGetPath(fr *Frame, out *Cell) EvalResult {
	steps, err := in.pathCells(fr)
	if err != nil {
		return FatalResult(err)
	}
	if len(steps) == 0 || steps[0].Kind() != KindWord {
		return FatalResult(errors.New("interp: only word-headed paths are supported"))
	}
	head := steps[0]
	cur, err := in.getWordVar(fr, &head)
	if err != nil {
		return FatalResult(err)
	}
	val := *cur
	for _, st := range steps[1:] {
		next, perr := in.pickStep(&val, st)
		if perr != nil {
			return FatalResult(perr)
		}
		val = next
	}
	*out = val
	return Ok()
}

func (in *Interpreter) evalSetPath(fr *Frame, out *Cell) EvalResult {
	steps, err := in.pathCells(fr)
	if err != nil {
		return FatalResult(err)
	}
	if len(steps) < 2 || steps[0].Kind() != KindWord {
		return FatalResult(errors.New("interp: set-path needs a word head and at least one step"))
	}
	head := steps[0]
	container, err := in.getWordVar(fr, &head)
	if err != nil {
		return FatalResult(err)
	}
	cur := *container
	for _, st := range steps[1 : len(steps)-1] {
		next, perr := in.pickStep(&cur, st)
		if perr != nil {
			return FatalResult(perr)
		}
		cur = next
	}
	last := steps[len(steps)-1]

	var val Cell
	r := in.evalStep(fr, &val)
	if !r.IsOk() {
		return r
	}

	switch {
	case cur.Kind().IsAnyContext():
		ctx, cerr := cur.Context()
		if cerr != nil {
			return FatalResult(cerr)
		}
		sym, serr := last.Symbol()
		if serr != nil {
			return FatalResult(errors.New("interp: set-path step must be a word"))
		}
		idx, ierr := in.contexts.IndexOf(ctx, sym)
		if ierr != nil {
			return FatalResult(ierr)
		}
		if idx == 0 {
			return FatalResult(ErrUnboundWord(in.symbols.Text(sym)))
		}
		if serr := in.contexts.SetVar(ctx, idx, val); serr != nil {
			return FatalResult(serr)
		}
	case cur.Kind().IsAnyArray():
		n, ierr := last.Integer()
		if ierr != nil {
			return FatalResult(errors.New("interp: set-path step on a block must be an integer"))
		}
		s, _, serr := cur.Series()
		if serr != nil {
			return FatalResult(serr)
		}
		cell, aerr := in.series.ArrayAt(s, uint32(n-1))
		if aerr != nil {
			return FatalResult(aerr)
		}
		*cell = val
	default:
		return FatalResult(errors.Errorf("interp: path assignment not supported for %s", cur.Kind()))
	}
	*out = val
	return Ok()
}

// PlainDispatch is the Dispatcher for an ordinary user-defined function
// (spec §3.5's "plain" collaborator): simply run its body to the end.
func PlainDispatch(in *Interpreter, fr *Frame) EvalResult {
	return in.DoToEnd(fr, &fr.out)
}
