package interp

import (
	"fmt"

	"github.com/pkg/errors"
)

// ParamClass is the role one paramlist slot plays during argument
// fulfillment (spec §3.5, §4.4).
type ParamClass uint8

const (
	ParamNormal ParamClass = iota
	ParamHardQuoted
	ParamSoftQuoted
	ParamRefinement
	ParamPureLocal
	ParamReturn
	ParamLeave
	ParamVariadic
)

// Dispatcher is the Go-level implementation a function record invokes
// once its arguments are fulfilled (spec §4.4 step 5 "Call the
// dispatcher"). It receives the call frame, whose sourceArray/out/
// specifier have already been set up and whose chunkArgs (non-durable
// call) or argsCtx (durable call) hold the fulfilled arguments; it
// returns the evaluator's sum-type result (spec §4.6).
type Dispatcher func(in *Interpreter, fr *Frame) EvalResult

// DispatcherKind records which of the function "collaborator" shapes
// spec §3.5 names a FunctionRecord is, purely for introspection and
// error messages; dispatch itself always goes through Dispatcher.
type DispatcherKind uint8

const (
	DispatchNative DispatcherKind = iota
	DispatchAction
	DispatchPlain
	DispatchSpecializer
	DispatchAdapter
	DispatchChainer
	DispatchRoutine
	DispatchHijacker
)

// FunctionRecord is spec §3.5's Function: "paramlist describing its
// interface, a body (which may be native code, bytecode, or a user
// block), and a dispatcher".
type FunctionRecord struct {
	Paramlist SeriesHandle // slot 0 is the self FUNCTION! cell; slots 1..N are param typesets
	Body      SeriesHandle // 0 for natives (body lives in Dispatcher closure)
	Kind      DispatcherKind
	Dispatch  Dispatcher

	// Durable controls storage per spec §4.4 step 1: a non-durable call
	// pushes a chunk; a durable one (this function's body captures its
	// own locals in a closure, or its frame may be reified) allocates a
	// managed varlist up front.
	Durable bool

	// Exemplar holds pre-filled argument cells for a SPECIALIZE-style
	// function (spec §3.5 "glue" functions): len(Exemplar) == numParams,
	// and any slot that is not IsEnd() is copied in before the ordinary
	// walk runs, skipping that parameter's fulfillment.
	Exemplar []Cell

	// Lookback marks an infix/enfix-dispatched function (spec §4.5 step
	// 10's left-associative lookback handling): when the word that
	// follows a completed expression resolves to a lookback function,
	// DoToEnd passes that expression's value as its left argument rather
	// than fetching it from the feed. A lookback word at the start of an
	// expression is called like any other function.
	Lookback bool

	Label SymbolID // name under which this function was defined, for traces
}

// FunctionArena owns every live FunctionRecord for one Interpreter.
type FunctionArena struct {
	records []*FunctionRecord
}

func newFunctionArena() *FunctionArena {
	a := &FunctionArena{}
	a.records = append(a.records, nil) // handle 0 reserved
	return a
}

func (a *FunctionArena) get(h FunctionHandle) (*FunctionRecord, error) {
	if h == 0 || int(h) >= len(a.records) || a.records[h] == nil {
		return nil, errors.New("interp: use of a freed or nil function handle")
	}
	return a.records[h], nil
}

// NewFunction registers a FunctionRecord and returns its handle.
func (a *FunctionArena) NewFunction(rec FunctionRecord) FunctionHandle {
	a.records = append(a.records, &rec)
	return FunctionHandle(len(a.records) - 1)
}

func (a *FunctionArena) Record(h FunctionHandle) (*FunctionRecord, error) { return a.get(h) }

// ParamSpec is one parsed paramlist entry (spec §3.5's keylist-shaped
// paramlist, read back out into a Go-friendly form for the arg-walk).
type ParamSpec struct {
	Index  uint32 // 1-based slot in the paramlist
	Symbol SymbolID
	Class  ParamClass
	Types  TypesetBitset
}

// ParamSpecs reads a function's paramlist (skipping the self slot)
// into an ordered list of ParamSpec.
func (in *Interpreter) ParamSpecs(fn FunctionHandle) ([]ParamSpec, error) {
	rec, err := in.functions.get(fn)
	if err != nil {
		return nil, err
	}
	cells, err := in.series.ArrayCells(rec.Paramlist)
	if err != nil {
		return nil, err
	}
	specs := make([]ParamSpec, 0, len(cells)-1)
	for i := 1; i < len(cells); i++ {
		sym, types, err := cells[i].Typeset()
		if err != nil {
			return nil, err
		}
		specs = append(specs, ParamSpec{
			Index:  uint32(i),
			Symbol: sym,
			Class:  ParamClass(cells[i].Extra()),
			Types:  types,
		})
	}
	return specs, nil
}

// MakeParamlist builds a paramlist series from an ordered list of
// (symbol, class, types), writing the self FUNCTION! slot at index 0
// once fn is known (NewFunction fills it in after allocation, since
// the handle doesn't exist until the record is registered).
func (in *Interpreter) MakeParamlist(specs []ParamSpec) (SeriesHandle, error) {
	pl := in.series.NewArray(uint32(len(specs)+1), true)
	var self Cell
	self.FormatAsCell()
	if err := in.series.AppendCell(pl, self); err != nil {
		return 0, err
	}
	for _, sp := range specs {
		var c Cell
		c.SetTypeset(sp.Symbol, sp.Types)
		c.head |= header(sp.Class) << headerExtraShift
		if err := in.series.AppendCell(pl, c); err != nil {
			return 0, err
		}
	}
	return pl, nil
}

// bindParamlistSelf writes fn's own FUNCTION! value into slot 0 of its
// paramlist, the self-reference every paramlist/keylist carries (spec
// §3.4's rootkey convention, reused for paramlists per §3.5).
func (in *Interpreter) bindParamlistSelf(fn FunctionHandle) error {
	rec, err := in.functions.get(fn)
	if err != nil {
		return err
	}
	self, err := in.series.ArrayAt(rec.Paramlist, 0)
	if err != nil {
		return err
	}
	self.SetFunction(KindFunction, fn)
	return nil
}

// paramGroup is either a single plain parameter (Refinement == nil) or
// a refinement together with the sub-parameters that immediately
// follow it in the paramlist, up to the next refinement (spec §4.4.1).
type paramGroup struct {
	Refinement *ParamSpec
	Members    []ParamSpec
}

// groupParams partitions a paramlist into a leading run of plain
// parameters and an ordered list of refinement groups (see DESIGN.md's
// "Open Question decisions" for why this split is the chosen reading
// of spec §4.4.1's out-of-order pickup algorithm).
func groupParams(specs []ParamSpec) (leading []ParamSpec, groups []paramGroup) {
	i := 0
	for i < len(specs) && specs[i].Class != ParamRefinement {
		leading = append(leading, specs[i])
		i++
	}
	for i < len(specs) {
		g := paramGroup{Refinement: &specs[i]}
		i++
		for i < len(specs) && specs[i].Class != ParamRefinement {
			g.Members = append(g.Members, specs[i])
			i++
		}
		groups = append(groups, g)
	}
	return leading, groups
}

// FulfillAndCall performs spec §4.4's full argument-fulfillment
// algorithm for a call to fn made from callerFrame's feed, then
// invokes its dispatcher, returning the evaluator sum-type result.
// requestedRefinements is the ordered (path-written order) list of
// refinement names the call site asked for; nil for a plain word call.
// leftArg, when non-nil, pre-fills the first leading plain parameter
// instead of reading it from the feed — the left-associative lookback
// dispatch of spec §4.5 step 10 (e.g. "1 + 2": "+" 's left operand is
// the value already computed into the caller's Out, not a fetch).
// out receives the call's result (or thrown label) directly; every
// call site must pass the actual destination its expression result
// belongs in, since that is frequently not callerFrame.out itself (a
// top-level Do's local result cell, a GROUP!'s own out, ...).
func (in *Interpreter) FulfillAndCall(callerFrame *Frame, fn FunctionHandle, requestedRefinements []SymbolID, leftArg *Cell, out *Cell) EvalResult {
	rec, err := in.functions.get(fn)
	if err != nil {
		return FatalResult(err)
	}
	specs, err := in.ParamSpecs(fn)
	if err != nil {
		return FatalResult(err)
	}
	leading, groups := groupParams(specs)

	n := uint32(len(specs))
	var storage []Cell
	chunkID := -1
	var ctx ContextHandle

	if rec.Durable {
		keys := make([]keyEntry, 0, n)
		for _, sp := range specs {
			keys = append(keys, keyEntry{symbol: sp.Symbol, types: sp.Types})
		}
		h, err := in.contexts.NewContext(KindFrame, keys, true)
		if err != nil {
			return FatalResult(err)
		}
		ctx = h
		vl, _ := in.contexts.Varlist(h)
		storage, err = in.series.ArrayCells(vl)
		if err != nil {
			return FatalResult(err)
		}
		storage = storage[1:] // skip self slot; len n
	} else {
		chunkID = in.chunks.Push(int(n))
		storage = in.chunks.Cells(chunkID)
	}

	requested := make(map[SymbolID]bool, len(requestedRefinements))
	for _, r := range requestedRefinements {
		requested[r] = true
	}

	fill := func(sp ParamSpec, slot *Cell) EvalResult {
		switch sp.Class {
		case ParamPureLocal, ParamReturn, ParamLeave:
			slot.SetVoid()
			return Ok()
		case ParamHardQuoted:
			ok, err := callerFrame.Fetch()
			if err != nil {
				return FatalResult(err)
			}
			if !ok {
				slot.SetVoid()
				return Ok()
			}
			*slot = callerFrame.value
			return Ok()
		case ParamSoftQuoted:
			ok, err := callerFrame.Fetch()
			if err != nil {
				return FatalResult(err)
			}
			if !ok {
				slot.SetVoid()
				return Ok()
			}
			if callerFrame.evalType == EvalGroupType {
				return in.evalStep(callerFrame, slot)
			}
			*slot = callerFrame.value
			return Ok()
		default: // ParamNormal, ParamVariadic
			return in.evalStep(callerFrame, slot)
		}
	}

	for i, sp := range leading {
		if i == 0 && leftArg != nil && (sp.Class == ParamNormal || sp.Class == ParamHardQuoted || sp.Class == ParamSoftQuoted) {
			storage[sp.Index-1] = *leftArg
		} else if r := fill(sp, &storage[sp.Index-1]); !r.IsOk() {
			in.abortFulfillment(rec, chunkID, ctx)
			return r
		}
		if sp.Types != 0 && !sp.Types.Has(storage[sp.Index-1].Kind()) {
			in.abortFulfillment(rec, chunkID, ctx)
			return FatalResult(ErrWrongType(storage[sp.Index-1].Kind(), in.symbols.Text(sp.Symbol)))
		}
	}

	// Exemplar pre-fill (specializer glue functions, spec §3.5).
	if len(rec.Exemplar) == len(specs) {
		for i, ec := range rec.Exemplar {
			if !ec.IsEnd() {
				storage[i] = ec
			}
		}
	}

	// Refinement groups: flags set in declared order; sub-argument
	// VALUES consumed from the feed in requestedRefinements (path)
	// order, per the Open Question decision recorded in DESIGN.md.
	for _, g := range groups {
		want := requested[g.Refinement.Symbol]
		if in.opt.TraceRefinements {
			fmt.Fprintf(in.opt.Stderr, "refinement /%s: %t\n", in.symbols.Text(g.Refinement.Symbol), want)
		}
		var flag Cell
		flag.SetLogic(want)
		storage[g.Refinement.Index-1] = flag
		if !want {
			for _, m := range g.Members {
				storage[m.Index-1].SetVoid()
			}
		}
	}
	for _, reqSym := range requestedRefinements {
		for _, g := range groups {
			if g.Refinement.Symbol != reqSym {
				continue
			}
			if in.opt.TraceRefinements {
				fmt.Fprintf(in.opt.Stderr, "pickup /%s\n", in.symbols.Text(reqSym))
			}
			for _, m := range g.Members {
				if r := fill(m, &storage[m.Index-1]); !r.IsOk() {
					in.abortFulfillment(rec, chunkID, ctx)
					return r
				}
				if m.Types != 0 && !m.Types.Has(storage[m.Index-1].Kind()) {
					in.abortFulfillment(rec, chunkID, ctx)
					return FatalResult(ErrWrongType(storage[m.Index-1].Kind(), in.symbols.Text(m.Symbol)))
				}
			}
		}
	}

	childSource := rec.Body
	childSpecifier := SpecificBinding(ctx)
	if !rec.Durable {
		childSpecifier = RelativeBinding(fn)
	}
	child := in.newFrame(childSource, 0, childSpecifier, callerFrame)
	child.label = rec.Label
	child.fn = fn
	child.state = FrameDispatching
	if !rec.Durable {
		child.chunkArgs = storage
		child.chunkID = chunkID
	} else {
		child.argsCtx = ctx
	}

	result := rec.Dispatch(in, child)
	in.releaseFrame(child)

	if ctx != 0 {
		if r := result; r.IsThrown() && MatchesFunctionThrow(&child.out, fn) {
			// RETURN/LEAVE targeting this call: absorb it below.
		}
		_ = in.contexts.EndFrame(ctx)
	}
	if chunkID >= 0 {
		_ = in.chunks.Pop(chunkID)
	}

	if result.IsThrown() && MatchesFunctionThrow(&child.out, fn) {
		*out = child.out
		out.SetThrown(false)
		return Ok()
	}
	*out = child.out
	return result
}

func (in *Interpreter) abortFulfillment(rec *FunctionRecord, chunkID int, ctx ContextHandle) {
	if chunkID >= 0 {
		_ = in.chunks.Pop(chunkID)
	}
	if ctx != 0 {
		_ = in.contexts.EndFrame(ctx)
	}
}
