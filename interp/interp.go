package interp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// Options configures a New Interpreter, in the same spirit as the
// teacher's own Options (interp.go:278-305): stream redirection plus a
// handful of env-var-driven debug knobs read once at construction.
type Options struct {
	// Stdin, Stdout, Stderr default to os.Stdin/Stdout/Stderr.
	Stdin          io.Reader
	Stdout, Stderr io.Writer

	// Host supplies the wall-clock/random/filesystem/halt-check
	// collaborators of spec §6. When nil, only Now (time.Now) and
	// Random (math/rand) are set; the other callbacks stay nil.
	Host *HostCallbacks

	// TraceRefinements, if set, makes every refinement pickup during
	// argument fulfillment (function.go's FulfillAndCall) log its
	// decision to Stderr — a debug-only aid for the out-of-order
	// pickup algorithm of spec §4.4.1, in the same vein as the
	// teacher's YAEGI_AST_DOT/YAEGI_CFG_DOT toggles.
	TraceRefinements bool
}

// Interpreter is the top-level handle for one interpreter instance.
// Per DESIGN NOTES §9 ("no process-wide globals: an Interpreter handle
// carries all state"), every arena and the symbol table hang off this
// struct rather than living as package-level variables, unlike the
// original's global tables.
type Interpreter struct {
	id uuid.UUID

	series    *SeriesArena
	symbols   *SymbolTable
	contexts  *ContextArena
	functions *FunctionArena
	chunks    *ChunkStack
	gc        *GC

	globalObject ContextHandle
	taskRoot     ContextHandle
	dataStack    []Cell
	frames       []*Frame
	frameFree    []FrameHandle

	host HostCallbacks
	opt  Options

	// guard serializes entry into Do/Apply: this rendition's evaluator
	// is not reentrant across goroutines (mirrors the teacher's own
	// single active eval assumption, interp.go's mutex around
	// interp.frame). acquire takes it with TryAcquire, so a second
	// entry fails at once with an error instead of waiting.
	guard *semaphore.Weighted

	// runID increments on every top-level Do/Apply, the same
	// cancellation-epoch idea as the teacher's frame.id (interp.go:106-109).
	runID uint64

	haltFlag int32
}

// New returns a new Interpreter (spec §6 host entry point).
func New(options Options) *Interpreter {
	series := newSeriesArena()
	symbols := newSymbolTable()
	in := &Interpreter{
		id:        uuid.New(),
		series:    series,
		symbols:   symbols,
		contexts:  newContextArena(series, symbols),
		functions: newFunctionArena(),
		chunks:    newChunkStack(),
		gc:        newGC(),
		guard:     semaphore.NewWeighted(1),
		opt:       options,
	}

	in.frames = append(in.frames, nil) // handle 0 reserved, matching every other arena

	if options.Host != nil {
		in.host = *options.Host
	} else {
		in.host = defaultHostCallbacks()
	}
	if in.opt.Stdout == nil {
		in.opt.Stdout = os.Stdout
	}
	if in.opt.Stderr == nil {
		in.opt.Stderr = os.Stderr
	}
	if in.opt.Stdin == nil {
		in.opt.Stdin = os.Stdin
	}

	// Debug toggles read once at construction, in the teacher's
	// os.Getenv+strconv.ParseBool idiom (interp.go:366-384).
	if !in.opt.TraceRefinements {
		in.opt.TraceRefinements, _ = strconv.ParseBool(os.Getenv("REN_TRACE_REFINEMENTS"))
	}

	global, err := in.contexts.NewContext(KindObject, nil, true)
	if err != nil {
		panic(err) // construction-time allocation failure is not recoverable
	}
	in.globalObject = global

	task, err := in.contexts.NewContext(KindObject, nil, true)
	if err != nil {
		panic(err)
	}
	in.taskRoot = task

	return in
}

// ID returns this instance's identity, for log correlation across a
// host embedding more than one Interpreter (spec §6).
func (in *Interpreter) ID() uuid.UUID { return in.id }

// GlobalObject returns the handle of the process-wide lexical root
// context (spec §3.4's "global object").
func (in *Interpreter) GlobalObject() ContextHandle { return in.globalObject }

// Bind interns name and builds a WORD! cell bound against ctx. Helper
// used by tests and by function bodies to construct call expressions
// without a scanner.
func (in *Interpreter) Bind(name string, ctx ContextHandle) Cell {
	sym := in.symbols.Intern(name)
	var c Cell
	c.SetWord(sym, SpecificBinding(ctx))
	return c
}

// NewSourceArray allocates a managed, empty cell-array for a host
// embedder (or a console front-end lacking a scanner, see cmd/renint)
// to build up a Do-able source block one cell at a time.
func (in *Interpreter) NewSourceArray() SeriesHandle {
	return in.series.NewArray(1, true)
}

// AppendSourceCell appends v to a block built with NewSourceArray.
func (in *Interpreter) AppendSourceCell(h SeriesHandle, v Cell) error {
	return in.series.AppendCell(h, v)
}

// DefineNative interns name, builds a single-self paramlist from specs,
// registers a native Dispatcher under it, and binds name to the new
// function in ctx — the construction path tests and a host embedder
// use in place of a real source-level FUNCTION spec (spec §1's scanner
// boundary: natives are supplied by the host, not parsed from text).
func (in *Interpreter) DefineNative(ctx ContextHandle, name string, specs []ParamSpec, durable bool, dispatch Dispatcher) (FunctionHandle, error) {
	pl, err := in.MakeParamlist(specs)
	if err != nil {
		return 0, err
	}
	label := in.symbols.Intern(name)
	fn := in.functions.NewFunction(FunctionRecord{
		Paramlist: pl,
		Kind:      DispatchNative,
		Dispatch:  dispatch,
		Durable:   durable,
		Label:     label,
	})
	if err := in.bindParamlistSelf(fn); err != nil {
		return 0, err
	}
	var val Cell
	val.SetFunction(KindFunction, fn)
	if err := in.contexts.AppendKey(ctx, label, AllKinds().Set(KindFunction), 0, val); err != nil {
		return 0, err
	}
	return fn, nil
}

// DefineFunction is DefineNative's counterpart for a user-level
// function whose body is a real cell array (spec §3.5's "plain"
// collaborator): it always runs PlainDispatch over body.
func (in *Interpreter) DefineFunction(ctx ContextHandle, name string, specs []ParamSpec, body SeriesHandle, durable bool) (FunctionHandle, error) {
	pl, err := in.MakeParamlist(specs)
	if err != nil {
		return 0, err
	}
	label := in.symbols.Intern(name)
	fn := in.functions.NewFunction(FunctionRecord{
		Paramlist: pl,
		Body:      body,
		Kind:      DispatchPlain,
		Dispatch:  PlainDispatch,
		Durable:   durable,
		Label:     label,
	})
	if err := in.bindParamlistSelf(fn); err != nil {
		return 0, err
	}
	var val Cell
	val.SetFunction(KindFunction, fn)
	if err := in.contexts.AppendKey(ctx, label, AllKinds().Set(KindFunction), 0, val); err != nil {
		return 0, err
	}
	return fn, nil
}

// Apply calls fn with pre-built argument cells — the embedding-host
// entry point spec §6 exposes alongside Do. The cells are laid out as
// a feed array and fulfilled through FulfillAndCall, so each one is
// evaluated as a source expression when it is picked up as an argument.
func (in *Interpreter) Apply(fn FunctionHandle, args []Cell) (Cell, error) {
	if err := in.acquire(); err != nil {
		return Cell{}, err
	}
	defer in.release()

	feed := in.series.NewArray(uint32(len(args)), false)
	for _, a := range args {
		if err := in.series.AppendCell(feed, a); err != nil {
			return Cell{}, err
		}
	}
	top := in.newFrame(feed, 0, Unbound, nil)
	r := in.FulfillAndCall(top, fn, nil, nil, &top.out)
	in.releaseFrame(top)
	if r.IsFatal() {
		return Cell{}, r.Err
	}
	if r.IsThrown() {
		return Cell{}, ErrNoCatch{Label: top.out}
	}
	return top.out, nil
}

// Do evaluates every expression in the array source (spec §4.5's
// top-level "Do"), returning the last expression's value.
func (in *Interpreter) Do(source SeriesHandle) (Cell, error) {
	if err := in.acquire(); err != nil {
		return Cell{}, err
	}
	defer in.release()

	top := in.newFrame(source, 0, SpecificBinding(in.globalObject), nil)
	var out Cell
	r := in.DoToEnd(top, &out)
	in.releaseFrame(top)
	if r.IsFatal() {
		return Cell{}, r.Err
	}
	if r.IsThrown() {
		return Cell{}, ErrNoCatch{Label: out}
	}
	return out, nil
}

func (in *Interpreter) acquire() error {
	if !in.guard.TryAcquire(1) {
		return errors.New("interp: interpreter is already evaluating (not reentrant)")
	}
	atomic.AddUint64(&in.runID, 1)
	return nil
}

func (in *Interpreter) release() { in.guard.Release(1) }

// REPL runs an interactive read-eval-print loop against opt.Stdin,
// writing prompts and results to opt.Stdout, in the same shape as the
// teacher's own REPL method (interp.go:1060-1096) — but reading
// pre-built arrays line-by-line has no meaning without a scanner, so
// this REPL's "read" step is supplied by buildLine rather than a
// lexer; cmd/renint supplies a one-token stand-in, not a real scanner.
func (in *Interpreter) REPL(buildLine func(line string) (SeriesHandle, error)) error {
	scan := bufio.NewScanner(in.opt.Stdin)
	for {
		fmt.Fprint(in.opt.Stdout, in.prompt())
		if !scan.Scan() {
			return scan.Err()
		}
		line := scan.Text()
		if line == "" {
			continue
		}
		src, err := buildLine(line)
		if err != nil {
			fmt.Fprintln(in.opt.Stderr, err)
			continue
		}
		v, err := in.Do(src)
		if err != nil {
			fmt.Fprintln(in.opt.Stderr, err)
			continue
		}
		fmt.Fprintf(in.opt.Stdout, "== %s\n", v.Kind())
	}
}

func (in *Interpreter) prompt() string { return ">> " }
