package interp

import "github.com/pkg/errors"

// Outcome is the tag of the evaluator result sum type. DESIGN NOTES §9
// directs re-expressing "the evaluator returning a bit on a value" as
// "the evaluator returning a sum type {Ok, Thrown(Cell), Fatal(Error)}";
// EvalResult is that sum type.
type Outcome uint8

const (
	OutcomeValue Outcome = iota
	OutcomeThrown
	OutcomeFatal
)

// EvalResult is returned by every dispatcher and by DoToEnd itself
// (spec §4.6, §7 "Propagation policy"). A dispatcher returns either a
// normal value (written into its frame's Out cell), a thrown label
// (written into Out with the thrown bit set, per spec §4.6), or a
// fatal error.
type EvalResult struct {
	Outcome Outcome
	Err     error
}

// Ok reports a normal, non-thrown result.
func Ok() EvalResult { return EvalResult{Outcome: OutcomeValue} }

// ThrownResult reports that the frame's Out cell now holds a thrown
// label (its Thrown() bit is set).
func ThrownResult() EvalResult { return EvalResult{Outcome: OutcomeThrown} }

// FatalResult wraps a fatal Go error as the result of fail() (spec
// §4.6 "fail() never returns" — never returns *to the evaluation*, but
// in this Go rendition it returns up the Go call stack as a value,
// per DESIGN NOTES §9 "checked Result propagation").
func FatalResult(err error) EvalResult { return EvalResult{Outcome: OutcomeFatal, Err: err} }

func (r EvalResult) IsOk() bool    { return r.Outcome == OutcomeValue }
func (r EvalResult) IsThrown() bool { return r.Outcome == OutcomeThrown }
func (r EvalResult) IsFatal() bool  { return r.Outcome == OutcomeFatal }

// Error taxonomy constructors (spec §7). Each wraps pkg/errors so the
// capture site's stack is attached, the same role the teacher's own
// debug.Stack() capture plays in its Panic type (interp.go:816-834).

func errScript(format string, args ...interface{}) error {
	return errors.Errorf("script error: "+format, args...)
}

func errMath(format string, args ...interface{}) error {
	return errors.Errorf("math error: "+format, args...)
}

func errAccess(format string, args ...interface{}) error {
	return errors.Errorf("access error: "+format, args...)
}

// ErrWrongType reports a parameter/operation receiving a value outside
// its accepted typeset (spec §4.4 step 4).
func ErrWrongType(got Kind, context string) error {
	return errScript("%s: wrong type (%s)", context, got)
}

// ErrUnboundWord reports a word with no binding being evaluated.
func ErrUnboundWord(name string) error {
	return errScript("%s has no value (unbound word)", name)
}

// ErrDivideByZero reports an arithmetic division by zero (spec §7
// "Math errors").
func ErrDivideByZero() error { return errMath("attempt to divide by zero") }

// ErrProtected reports a write to a protected series or locked key
// (spec §8 boundary scenario 9, spec §4.3).
func ErrProtected(what string) error {
	return errAccess("%s is protected", what)
}

// ErrInaccessibleFrame reports a dereference of a frame context whose
// call has already ended (spec §3.4 "A frame context ...").
func ErrInaccessibleFrame() error {
	return errAccess("frame context is inaccessible (its call has ended)")
}

// ErrNoCatch is the message printed for an unhandled throw reaching
// the outermost frame (spec §7 "no catch for throw").
type ErrNoCatch struct {
	Label Cell
}

func (e ErrNoCatch) Error() string { return "no catch for throw" }

// reservedThrowLabel names the built-in throw labels. BREAK, CONTINUE
// and HALT throw a WORD! cell carrying one of these ids. RETURN and
// LEAVE instead throw the returned value itself, with the target
// FunctionHandle stored in that cell's binding (see MakeFunctionThrow;
// spec §4.6 "carry the target function's paramlist as their
// identity"). THROW/CATCH labels are user values.
type reservedThrowLabel SymbolID

const (
	labelBreak reservedThrowLabel = iota + 1
	labelContinue
	labelHalt
	labelReturn
	labelLeave
)

// MakeThrow writes label into out, sets the thrown bit, and returns a
// ThrownResult (spec §4.6 "A throw is initiated by writing a value
// into the frame's out and setting that cell's thrown bit").
func MakeThrow(out *Cell, label Cell) EvalResult {
	*out = label
	out.SetThrown(true)
	return ThrownResult()
}

// MakeFunctionThrow builds a RETURN/LEAVE throw whose identity is the
// target function's paramlist (spec §4.6).
// Note: the identity stashed in out.bind.ctx here is a FunctionHandle
// reinterpreted as a ContextHandle purely so Binding's existing fields
// can carry it; it is never passed to ContextArena.get, only compared
// for equality in MatchesFunctionThrow.
func MakeFunctionThrow(out *Cell, target FunctionHandle, value Cell) EvalResult {
	var label Cell
	label.SetFunction(KindFunction, target)
	label.SetThrown(true)
	*out = value
	// Stash the identity in out's own binding rather than overwriting
	// value's payload, since the carried value and the catch identity
	// are logically separate (spec: "a value into out ... that value
	// is currently acting as the label"). Here out itself is both the
	// value and, via bind, the identity.
	out.bind = SpecificBinding(ContextHandle(target))
	out.head |= headerThrown
	return ThrownResult()
}

// MatchesFunctionThrow reports whether a thrown cell targets fn
// (used by the function-call boundary to catch its own RETURN/LEAVE).
func MatchesFunctionThrow(thrownOut *Cell, fn FunctionHandle) bool {
	return thrownOut.Thrown() && ContextHandle(fn) == thrownOut.bind.ctx
}
