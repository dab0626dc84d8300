package interp

import "fmt"

// BacktraceLine is one entry of a rendered call-chain trace (spec §7
// "source-line attribution" for a fatal error or an unhandled throw).
type BacktraceLine struct {
	Label string // the function name this frame is dispatching, "" for a top-level Do
	Depth int
}

// Backtrace walks a frame's ancestor chain and renders it, the same
// role the teacher's FilterStackAndCallers plays for a Go panic
// (interp.go:700-834) adapted to walk this module's own *Frame chain
// instead of runtime.Callers — there is no Go call stack to filter
// here, since DoToEnd's recursion is in FulfillAndCall/DoToEnd, not a
// deep native Go stack per Rebol call.
func Backtrace(fr *Frame) []BacktraceLine {
	var lines []BacktraceLine
	depth := 0
	for f := fr; f != nil; f = f.anc {
		label := ""
		if f.label != 0 && f.interp != nil {
			label = f.interp.symbols.Text(f.label)
		}
		lines = append(lines, BacktraceLine{Label: label, Depth: depth})
		depth++
	}
	return lines
}

// FormatBacktrace renders a backtrace the way a REPL error report would
// (spec §7), one frame per line, innermost first.
func FormatBacktrace(lines []BacktraceLine) string {
	s := ""
	for _, l := range lines {
		name := l.Label
		if name == "" {
			name = "(top level)"
		}
		s += fmt.Sprintf("  at %s\n", name)
	}
	return s
}
