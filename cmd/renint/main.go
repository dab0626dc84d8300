// Command renint is a minimal interactive console over interp.Interpreter.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ren-core/interp/interp"
)

func main() {
	trace := flag.Bool("trace-refinements", false, "log refinement pickup decisions to stderr")
	flag.Parse()

	in := interp.New(interp.Options{
		Stdin:            os.Stdin,
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		TraceRefinements: *trace,
	})

	fmt.Fprintf(os.Stdout, "renint (instance %s)\n", in.ID())
	if err := in.REPL(buildLine(in)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildLine is the stand-in for a real scanner (spec §1's Non-goal):
// it accepts exactly one token per line, either an integer literal or
// a bare word naming something already bound in the global object.
// Anything richer belongs to the scanner this build does not implement.
func buildLine(in *interp.Interpreter) func(string) (interp.SeriesHandle, error) {
	return func(line string) (interp.SeriesHandle, error) {
		token := strings.TrimSpace(line)
		arr := in.NewSourceArray()

		var cell interp.Cell
		if n, err := strconv.ParseInt(token, 10, 64); err == nil {
			cell.SetInteger(n)
		} else {
			cell = in.Bind(token, in.GlobalObject())
		}
		if err := in.AppendSourceCell(arr, cell); err != nil {
			return 0, err
		}
		return arr, nil
	}
}
