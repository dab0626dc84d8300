package interp

import (
	"io"
	"math/rand"
	"time"
)

// HostCallbacks is the function-pointer table spec §6 asks the
// embedding host to supply: wall-clock time, randomness, filesystem
// access, standard I/O, and a halt-check. Grounded on the teacher's
// own host-boundary shape (interp.go's Options.Stdin/Stdout/Stderr,
// interp.go:60-75) generalized from three io streams to the full set
// spec §6 names.
type HostCallbacks struct {
	Now    func() time.Time
	Random func() uint64

	ReadFile  func(path string) ([]byte, error)
	WriteFile func(path string, data []byte) error

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// HaltCheck is polled at evaluator loop backedges (spec §1's
	// cooperative halt-flag polling, DoToEnd in eval.go); returning
	// true aborts the running evaluation with a halt throw.
	HaltCheck func() bool
}

func defaultRandom() uint64 { return rand.Uint64() }

// defaultHostCallbacks returns the HostCallbacks used when Options.Host
// is left nil: only Now and Random are set; ReadFile, WriteFile, the
// streams and HaltCheck are nil.
func defaultHostCallbacks() HostCallbacks {
	return HostCallbacks{
		Now:    time.Now,
		Random: defaultRandom,
	}
}

// HaltRequested polls the configured HaltCheck (spec §1 "single-
// threaded cooperative concurrency... polling a halt flag at loop
// backedges").
func (in *Interpreter) HaltRequested() bool {
	if in.host.HaltCheck == nil {
		return false
	}
	return in.host.HaltCheck()
}
