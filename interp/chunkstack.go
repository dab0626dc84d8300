package interp

import "github.com/pkg/errors"

// chunk is one contiguous region of the chunk stack (spec §3.7). Per
// DESIGN NOTES §9, this build uses an explicit previous-chunk header
// rather than the original's implicit-end-marker trick: "safer; the
// overhead is a single word per call".
type chunk struct {
	cells []Cell
	prev  int // index of the previous chunk's record in ChunkStack.chunks, -1 if none
}

// ChunkStack is the stack-discipline allocator of spec §3.7 for
// transient argument blocks of non-durable function calls.
type ChunkStack struct {
	chunks []chunk
	top    int // index of the current chunk, -1 if empty
}

func newChunkStack() *ChunkStack {
	return &ChunkStack{top: -1}
}

// Push allocates a new chunk of n cells, each initialized as an end
// marker so the GC can see in-progress argument fulfillment (spec
// §4.4 step 1).
func (cs *ChunkStack) Push(n int) int {
	cells := make([]Cell, n)
	for i := range cells {
		cells[i].MakeEnd()
	}
	cs.chunks = append(cs.chunks, chunk{cells: cells, prev: cs.top})
	cs.top = len(cs.chunks) - 1
	return cs.top
}

// Pop releases the chunk at index id, which must be the current top
// (spec §3.7 "leaving the call pops it").
func (cs *ChunkStack) Pop(id int) error {
	if id != cs.top {
		return errors.New("interp: chunk stack popped out of order")
	}
	cs.top = cs.chunks[id].prev
	return nil
}

// Cells returns the live cell slice of chunk id for direct argument
// fulfillment.
func (cs *ChunkStack) Cells(id int) []Cell {
	return cs.chunks[id].cells
}

// UnwindTo resets the chunk stack's top to a level previously returned
// by Level, dropping every chunk pushed since (spec §4.6 "chunk stacks
// are unwound to the level at trap-push time").
func (cs *ChunkStack) UnwindTo(level int) {
	cs.top = level
}

// Level returns the current chunk stack depth, to be passed later to
// UnwindTo.
func (cs *ChunkStack) Level() int { return cs.top }
