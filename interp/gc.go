package interp

// GC holds the mark-and-sweep collector's own state: the guard stack
// of spec §4.7 ("PUSH_GUARD keeps a series alive across a region of
// code that holds no other traceable reference to it").
type GC struct {
	guards []SeriesHandle
}

func newGC() *GC { return &GC{} }

// PushGuard protects h from collection until the matching PopGuard,
// independent of whether anything else currently references it (spec
// §8.10's cyclic-block-survives-under-guard boundary scenario).
func (in *Interpreter) PushGuard(h SeriesHandle) {
	in.gc.guards = append(in.gc.guards, h)
}

// PopGuard releases the most recently pushed guard.
func (in *Interpreter) PopGuard() {
	if n := len(in.gc.guards); n > 0 {
		in.gc.guards = in.gc.guards[:n-1]
	}
}

// CollectGarbage runs one mark-and-sweep pass over the series arena
// (spec §4.7). The root set is: the task root and global object
// contexts, the live data stack, every live frame's feed/out/scratch/
// argument storage and its ancestor chain, the chunk stack, and the
// guard stack. It returns the number of series reclaimed.
func (in *Interpreter) CollectGarbage() int {
	reachable := make(map[SeriesHandle]bool)

	var markSeries func(SeriesHandle)
	var markCell func(*Cell)
	var markContext func(ContextHandle)
	var markFunction func(FunctionHandle)

	markSeries = func(h SeriesHandle) {
		if h == 0 || reachable[h] {
			return
		}
		reachable[h] = true
		s, err := in.series.get(h)
		if err != nil {
			return
		}
		if s.isArray() {
			for i := range s.cells[:s.len] {
				markCell(&s.cells[i])
			}
		}
	}

	markCell = func(c *Cell) {
		k := c.Kind()
		switch {
		case k.IsSeriesBacked():
			if s, _, err := c.Series(); err == nil {
				markSeries(s)
			}
		case k.IsAnyContext():
			if ctx, err := c.Context(); err == nil {
				markContext(ctx)
			}
		case k.IsAnyFunction():
			if fn, err := c.Function(); err == nil {
				markFunction(fn)
			}
		case k == KindDatatype:
			if _, spec, err := c.Datatype(); err == nil {
				markSeries(spec)
			}
		}
	}

	markContext = func(h ContextHandle) {
		if h == 0 {
			return
		}
		rec, err := in.contexts.get(h)
		if err != nil {
			return
		}
		markSeries(rec.varlist)
		markSeries(rec.keylist)
	}

	markFunction = func(h FunctionHandle) {
		if h == 0 {
			return
		}
		rec, err := in.functions.get(h)
		if err != nil {
			return
		}
		markSeries(rec.Paramlist)
		markSeries(rec.Body)
		for i := range rec.Exemplar {
			markCell(&rec.Exemplar[i])
		}
	}

	markContext(in.globalObject)
	markContext(in.taskRoot)
	for i := range in.dataStack {
		markCell(&in.dataStack[i])
	}
	for _, fr := range in.frames {
		if fr == nil {
			continue
		}
		markSeries(fr.sourceArray)
		markCell(&fr.value)
		markCell(&fr.out)
		markCell(&fr.scratch)
		markContext(fr.argsCtx)
		for i := range fr.chunkArgs {
			markCell(&fr.chunkArgs[i])
		}
		if fr.variadic != nil {
			markSeries(fr.variadic.reified)
		}
	}
	for id := in.chunks.top; id >= 0; id = in.chunks.chunks[id].prev {
		cells := in.chunks.chunks[id].cells
		for i := range cells {
			markCell(&cells[i])
		}
	}
	for _, h := range in.gc.guards {
		markSeries(h)
	}

	freed := 0
	in.series.each(func(h SeriesHandle, s *seriesHeader) {
		if s.flags&FlagManaged == 0 {
			return // unmanaged series are the caller's own responsibility (Free)
		}
		if s.flags&FlagInaccessible != 0 {
			return // already retired by EndFrame; leave its handle alone
		}
		if !reachable[h] {
			in.series.nodes[h] = nil
			in.series.free = append(in.series.free, h)
			freed++
		}
	})
	return freed
}

// IsReachable reports whether h is marked by markOnly's root walk, run
// now without sweeping so tests can probe reachability without mutating
// arena state. markOnly follows fewer references than CollectGarbage
// (see below), so a series that CollectGarbage keeps only through a
// context, function or frame out/scratch cell reports false here.
func (in *Interpreter) IsReachable(h SeriesHandle) bool {
	if h == 0 {
		return false
	}
	if _, err := in.series.get(h); err != nil {
		return false
	}
	marked := in.markOnly()
	return marked[h]
}

// markOnly runs a reduced mark phase without sweeping. It starts from
// the global object, task root, data stack, chunk stack and guard stack,
// and from each frame's source array, current value and chunk
// arguments; inside cells it follows series-backed values only, not
// context or function cells.
func (in *Interpreter) markOnly() map[SeriesHandle]bool {
	reachable := make(map[SeriesHandle]bool)
	var markSeries func(SeriesHandle)
	var markCell func(*Cell)
	markSeries = func(h SeriesHandle) {
		if h == 0 || reachable[h] {
			return
		}
		reachable[h] = true
		s, err := in.series.get(h)
		if err != nil {
			return
		}
		if s.isArray() {
			for i := range s.cells[:s.len] {
				markCell(&s.cells[i])
			}
		}
	}
	markCell = func(c *Cell) {
		if c.Kind().IsSeriesBacked() {
			if s, _, err := c.Series(); err == nil {
				markSeries(s)
			}
		}
	}
	markContext := func(h ContextHandle) {
		if h == 0 {
			return
		}
		if rec, err := in.contexts.get(h); err == nil {
			markSeries(rec.varlist)
			markSeries(rec.keylist)
		}
	}
	markContext(in.globalObject)
	markContext(in.taskRoot)
	for i := range in.dataStack {
		markCell(&in.dataStack[i])
	}
	for _, fr := range in.frames {
		if fr == nil {
			continue
		}
		markSeries(fr.sourceArray)
		markCell(&fr.value)
		for i := range fr.chunkArgs {
			markCell(&fr.chunkArgs[i])
		}
	}
	for id := in.chunks.top; id >= 0; id = in.chunks.chunks[id].prev {
		cells := in.chunks.chunks[id].cells
		for i := range cells {
			markCell(&cells[i])
		}
	}
	for _, h := range in.gc.guards {
		markSeries(h)
	}
	return reachable
}
