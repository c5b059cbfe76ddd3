package reactive

type trackFrame struct {
	atoms []*Atom
	seen  map[*Atom]struct{}
}

// Runtime tracks reads of atoms and schedules reactions.
type Runtime struct {
	tracking   []*trackFrame
	pending    []*Reaction
	pendingSet map[*Reaction]struct{}
	batch      int
	flushing   bool
}

func NewRuntime() *Runtime {
	return &Runtime{pendingSet: map[*Reaction]struct{}{}}
}

// Atom is the observable identity of one container.
type Atom struct {
	rt        *Runtime
	name      string
	observers map[*Reaction]struct{}
}

func (rt *Runtime) NewAtom(name string) *Atom {
	return &Atom{rt: rt, name: name}
}

func (a *Atom) Name() string { return a.name }

// ReportObserved records a read of a in the innermost Track call, if any.
func (a *Atom) ReportObserved() {
	rt := a.rt
	if len(rt.tracking) == 0 {
		return
	}
	f := rt.tracking[len(rt.tracking)-1]
	if _, ok := f.seen[a]; ok {
		return
	}
	f.seen[a] = struct{}{}
	f.atoms = append(f.atoms, a)
}

// ReportChanged schedules every reaction observing a. Reactions run when the
// outermost batch ends, or immediately when no batch is open.
func (a *Atom) ReportChanged() {
	rt := a.rt
	for r := range a.observers {
		rt.schedule(r)
	}
	if rt.batch == 0 {
		rt.flush()
	}
}

func (a *Atom) Observed() bool {
	return len(a.observers) != 0
}

// Track runs fn and returns the atoms it read.
func (rt *Runtime) Track(fn func()) []*Atom {
	f := &trackFrame{seen: map[*Atom]struct{}{}}
	rt.tracking = append(rt.tracking, f)
	defer func() {
		rt.tracking = rt.tracking[:len(rt.tracking)-1]
	}()
	fn()
	return f.atoms
}

// Untracked runs fn without recording reads.
func (rt *Runtime) Untracked(fn func()) {
	saved := rt.tracking
	rt.tracking = nil
	defer func() { rt.tracking = saved }()
	fn()
}

func (rt *Runtime) StartBatch() {
	rt.batch++
}

func (rt *Runtime) EndBatch() {
	if rt.batch == 0 {
		panic("reactive: EndBatch without StartBatch")
	}
	rt.batch--
	if rt.batch == 0 {
		rt.flush()
	}
}

func (rt *Runtime) Batch(fn func()) {
	rt.StartBatch()
	defer rt.EndBatch()
	fn()
}

func (rt *Runtime) InBatch() bool {
	return rt.batch != 0
}

func (rt *Runtime) schedule(r *Reaction) {
	if r.disposed {
		return
	}
	if _, ok := rt.pendingSet[r]; ok {
		return
	}
	rt.pendingSet[r] = struct{}{}
	rt.pending = append(rt.pending, r)
}

func (rt *Runtime) flush() {
	if rt.flushing {
		return
	}
	rt.flushing = true
	defer func() { rt.flushing = false }()
	for len(rt.pending) != 0 {
		r := rt.pending[0]
		rt.pending = rt.pending[1:]
		delete(rt.pendingSet, r)
		r.run()
	}
}
