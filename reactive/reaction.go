package reactive

// Reaction re-runs a function whenever an atom it read during its last run
// changes.
type Reaction struct {
	rt       *Runtime
	fn       func()
	deps     []*Atom
	runs     int
	disposed bool
}

// Autorun runs fn now and again after every batch in which something it read
// changed.
func (rt *Runtime) Autorun(fn func()) *Reaction {
	r := &Reaction{rt: rt, fn: fn}
	r.run()
	return r
}

func (r *Reaction) run() {
	if r.disposed {
		return
	}
	r.unsubscribe()
	r.runs++
	r.deps = r.rt.Track(r.fn)
	for _, a := range r.deps {
		if a.observers == nil {
			a.observers = map[*Reaction]struct{}{}
		}
		a.observers[r] = struct{}{}
	}
}

func (r *Reaction) unsubscribe() {
	for _, a := range r.deps {
		delete(a.observers, r)
	}
	r.deps = nil
}

// Runs returns how many times the reaction function has run.
func (r *Reaction) Runs() int {
	return r.runs
}

func (r *Reaction) Dispose() {
	r.disposed = true
	r.unsubscribe()
}
