package reactive

// Interceptor inspects a pending change. It may return a rewritten change,
// or an error to veto it.
type Interceptor[C any] func(c C) (C, error)

type interceptorEntry[C any] struct {
	fn Interceptor[C]
}

// Interceptors is an ordered list of interceptors for one container. The
// most recently added interceptor runs first.
type Interceptors[C any] struct {
	entries []*interceptorEntry[C]
}

func (is *Interceptors[C]) Add(fn Interceptor[C]) (dispose func()) {
	e := &interceptorEntry[C]{fn: fn}
	is.entries = append(is.entries, e)
	return func() {
		for i, x := range is.entries {
			if x == e {
				is.entries = append(is.entries[:i:i], is.entries[i+1:]...)
				return
			}
		}
	}
}

func (is *Interceptors[C]) Len() int {
	return len(is.entries)
}

// Run passes c through every interceptor, stopping at the first error.
func (is *Interceptors[C]) Run(c C) (C, error) {
	for i := len(is.entries) - 1; i >= 0; i-- {
		var err error
		c, err = is.entries[i].fn(c)
		if err != nil {
			return c, err
		}
	}
	return c, nil
}
