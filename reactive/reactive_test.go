package reactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrack(t *testing.T) {
	rt := NewRuntime()
	a, b := rt.NewAtom("a"), rt.NewAtom("b")
	got := rt.Track(func() {
		a.ReportObserved()
		b.ReportObserved()
		a.ReportObserved()
		rt.Untracked(func() { rt.NewAtom("c").ReportObserved() })
	})
	require.Equal(t, []*Atom{a, b}, got)
	require.Empty(t, rt.Track(func() {}))
}

func TestAutorunBatches(t *testing.T) {
	rt := NewRuntime()
	a := rt.NewAtom("a")
	r := rt.Autorun(func() { a.ReportObserved() })
	require.Equal(t, 1, r.Runs())
	require.True(t, a.Observed())

	a.ReportChanged()
	require.Equal(t, 2, r.Runs())

	rt.Batch(func() {
		a.ReportChanged()
		a.ReportChanged()
		require.Equal(t, 2, r.Runs())
	})
	require.Equal(t, 3, r.Runs())

	r.Dispose()
	a.ReportChanged()
	require.Equal(t, 3, r.Runs())
	require.False(t, a.Observed())
}

func TestAutorunResubscribes(t *testing.T) {
	rt := NewRuntime()
	a, b := rt.NewAtom("a"), rt.NewAtom("b")
	useA := true
	r := rt.Autorun(func() {
		if useA {
			a.ReportObserved()
		} else {
			b.ReportObserved()
		}
	})
	useA = false
	a.ReportChanged()
	require.Equal(t, 2, r.Runs())
	a.ReportChanged()
	require.Equal(t, 2, r.Runs())
	b.ReportChanged()
	require.Equal(t, 3, r.Runs())
}

func TestEndBatchPanics(t *testing.T) {
	require.Panics(t, func() { NewRuntime().EndBatch() })
}

func TestInterceptors(t *testing.T) {
	var is Interceptors[int]
	var order []string
	is.Add(func(c int) (int, error) {
		order = append(order, "first")
		return c + 1, nil
	})
	dispose := is.Add(func(c int) (int, error) {
		order = append(order, "second")
		return c * 10, nil
	})
	got, err := is.Run(1)
	require.NoError(t, err)
	require.Equal(t, 11, got)
	require.Equal(t, []string{"second", "first"}, order)

	dispose()
	require.Equal(t, 1, is.Len())
	veto := errors.New("veto")
	is.Add(func(c int) (int, error) { return c, veto })
	_, err = is.Run(1)
	require.ErrorIs(t, err, veto)
}
