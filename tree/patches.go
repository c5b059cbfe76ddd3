package tree

import (
	"slices"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
)

// PatchEvent holds the patches of one mutation together with the patches
// undoing it. Paths are relative to the node the listener is registered on.
type PatchEvent struct {
	// Target is the node that was mutated.
	Target  *Node
	Patches []patch.Patch
	// Inverse is in the order it must be applied.
	Inverse []patch.Patch
}

type patchListener struct {
	fn       func(PatchEvent)
	disposed bool
}

// OnPatches calls fn synchronously after every mutation of n or one of its
// descendants.
func (n *Node) OnPatches(fn func(PatchEvent)) (dispose func()) {
	l := &patchListener{fn: fn}
	n.listeners = append(n.listeners, l)
	return func() {
		if l.disposed {
			return
		}
		l.disposed = true
		n.listeners = slices.DeleteFunc(n.listeners, func(x *patchListener) bool { return x == l })
	}
}

func (a *Arena) emit(target *Node, ps []patch.Patch) {
	inv := patch.Invert(ps)
	var prefix ir.Path
	for x := target; x != nil; x = x.parent {
		hook := x.parent == nil && a.cfg.Hooks.OnPatch != nil
		if len(x.listeners) != 0 || hook {
			ev := PatchEvent{
				Target:  target,
				Patches: patch.WithPrefix(prefix, ps),
				Inverse: patch.WithPrefix(prefix, inv),
			}
			for _, l := range slices.Clone(x.listeners) {
				if !l.disposed {
					l.fn(ev)
				}
			}
			if hook {
				a.cfg.Hooks.OnPatch(x, ev)
			}
		}
		if x.parent != nil {
			prefix = append(ir.Path{x.key}, prefix...)
		}
	}
}

// PatchRecorder collects the patch events of a subtree.
type PatchRecorder struct {
	events  []PatchEvent
	dispose func()
}

func NewPatchRecorder(n *Node) *PatchRecorder {
	r := &PatchRecorder{}
	r.dispose = n.OnPatches(func(ev PatchEvent) {
		r.events = append(r.events, ev)
	})
	return r
}

func (r *PatchRecorder) Events() []PatchEvent {
	return slices.Clone(r.events)
}

// Patches returns all recorded patches in the order they happened.
func (r *PatchRecorder) Patches() []patch.Patch {
	var res []patch.Patch
	for _, ev := range r.events {
		res = append(res, ev.Patches...)
	}
	return res
}

// InversePatches returns the patches undoing everything recorded, in the
// order they must be applied.
func (r *PatchRecorder) InversePatches() []patch.Patch {
	var res []patch.Patch
	for i := len(r.events) - 1; i >= 0; i-- {
		res = append(res, r.events[i].Inverse...)
	}
	return res
}

// Stop stops recording. Recorded events are kept.
func (r *PatchRecorder) Stop() {
	r.dispose()
}

func (r *PatchRecorder) Reset() {
	r.events = nil
}
