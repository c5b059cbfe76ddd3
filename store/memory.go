package store

import (
	"context"
	"slices"
	"sync"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
)

type memJournal struct {
	snap    *ir.Node
	snapSeq int64
	hasSnap bool
	seq     int64
	entries []Entry
}

// Memory is a Store kept in process memory. It is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	journals map[string]*memJournal
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{journals: map[string]*memJournal{}}
}

func (m *Memory) journal(name string) *memJournal {
	j := m.journals[name]
	if j == nil {
		j = &memJournal{}
		m.journals[name] = j
	}
	return j
}

func (m *Memory) SaveSnapshot(_ context.Context, name string, seq int64, sn *ir.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.journal(name)
	j.snap, j.snapSeq, j.hasSnap = sn, seq, true
	j.seq = max(j.seq, seq)
	j.entries = slices.DeleteFunc(j.entries, func(e Entry) bool { return e.Seq <= seq })
	return nil
}

func (m *Memory) LoadSnapshot(_ context.Context, name string) (*ir.Node, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.journals[name]
	if j == nil || !j.hasSnap {
		return nil, 0, ErrNotFound
	}
	return j.snap, j.snapSeq, nil
}

func (m *Memory) Append(_ context.Context, name string, ps []patch.Patch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.journal(name)
	j.seq++
	j.entries = append(j.entries, Entry{Seq: j.seq, Patches: slices.Clone(ps)})
	return j.seq, nil
}

func (m *Memory) Entries(_ context.Context, name string, after int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.journals[name]
	if j == nil {
		return nil, nil
	}
	var res []Entry
	for _, e := range j.entries {
		if e.Seq > after {
			res = append(res, e)
		}
	}
	return res, nil
}

func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.journals, name)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
