package tree

import "github.com/google/uuid"

const (
	DefaultTypeKey = "$modelType"
	DefaultIDProp  = "$modelId"
)

// Config holds arena wide settings.
type Config struct {
	// TypeKey is the snapshot key naming a model's type.
	TypeKey string
	// IDGenerator produces ids for models created without one.
	IDGenerator func() string
	// CheckAssignments validates model property assignments against the
	// property's Type.
	CheckAssignments bool
	Registry         *Registry
	Hooks            Hooks
}

type Option func(*Config)

func WithTypeKey(k string) Option {
	return func(c *Config) { c.TypeKey = k }
}

func WithIDGenerator(f func() string) Option {
	return func(c *Config) { c.IDGenerator = f }
}

func WithCheckAssignments(v bool) Option {
	return func(c *Config) { c.CheckAssignments = v }
}

func WithRegistry(r *Registry) Option {
	return func(c *Config) { c.Registry = r }
}

// WithHooks adds h to the arena hooks. Hooks added by several options are
// all called, in the order the options were given.
func WithHooks(h Hooks) Option {
	return func(c *Config) { c.Hooks = c.Hooks.chain(h) }
}

func newConfig(opts []Option) Config {
	c := Config{
		TypeKey:     DefaultTypeKey,
		IDGenerator: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Registry == nil {
		c.Registry = NewRegistry()
	}
	return c
}

// Hooks observe arena activity. Any field may be nil.
type Hooks struct {
	// OnSnapshot is called for every container snapshot request.
	OnSnapshot func(n *Node, cached bool)
	// OnInvalidate is called for each node whose cached state is dropped
	// by a mutation.
	OnInvalidate func(n *Node)
	// OnPatch is called with every mutation's patches, rooted at root.
	OnPatch func(root *Node, ev PatchEvent)
	// OnRelease is called when a node left detached at the end of a turn
	// has its memo table dropped.
	OnRelease func(n *Node)
}

func (h Hooks) chain(o Hooks) Hooks {
	if h.OnSnapshot == nil {
		h.OnSnapshot = o.OnSnapshot
	} else if o.OnSnapshot != nil {
		f, g := h.OnSnapshot, o.OnSnapshot
		h.OnSnapshot = func(n *Node, cached bool) { f(n, cached); g(n, cached) }
	}
	if h.OnInvalidate == nil {
		h.OnInvalidate = o.OnInvalidate
	} else if o.OnInvalidate != nil {
		f, g := h.OnInvalidate, o.OnInvalidate
		h.OnInvalidate = func(n *Node) { f(n); g(n) }
	}
	if h.OnPatch == nil {
		h.OnPatch = o.OnPatch
	} else if o.OnPatch != nil {
		f, g := h.OnPatch, o.OnPatch
		h.OnPatch = func(root *Node, ev PatchEvent) { f(root, ev); g(root, ev) }
	}
	if h.OnRelease == nil {
		h.OnRelease = o.OnRelease
	} else if o.OnRelease != nil {
		f, g := h.OnRelease, o.OnRelease
		h.OnRelease = func(n *Node) { f(n); g(n) }
	}
	return h
}
