package tree

import "errors"

var (
	ErrKind             = errors.New("wrong node kind")
	ErrIndex            = errors.New("index out of range")
	ErrCycle            = errors.New("node would become its own descendant")
	ErrUnsupportedValue = errors.New("unsupported value")
	ErrUnknownProp      = errors.New("unknown model property")
	ErrImmutableID      = errors.New("model id is immutable")
	ErrUnknownModel     = errors.New("unknown model type")
	ErrDuplicateModel   = errors.New("duplicate model type")
	ErrForeignArena     = errors.New("node belongs to another arena")
	ErrBadSnapshot      = errors.New("bad snapshot")
)
