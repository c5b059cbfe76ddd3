package ir

import "errors"

var (
	ErrUnsupported = errors.New("unsupported value")
	ErrBadPath     = errors.New("bad path")
	ErrNotFound    = errors.New("path not found")
	ErrParse       = errors.New("parse error")
)
