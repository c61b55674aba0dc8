package mem

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	ErrUnknownFunction = errors.NewKind("unknown table function %q")
	ErrLateralArgs     = errors.NewKind("lateral call to %q needs at least one column argument")
	ErrEval            = errors.NewKind("cannot evaluate %s")
	ErrBadOption       = errors.NewKind("bad copy option %s=%q")
	ErrRowShape        = errors.NewKind("table function %q returned rows of varying shape")
)
