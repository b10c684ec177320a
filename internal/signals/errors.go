package signals

import (
	"github.com/JaimeStill/pulse/pkg/fault"
)

// Domain errors for signal operations.
var (
	ErrNotFound     = fault.New(fault.NotFound, "signal not found")
	ErrDuplicate    = fault.New(fault.Duplicate, "signal already exists")
	ErrUnknownScope = fault.New(fault.InvalidParam, "scope references unknown entity")
)
