package inbox

import (
	"github.com/JaimeStill/pulse/pkg/fault"
)

// Domain errors for inbox operations.
var (
	ErrNotFound  = fault.New(fault.NotFound, "inbox item not found")
	ErrDuplicate = fault.New(fault.Duplicate, "an active inbox item already exists for this entity")
	ErrTerminal  = fault.New(fault.InvalidState, "inbox item is in a terminal state")
)
