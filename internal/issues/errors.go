package issues

import (
	"github.com/JaimeStill/pulse/pkg/fault"
)

// Domain errors for issue operations.
var (
	ErrNotFound  = fault.New(fault.NotFound, "issue not found")
	ErrDuplicate = fault.New(fault.Duplicate, "issue already exists for aggregation key")
)
