package suppression

import (
	"github.com/JaimeStill/pulse/pkg/fault"
)

// Domain errors for suppression operations.
var (
	ErrNotFound  = fault.New(fault.NotFound, "suppression rule not found")
	ErrDuplicate = fault.New(fault.Duplicate, "suppression rule already exists")
)
