package collision

import "errors"

var (
	ErrInvalidShape        = errors.New("polygon must have at least 3 vertices")
	ErrInvalidUnitSize     = errors.New("grid unit size must be a positive finite number")
	ErrResolutionExhausted = errors.New("maximum iterations reached while resolving collisions")
	ErrStackingExhausted   = errors.New("maximum depth reached while stacking line intervals")
	ErrInvalidLine         = errors.New("line index must not be negative")
)
