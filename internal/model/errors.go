package model

import "errors"

// Error kinds shared by every computation. Wrap them with fmt.Errorf("%w")
// and test with errors.Is.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrOptimizationFailure = errors.New("optimization failure")
)
