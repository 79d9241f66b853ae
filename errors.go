package bakecache

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocation matches every *AllocationError via errors.Is.
	ErrAllocation = errors.New("bakecache: allocation failed")
	ErrClosed     = errors.New("bakecache: cache closed")
)

// AllocationError is returned by Get when the allocator fails.
// No entry is inserted for Key.
type AllocationError struct {
	Key Key
	Err error
}

func (e *AllocationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("allocate %#x: unknown error", uint64(e.Key))
	}
	return fmt.Sprintf("allocate %#x: %v", uint64(e.Key), e.Err)
}

func (e *AllocationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	errs = append(errs, ErrAllocation)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
