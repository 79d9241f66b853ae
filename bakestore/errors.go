package bakestore

import (
	"fmt"

	"github.com/unkn0wn-root/bakecache"
)

// InvalidateError reports that neither the generation bump nor the delete
// succeeded, so a stale bake may still be served.
type InvalidateError struct {
	Key     bakecache.Key
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	return fmt.Sprintf("invalidate bake %#x: gen bump and delete failed: bump=%v; delete=%v",
		uint64(e.Key), e.BumpErr, e.DelErr)
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
