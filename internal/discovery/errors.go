package discovery

import (
	"errors"
	"fmt"
)

// ErrWalkFailed indicates filesystem traversal below the root failed.
var ErrWalkFailed = errors.New("directory walk failed")

// NotFoundError reports a discovery root that does not exist or is not a directory.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery root not found: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("discovery root is not a directory: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }
