package pointseg

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition marks a violated input contract (wrong shape, empty
	// cloud, non-positive voxel size). It aborts the current sample.
	ErrPrecondition = errors.New("precondition violated")

	// ErrLengthMismatch marks per-point arrays that no longer line up, which
	// means a sidecar file does not belong to its point cloud.
	ErrLengthMismatch = errors.New("array length mismatch")

	// ErrUnknownScene is returned for an index outside the dataset.
	ErrUnknownScene = errors.New("unknown scene")
)

// ShapeError describes which array broke a length contract.
type ShapeError struct {
	What string
	Want int
	Got  int
	err  error
}

// NewShapeError builds a ShapeError that unwraps to sentinel.
func NewShapeError(sentinel error, what string, want, got int) *ShapeError {
	return &ShapeError{What: what, Want: want, Got: got, err: sentinel}
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s has length %d, want %d", e.err, e.What, e.Got, e.Want)
}

func (e *ShapeError) Unwrap() error { return e.err }

// CheckLen returns a ShapeError wrapping ErrLengthMismatch when got != want.
func CheckLen(what string, want, got int) error {
	if want != got {
		return NewShapeError(ErrLengthMismatch, what, want, got)
	}
	return nil
}
