package postprocess

import (
	"errors"
	"fmt"
)

var (
	// ErrUnmappedLabel is matched by errors.Is for every *UnmappedLabelError.
	ErrUnmappedLabel = errors.New("segmentation label not attributable to any object")

	// ErrShape is returned when the inputs of a pass disagree in length or kind.
	ErrShape = errors.New("mismatched postprocess inputs")

	// ErrClosed is returned by every pass after Close.
	ErrClosed = errors.New("processor is closed")
)

// UnmappedLabelError reports a raw label that belongs to no known object. It means an upstream
// attach or sync step is inconsistent with the rendered output.
type UnmappedLabelError struct {
	Frame int
	Label uint32
}

func (e *UnmappedLabelError) Error() string {
	return fmt.Sprintf("frame %d raw label %d: %v", e.Frame, e.Label, ErrUnmappedLabel)
}

func (e *UnmappedLabelError) Is(target error) bool {
	return target == ErrUnmappedLabel
}
