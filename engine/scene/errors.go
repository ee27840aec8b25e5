package scene

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-synth/engine/session"
)

var (
	// ErrDuplicateID is matched by errors.Is for every *DuplicateIDError.
	ErrDuplicateID = errors.New("duplicate entity id")

	// ErrUnknownEntity is matched by errors.Is for every *UnknownEntityError.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrSessionActive is returned by every mutator while a render session holds the scene.
	ErrSessionActive = session.ErrActive
)

// DuplicateIDError reports an Add whose id is already present in the scene.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("entity %q: %v", e.ID, ErrDuplicateID)
}

func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateID
}

// UnknownEntityError reports a lookup of an id the scene does not contain, or an entity of the wrong kind.
type UnknownEntityError struct {
	ID     string
	Reason string
}

func (e *UnknownEntityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("entity %q: %v: %s", e.ID, ErrUnknownEntity, e.Reason)
	}
	return fmt.Sprintf("entity %q: %v", e.ID, ErrUnknownEntity)
}

func (e *UnknownEntityError) Is(target error) bool {
	return target == ErrUnknownEntity
}
