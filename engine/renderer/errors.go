package renderer

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyAttached is matched by errors.Is for every *AlreadyAttachedError.
	ErrAlreadyAttached = errors.New("entity already attached")

	// ErrNotAttached is matched by errors.Is for every *NotAttachedError.
	ErrNotAttached = errors.New("entity not attached")

	// ErrSync is matched by errors.Is for every *SyncError.
	ErrSync = errors.New("renderer sync failed")

	// ErrRender is matched by errors.Is for every *RenderError.
	ErrRender = errors.New("render failed")

	// ErrUnsupportedChannel is matched by errors.Is for every *UnsupportedChannelError.
	ErrUnsupportedChannel = errors.New("unsupported channel")

	// ErrNoCamera is returned when a frame is rendered without an attached active camera.
	ErrNoCamera = errors.New("scene has no attached active camera")
)

// AlreadyAttachedError reports an Attach of an entity that already has a linked representation.
type AlreadyAttachedError struct {
	EntityID string
}

func (e *AlreadyAttachedError) Error() string {
	return fmt.Sprintf("entity %q: %v", e.EntityID, ErrAlreadyAttached)
}

func (e *AlreadyAttachedError) Is(target error) bool {
	return target == ErrAlreadyAttached
}

// NotAttachedError reports an operation on an entity without a linked representation.
type NotAttachedError struct {
	EntityID string
}

func (e *NotAttachedError) Error() string {
	return fmt.Sprintf("entity %q: %v", e.EntityID, ErrNotAttached)
}

func (e *NotAttachedError) Is(target error) bool {
	return target == ErrNotAttached
}

// SyncError reports a rejected push of entity state to the backend.
type SyncError struct {
	EntityID string
	Frame    int
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync entity %q at frame %d: %v", e.EntityID, e.Frame, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func (e *SyncError) Is(target error) bool {
	return target == ErrSync
}

// RenderError reports a failed frame evaluation, including cancellation.
type RenderError struct {
	Frame int
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render frame %d: %v", e.Frame, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}

// UnsupportedChannelError reports a channel the backend cannot produce.
type UnsupportedChannelError struct {
	Channel Channel
}

func (e *UnsupportedChannelError) Error() string {
	return fmt.Sprintf("channel %q: %v", string(e.Channel), ErrUnsupportedChannel)
}

func (e *UnsupportedChannelError) Is(target error) bool {
	return target == ErrUnsupportedChannel
}
