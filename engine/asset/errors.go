package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by errors.Is for every *NotFoundError.
	ErrNotFound = errors.New("asset not found")

	// ErrManifest is matched by errors.Is for every *ManifestError.
	ErrManifest = errors.New("invalid asset manifest")
)

// NotFoundError reports an asset id that is absent from the manifest.
type NotFoundError struct {
	AssetID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("asset %q: %v", e.AssetID, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ManifestError reports a manifest (or a manifest-referenced geometry file) that cannot be parsed.
type ManifestError struct {
	Path    string
	AssetID string
	Err     error
}

func (e *ManifestError) Error() string {
	if e.AssetID != "" {
		return fmt.Sprintf("manifest %s: asset %q: %v", e.Path, e.AssetID, e.Err)
	}
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

func (e *ManifestError) Is(target error) bool {
	return target == ErrManifest
}
