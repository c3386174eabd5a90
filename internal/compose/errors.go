// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compose

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCitationDocument is returned when the rendered citation
	// bytes cannot be parsed or contain no pages. The target document has
	// not been touched when this is returned.
	ErrInvalidCitationDocument = errors.New("compose: citation document is not a usable PDF")

	// ErrAssetMissing is returned when the button image is empty or cannot
	// be decoded.
	ErrAssetMissing = errors.New("compose: button image missing")
)

// Error reports a structural failure while editing the target document.
// The document may be partially modified.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("compose: %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsCompositionError reports whether err is, or wraps, an *Error.
func IsCompositionError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
