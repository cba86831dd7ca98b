package domain

import "errors"

// Common domain errors
var (
	// ErrMediaNotFound is returned when a media item is not found
	ErrMediaNotFound = errors.New("media not found")

	// ErrEntryPointNotFound is returned when an entry point is not registered
	ErrEntryPointNotFound = errors.New("entry point not found")

	// ErrEntryPointMissing is reported when an entry point no longer exists on disk
	ErrEntryPointMissing = errors.New("entry point does not exist")

	// ErrInvalidPath is returned when a path is empty or cannot be made absolute
	ErrInvalidPath = errors.New("invalid path")

	// ErrUnsupportedMedia is returned when a file cannot be classified
	ErrUnsupportedMedia = errors.New("unsupported media")

	// ErrNotInitialized is returned by facade calls made before Initialize
	ErrNotInitialized = errors.New("media library not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called with a different storage root
	ErrAlreadyInitialized = errors.New("media library already initialized with another storage root")
)
