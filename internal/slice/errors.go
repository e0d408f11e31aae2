package slice

import "errors"

var (
	// ErrInvalidInput reports malformed user input. It is always returned
	// before any engine call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoLayers is returned when flattening produced no rasters.
	ErrNoLayers = errors.New("volume produced no layers")

	// ErrEmptyProfile is returned when a profile has no samples.
	ErrEmptyProfile = errors.New("profile has no samples")

	// ErrRaggedProfile is returned when profile rows differ in length.
	ErrRaggedProfile = errors.New("profile rows differ in length")
)
