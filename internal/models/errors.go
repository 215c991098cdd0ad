package models

import "errors"

// Error taxonomy shared by every processing package. Callers wrap these with
// fmt.Errorf("%w: ...") and test them with errors.Is.
var (
	// ErrConfiguration reports an invalid or missing parameter: unknown
	// alignment strategy, missing manual offset, odd or non-positive
	// sideband size, bad despike kernel or sigma.
	ErrConfiguration = errors.New("configuration error")

	// ErrBounds reports a region of interest that does not fit inside the
	// array it is cut from.
	ErrBounds = errors.New("region exceeds image bounds")

	// ErrNumericalDegeneracy marks non-finite values produced by dividing by
	// a near-zero reference wave. It is reported, never returned as fatal.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")

	// ErrSelectionTimeout reports that an interactive selection did not
	// complete in time.
	ErrSelectionTimeout = errors.New("selection timed out")
)
