package tle

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when neither the network nor the local cache
	// can supply element data.
	ErrUnavailable = errors.New("ephemeris data unavailable")

	// ErrUnknownSatellite is returned when a NORAD ID is not in the dataset.
	ErrUnknownSatellite = errors.New("unknown satellite")
)

// ParseError reports a malformed two-line element set.
type ParseError struct {
	Name  string // satellite name line, may be empty
	Field string // "line1", "line2", "checksum", "epoch", ...
	Err   error
}

func (e *ParseError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("parse %q: %s: %v", e.Name, e.Field, e.Err)
	}
	return fmt.Sprintf("parse: %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
