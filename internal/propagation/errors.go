package propagation

import (
	"fmt"
	"time"
)

// PropagationError reports that SGP4 could not produce a usable state for a
// satellite at the requested time.
type PropagationError struct {
	NORADID int
	Time    time.Time // zero when initialisation failed
	Err     error
}

func (e *PropagationError) Error() string {
	if e.Time.IsZero() {
		return fmt.Sprintf("sgp4 NORAD %d: %v", e.NORADID, e.Err)
	}
	return fmt.Sprintf("sgp4 NORAD %d at %s: %v", e.NORADID, e.Time.UTC().Format(time.RFC3339), e.Err)
}

func (e *PropagationError) Unwrap() error { return e.Err }
