package trilateration

import "fmt"

// PreconditionError reports input the solver refuses before doing any
// arithmetic: a non-positive or non-finite distance, a non-finite reference
// point, or the same satellite selected twice.
type PreconditionError struct {
	Param  string // "d1", "v2", "satellites", ...
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s: %s", e.Param, e.Reason)
}

// DegenerateGeometryError reports a singular system: the three reference
// points are collinear in (ra, dec), so no unique solution exists.
type DegenerateGeometryError struct {
	Determinant float64 // B·C − A·D
	Reason      string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry: %s (determinant %g)", e.Reason, e.Determinant)
}
