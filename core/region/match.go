// core/region/match.go
package region

import "fmt"

// SourceType tags a catalogued detection region.
type SourceType string

const (
	Extended SourceType = "ext"
	Point    SourceType = "pnt"
)

// Detection is one region loaded from an observation's region file.
type Detection struct {
	Shape Shape
	Type  SourceType
}

// MultipleMatchError reports an unresolvable ambiguity: more than one
// same-type region contains the source position in a single observation.
type MultipleMatchError struct {
	ObsID string
	Type  SourceType
	Count int
}

func (e *MultipleMatchError) Error() string {
	return fmt.Sprintf("observation %s has %d candidate %s regions for the source position", e.ObsID, e.Count, e.Type)
}

// Match finds the detection of the wanted type containing (ra, dec) in one
// observation's region list. The remainder slice holds every other detection
// and feeds the interloper logic. Exactly zero matches returns found=false;
// two or more is a MultipleMatchError, never auto-resolved.
func Match(obsID string, dets []Detection, ra, dec float64, want SourceType) (match Detection, remainder []Detection, found bool, err error) {
	var hits []int
	for i, d := range dets {
		if d.Type == want && d.Shape.Contains(ra, dec) {
			hits = append(hits, i)
		}
	}
	if len(hits) > 1 {
		return Detection{}, nil, false, &MultipleMatchError{ObsID: obsID, Type: want, Count: len(hits)}
	}
	if len(hits) == 0 {
		return Detection{}, append([]Detection(nil), dets...), false, nil
	}
	for i, d := range dets {
		if i != hits[0] {
			remainder = append(remainder, d)
		}
	}
	return dets[hits[0]], remainder, true, nil
}
