// Package geovalidate validates user-supplied geographic bounds before they
// reach the pipeline, in the same style as the teacher's
// validation.GeographicValidator: accumulate every violation instead of
// failing on the first one, so the CLI can report all of them at once.
package geovalidate

import "fmt"

// BoundingBoxErrors collects every violation found in a bounding box.
type BoundingBoxErrors struct {
	Violations []string
}

func (e *BoundingBoxErrors) add(format string, args ...any) {
	e.Violations = append(e.Violations, fmt.Sprintf(format, args...))
}

func (e *BoundingBoxErrors) Error() string {
	if len(e.Violations) == 1 {
		return e.Violations[0]
	}
	msg := fmt.Sprintf("%d bounding box errors:", len(e.Violations))
	for _, v := range e.Violations {
		msg += "\n  - " + v
	}
	return msg
}

// ValidateBoundingBox checks latitude/longitude range and ordering for a
// --bbox value of the form minLng,minLat,maxLng,maxLat, returning nil if
// the box is well-formed.
func ValidateBoundingBox(minLng, minLat, maxLng, maxLat float64) error {
	errs := &BoundingBoxErrors{}

	if minLat < -90 || minLat > 90 {
		errs.add("min latitude %v out of range [-90, 90]", minLat)
	}
	if maxLat < -90 || maxLat > 90 {
		errs.add("max latitude %v out of range [-90, 90]", maxLat)
	}
	if maxLat <= minLat {
		errs.add("max latitude %v must exceed min latitude %v", maxLat, minLat)
	}

	if minLng < -180 || minLng > 180 {
		errs.add("min longitude %v out of range [-180, 180]", minLng)
	}
	if maxLng < -180 || maxLng > 180 {
		errs.add("max longitude %v out of range [-180, 180]", maxLng)
	}
	if maxLng <= minLng {
		errs.add("max longitude %v must exceed min longitude %v", maxLng, minLng)
	}

	if len(errs.Violations) == 0 {
		return nil
	}
	return errs
}
