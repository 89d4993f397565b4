package osgrid

import "fmt"

// CoverageError reports a projected position whose 100 km square is not in
// the zone table.
type CoverageError struct {
	Key      string
	Easting  int64
	Northing int64
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("osgrid: square %q (E=%d N=%d) outside zone table", e.Key, e.Easting, e.Northing)
}

// ProjectionError reports a coordinate the projection could not transform.
type ProjectionError struct {
	Lat float64
	Lon float64
	Err error
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("osgrid: project lat=%.6f lon=%.6f: %v", e.Lat, e.Lon, e.Err)
}

func (e *ProjectionError) Unwrap() error { return e.Err }
