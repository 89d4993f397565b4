// Package osgrid converts WGS84 positions into the short Ordnance Survey
// grid references shown on the dashboard.
package osgrid

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// OutOfCoverage is the zone code used when the projected easting or
// northing is negative.
const OutOfCoverage = "AA"

const squareSize = 100000

// Ref is a grid reference: zone letters plus the leading (up to four)
// digits of the easting and northing within the 100 km square.
type Ref struct {
	ZoneLetters string `json:"zone"`
	Easting     string `json:"easting"`
	Northing    string `json:"northing"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s %s %s", r.ZoneLetters, r.Easting, r.Northing)
}

// Projector transforms a geodetic position into planar grid metres.
type Projector interface {
	Project(lat, lon float64) (easting, northing float64, err error)
}

// Encoder turns latitude/longitude into a Ref.
type Encoder struct {
	proj Projector
}

func NewEncoder(p Projector) *Encoder {
	return &Encoder{proj: p}
}

// Encode projects the position and formats it as a grid reference.
//
// Errors are *ProjectionError or *CoverageError.
func (e *Encoder) Encode(lat, lon float64) (Ref, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || math.IsNaN(lat) || math.IsNaN(lon) {
		return Ref{}, &ProjectionError{Lat: lat, Lon: lon, Err: errors.New("coordinate out of range")}
	}

	east, north, err := e.proj.Project(lat, lon)
	if err != nil {
		return Ref{}, &ProjectionError{Lat: lat, Lon: lon, Err: err}
	}
	if !finite(east) || !finite(north) {
		return Ref{}, &ProjectionError{Lat: lat, Lon: lon, Err: fmt.Errorf("non-finite result E=%v N=%v", east, north)}
	}

	// Truncate, don't round: the legacy format biases toward the origin.
	return FromProjected(int64(math.Trunc(east)), int64(math.Trunc(north)))
}

// FromProjected formats already truncated grid metres.
//
// A negative easting or northing yields OutOfCoverage with the digit fields
// still filled in from the floored remainder.
func FromProjected(easting, northing int64) (Ref, error) {
	ref := Ref{
		Easting:  digits(easting),
		Northing: digits(northing),
	}

	if easting < 0 || northing < 0 {
		ref.ZoneLetters = OutOfCoverage
		return ref, nil
	}

	key := SquareKey(easting, northing)
	letters, ok := Lookup(key)
	if !ok {
		return Ref{}, &CoverageError{Key: key, Easting: easting, Northing: northing}
	}
	ref.ZoneLetters = letters
	return ref, nil
}

// SquareKey concatenates the 100 km indices without zero padding.
func SquareKey(easting, northing int64) string {
	return strconv.FormatInt(easting/squareSize, 10) + strconv.FormatInt(northing/squareSize, 10)
}

// digits keeps the first four characters of the in-square offset. Offsets
// below 10000 are not zero padded, so "950" stays "950".
func digits(v int64) string {
	s := strconv.FormatInt(floorMod(v, squareSize), 10)
	if len(s) > 4 {
		s = s[:4]
	}
	return s
}

func floorMod(v, m int64) int64 {
	r := v % m
	if r < 0 {
		r += m
	}
	return r
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
