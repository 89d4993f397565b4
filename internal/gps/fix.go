package gps

import (
	"fmt"

	"github.com/relabs-tech/eagle_eye/internal/osgrid"
)

// Unavailable is shown in place of a grid reference that could not be
// computed.
const Unavailable = "unavailable"

// Fix represents a single parsed GGA position report.
type Fix struct {
	Time       string     `json:"time"`        // e.g. "12:35:19"
	Latitude   float64    `json:"lat"`         // decimal degrees
	Longitude  float64    `json:"lon"`         // decimal degrees
	Altitude   float64    `json:"alt_m"`       // metres above mean sea level
	FixQuality string     `json:"fix_quality"` // "1" GPS, "2" DGPS, ...
	Satellites int64      `json:"satellites"`
	HDOP       float64    `json:"hdop"`
	GridRef    osgrid.Ref `json:"grid_ref"`
	GridOK     bool       `json:"grid_ok"` // false: GridErr explains why
	GridErr    error      `json:"-"`
}

// GridText is the grid reference column text.
func (f Fix) GridText() string {
	if !f.GridOK {
		return Unavailable
	}
	return f.GridRef.String()
}

// Fields returns the row values after the timestamp column.
func (f Fix) Fields() []string {
	return []string{
		fmt.Sprintf("%.6f", f.Latitude),
		fmt.Sprintf("%.6f", f.Longitude),
		fmt.Sprintf("%.1f", f.Altitude),
		f.GridText(),
	}
}
