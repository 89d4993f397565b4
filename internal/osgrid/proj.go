package osgrid

import (
	"fmt"

	"github.com/twpayne/go-proj/v10"
)

const (
	crsWGS84        = "EPSG:4326"
	crsNationalGrid = "EPSG:27700"
)

// PROJProjector projects WGS84 onto the British National Grid with PROJ.
//
// Not safe for concurrent use; the dashboard calls it from one tick at a
// time.
type PROJProjector struct {
	pj *proj.PJ
}

func NewPROJProjector() (*PROJProjector, error) {
	pj, err := proj.NewCRSToCRS(crsWGS84, crsNationalGrid, nil)
	if err != nil {
		return nil, fmt.Errorf("osgrid: create %s -> %s transform: %w", crsWGS84, crsNationalGrid, err)
	}
	return &PROJProjector{pj: pj}, nil
}

// Project returns easting and northing in metres.
func (p *PROJProjector) Project(lat, lon float64) (float64, float64, error) {
	// EPSG:4326 uses latitude-first axis order.
	out, err := p.pj.Forward(proj.NewCoord(lat, lon, 0, 0))
	if err != nil {
		return 0, 0, err
	}
	return out.X(), out.Y(), nil
}

// Close releases the PROJ transformation.
func (p *PROJProjector) Close() error {
	if p.pj != nil {
		p.pj.Destroy()
		p.pj = nil
	}
	return nil
}
