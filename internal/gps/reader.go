package gps

import (
	"fmt"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/eagle_eye/internal/osgrid"
)

// DefaultPrefix selects multi-constellation GGA sentences.
const DefaultPrefix = "$GNGGA"

// GridEncoder converts a position into a grid reference.
type GridEncoder interface {
	Encode(lat, lon float64) (osgrid.Ref, error)
}

// ParseError reports a sentence that carried the expected prefix but could
// not be decoded.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gps: parse %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader turns lines from a LineSource into fixes.
type Reader struct {
	src     LineSource
	enc     GridEncoder
	prefix  string
	timeout time.Duration
}

func NewReader(src LineSource, enc GridEncoder, prefix string, timeout time.Duration) *Reader {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Reader{src: src, enc: enc, prefix: prefix, timeout: timeout}
}

// Poll reads one line. It returns (nil, nil) when no line arrived within the
// read timeout or the line is ordinary traffic with another prefix.
//
// A grid reference failure does not discard the fix: it comes back with
// GridOK false and GridErr set.
func (r *Reader) Poll() (*Fix, error) {
	line, ok := r.src.ReadLine(r.timeout)
	if !ok {
		return nil, nil
	}
	return r.parse(line)
}

// Wait blocks for up to the read timeout until a line is ready, without
// consuming it. Sources that cannot wait report what is already buffered.
func (r *Reader) Wait() bool {
	if w, ok := r.src.(interface{ Wait(time.Duration) bool }); ok {
		return w.Wait(r.timeout)
	}
	return r.src.Buffered() > 0
}

// Buffered reports how many lines are ready without waiting.
func (r *Reader) Buffered() int {
	return r.src.Buffered()
}

// Err returns the error that stopped the line source, if it reports one.
func (r *Reader) Err() error {
	if e, ok := r.src.(interface{ Err() error }); ok {
		return e.Err()
	}
	return nil
}

// Dropped returns how many lines the source discarded unread, if it counts
// them.
func (r *Reader) Dropped() uint64 {
	if d, ok := r.src.(interface{ Dropped() uint64 }); ok {
		return d.Dropped()
	}
	return 0
}

func (r *Reader) parse(line string) (*Fix, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, r.prefix) {
		return nil, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return nil, &ParseError{Line: line, Err: err}
	}
	gga, ok := sentence.(nmea.GGA)
	if !ok {
		return nil, &ParseError{Line: line, Err: fmt.Errorf("sentence type %s, want %s", sentence.DataType(), nmea.TypeGGA)}
	}

	fix := &Fix{
		Time:       formatTime(gga.Time),
		Latitude:   gga.Latitude,
		Longitude:  gga.Longitude,
		Altitude:   gga.Altitude,
		FixQuality: gga.FixQuality,
		Satellites: gga.NumSatellites,
		HDOP:       gga.HDOP,
	}

	ref, err := r.enc.Encode(fix.Latitude, fix.Longitude)
	if err != nil {
		fix.GridErr = err
		return fix, nil
	}
	fix.GridRef = ref
	fix.GridOK = true
	return fix, nil
}

func formatTime(t nmea.Time) string {
	if !t.Valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}
