package gps

import (
	"testing"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/eagle_eye/internal/osgrid"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) sleep(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeSimulator(lat, lon float64) (*Simulator, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 5, 1, 12, 35, 19, 0, time.UTC)}
	s := NewSimulator(lat, lon, time.Second)
	s.start, s.next = clk.t, clk.t
	s.now, s.sleep = clk.now, clk.sleep
	return s, clk
}

func TestSimulator_EmitsValidGGA(t *testing.T) {
	s, _ := newFakeSimulator(51.4779, -0.0015)

	line, ok := s.ReadLine(time.Millisecond)
	require.True(t, ok)

	sentence, err := nmea.Parse(line)
	require.NoError(t, err)
	gga, ok := sentence.(nmea.GGA)
	require.True(t, ok)
	assert.InDelta(t, 51.4779, gga.Latitude, 0.001)
	assert.InDelta(t, -0.0015, gga.Longitude, 0.001)
	assert.Equal(t, 12, gga.Time.Hour)
	assert.Equal(t, 35, gga.Time.Minute)
	assert.Equal(t, "1", gga.FixQuality)
}

func TestSimulator_OneSentencePerPeriod(t *testing.T) {
	s, clk := newFakeSimulator(51.5, -0.12)

	_, ok := s.ReadLine(0)
	require.True(t, ok)
	assert.Zero(t, s.Buffered())

	// Not due yet and the wait is shorter than the period.
	_, ok = s.ReadLine(100 * time.Millisecond)
	assert.False(t, ok)

	clk.advance(time.Second)
	assert.Equal(t, 1, s.Buffered())
	_, ok = s.ReadLine(0)
	assert.True(t, ok)

	// Waiting long enough yields the next one.
	assert.True(t, s.Wait(2*time.Second))
}

func TestSimulator_ThroughReader(t *testing.T) {
	s, _ := newFakeSimulator(53.4808, -2.2426)
	enc := &stubEncoder{ref: osgrid.Ref{ZoneLetters: "SJ", Easting: "8389", Northing: "9835"}}
	r := NewReader(s, enc, DefaultPrefix, time.Millisecond)

	require.True(t, r.Wait())
	fix, err := r.Poll()
	require.NoError(t, err)
	require.NotNil(t, fix)
	assert.True(t, fix.GridOK)
	assert.Equal(t, "12:35:19", fix.Time)
	assert.InDelta(t, 53.4808, fix.Latitude, 0.001)
}

func TestNMEAAngle(t *testing.T) {
	assert.Equal(t, "5130.0000,N", nmeaAngle(51.5, 2, "N", "S"))
	assert.Equal(t, "00007.2000,W", nmeaAngle(-0.12, 3, "E", "W"))
}
