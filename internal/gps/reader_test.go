package gps

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/eagle_eye/internal/osgrid"
)

func nmeaLine(payload string) string {
	return fmt.Sprintf("$%s*%02X", payload, checksum(payload))
}

const ggaPayload = "GNGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"

type queueSource struct {
	lines []string
}

func (q *queueSource) ReadLine(time.Duration) (string, bool) {
	if len(q.lines) == 0 {
		return "", false
	}
	line := q.lines[0]
	q.lines = q.lines[1:]
	return line, true
}

func (q *queueSource) Buffered() int { return len(q.lines) }

type stubEncoder struct {
	ref   osgrid.Ref
	err   error
	calls int
}

func (s *stubEncoder) Encode(lat, lon float64) (osgrid.Ref, error) {
	s.calls++
	return s.ref, s.err
}

func newTestReader(enc GridEncoder, lines ...string) *Reader {
	return NewReader(&queueSource{lines: lines}, enc, "", time.Millisecond)
}

func TestReader_ParsesGGA(t *testing.T) {
	enc := &stubEncoder{ref: osgrid.Ref{ZoneLetters: "TQ", Easting: "3003", Northing: "8038"}}
	r := newTestReader(enc, nmeaLine(ggaPayload))

	fix, err := r.Poll()
	require.NoError(t, err)
	require.NotNil(t, fix)

	assert.Equal(t, "12:35:19", fix.Time)
	assert.InDelta(t, 48.1173, fix.Latitude, 1e-4)
	assert.InDelta(t, 11.516666, fix.Longitude, 1e-4)
	assert.InDelta(t, 545.4, fix.Altitude, 1e-9)
	assert.Equal(t, "1", fix.FixQuality)
	assert.Equal(t, int64(8), fix.Satellites)
	assert.True(t, fix.GridOK)
	assert.Equal(t, "TQ 3003 8038", fix.GridText())
	assert.Equal(t, 1, enc.calls)
}

func TestReader_NoLineIsNothing(t *testing.T) {
	r := newTestReader(&stubEncoder{})
	fix, err := r.Poll()
	assert.NoError(t, err)
	assert.Nil(t, fix)
}

func TestReader_OtherPrefixIgnored(t *testing.T) {
	enc := &stubEncoder{}
	r := newTestReader(enc,
		nmeaLine("GNRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"),
		nmeaLine("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"),
		"garbage",
	)
	for i := 0; i < 3; i++ {
		fix, err := r.Poll()
		assert.NoError(t, err)
		assert.Nil(t, fix)
	}
	assert.Zero(t, enc.calls)
}

func TestReader_MalformedIsParseError(t *testing.T) {
	good := nmeaLine(ggaPayload)
	cases := map[string]string{
		"bad checksum":     good[:len(good)-2] + "00",
		"no checksum":      "$" + ggaPayload,
		"truncated fields": nmeaLine("GNGGA,123519,4807.038,N"),
		"bad latitude":     nmeaLine("GNGGA,123519,48x7.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"),
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			enc := &stubEncoder{}
			fix, err := newTestReader(enc, line).Poll()
			assert.Nil(t, fix)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, line, perr.Line)
			assert.Zero(t, enc.calls)
		})
	}
}

func TestReader_EncoderFailureKeepsFix(t *testing.T) {
	cov := &osgrid.CoverageError{Key: "23"}
	r := newTestReader(&stubEncoder{err: cov}, nmeaLine(ggaPayload))

	fix, err := r.Poll()
	require.NoError(t, err)
	require.NotNil(t, fix)
	assert.False(t, fix.GridOK)
	assert.Equal(t, Unavailable, fix.GridText())
	assert.True(t, errors.Is(fix.GridErr, cov))
	assert.InDelta(t, 48.1173, fix.Latitude, 1e-4)
	assert.Equal(t, Unavailable, fix.Fields()[3])
}

func TestReader_CustomPrefix(t *testing.T) {
	payload := "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"
	r := NewReader(&queueSource{lines: []string{nmeaLine(payload)}}, &stubEncoder{}, "$GPGGA", time.Millisecond)
	fix, err := r.Poll()
	require.NoError(t, err)
	assert.NotNil(t, fix)
}

func TestReader_WaitFallsBackToBuffered(t *testing.T) {
	r := newTestReader(&stubEncoder{})
	assert.False(t, r.Wait())

	r = newTestReader(&stubEncoder{}, nmeaLine(ggaPayload))
	assert.True(t, r.Wait())
	assert.Equal(t, 1, r.Buffered())
}

func TestReader_ReportsStoppedPump(t *testing.T) {
	pr, pw := io.Pipe()
	p := NewPump(pr, 4)
	defer p.Close()
	r := NewReader(p, &stubEncoder{}, "", time.Millisecond)

	assert.NoError(t, r.Err())
	pw.CloseWithError(errors.New("device unplugged"))

	require.Eventually(t, func() bool { return r.Err() != nil }, time.Second, 5*time.Millisecond)
	assert.ErrorContains(t, r.Err(), "device unplugged")
}

func TestReader_DroppedComesFromSource(t *testing.T) {
	p := NewPump(io.NopCloser(strings.NewReader("1\n2\n3\n")), 1)
	defer p.Close()
	r := NewReader(p, &stubEncoder{}, "", time.Millisecond)
	require.Eventually(t, func() bool { return r.Dropped() == 2 }, time.Second, 5*time.Millisecond)

	// Sources without a counter report zero.
	assert.Zero(t, newTestReader(&stubEncoder{}).Dropped())
	assert.NoError(t, newTestReader(&stubEncoder{}).Err())
}
