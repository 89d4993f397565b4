// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"math"
	"time"
)

// SimulatedPort selects the Simulator instead of a serial device.
const SimulatedPort = "sim"

// Simulator emits one GGA sentence per period, wandering smoothly around
// an origin. It stands in for a receiver on a bench.
type Simulator struct {
	lat, lon float64
	period   time.Duration
	start    time.Time
	next     time.Time
	now      func() time.Time
	sleep    func(time.Duration)
}

// NewSimulator creates a simulator that generates smooth changing
// positions around lat, lon.
func NewSimulator(lat, lon float64, period time.Duration) *Simulator {
	if period <= 0 {
		period = time.Second
	}
	now := time.Now()
	return &Simulator{
		lat:    lat,
		lon:    lon,
		period: period,
		start:  now,
		next:   now,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

func (s *Simulator) Buffered() int {
	if s.now().Before(s.next) {
		return 0
	}
	return 1
}

func (s *Simulator) Wait(timeout time.Duration) bool {
	if wait := s.next.Sub(s.now()); wait > 0 {
		s.sleep(min(wait, timeout))
	}
	return s.Buffered() > 0
}

func (s *Simulator) ReadLine(timeout time.Duration) (string, bool) {
	if !s.Wait(timeout) {
		return "", false
	}
	at := s.now()
	s.next = s.next.Add(s.period)
	if s.next.Before(at) {
		s.next = at.Add(s.period)
	}
	return s.sentence(at), true
}

func (s *Simulator) Close() error { return nil }

func (s *Simulator) sentence(at time.Time) string {
	elapsed := at.Sub(s.start).Seconds()
	lat := s.lat + 0.0005*math.Sin(elapsed/30)
	lon := s.lon + 0.0008*math.Cos(elapsed/30*0.7)
	alt := 40 + 2*math.Sin(elapsed/10)

	utc := at.UTC()
	payload := fmt.Sprintf("GNGGA,%02d%02d%02d.00,%s,%s,1,09,0.9,%.1f,M,45.0,M,,",
		utc.Hour(), utc.Minute(), utc.Second(),
		nmeaAngle(lat, 2, "N", "S"), nmeaAngle(lon, 3, "E", "W"), alt)
	return fmt.Sprintf("$%s*%02X", payload, checksum(payload))
}

// nmeaAngle formats decimal degrees as (d)ddmm.mmmm,H.
func nmeaAngle(deg float64, width int, pos, neg string) string {
	hemi := pos
	if deg < 0 {
		hemi = neg
		deg = -deg
	}
	d := math.Floor(deg)
	m := (deg - d) * 60
	return fmt.Sprintf("%0*d%07.4f,%s", width, int(d), m, hemi)
}

func checksum(payload string) byte {
	var c byte
	for i := 0; i < len(payload); i++ {
		c ^= payload[i]
	}
	return c
}
