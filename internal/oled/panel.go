// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package oled mirrors the newest GPS fix onto a 128x64 SSD1306 panel.
package oled

import (
	"fmt"
	"image"
	"log"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/eagle_eye/internal/gps"
)

const (
	width  = 128
	height = 64
)

// drawer is the part of *ssd1306.Dev the panel uses.
type drawer interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// Panel is an SSD1306 on an I2C bus. Frames are written by a background
// loop so a slow bus never holds up the caller; only the newest undrawn fix
// is kept.
type Panel struct {
	dev drawer
	bus i2c.BusCloser

	mu     sync.Mutex
	closed bool
	fixes  chan gps.Fix

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// Open initializes periph, opens the bus ("" picks the first one) and
// shows the splash screen. The panel must answer at 0x3C.
func Open(busName string) (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("oled: display initialized on %s", bus)

	img := splash()
	if err := dev.Draw(img.Bounds(), img, image.Point{}); err != nil {
		log.Printf("oled: error showing splash: %v", err)
	}
	return newPanel(dev, bus), nil
}

func newPanel(dev drawer, bus i2c.BusCloser) *Panel {
	p := &Panel{
		dev:   dev,
		bus:   bus,
		fixes: make(chan gps.Fix, 1),
		done:  make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Panel) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case fix := <-p.fixes:
			img := renderFix(fix)
			if err := p.dev.Draw(img.Bounds(), img, image.Point{}); err != nil {
				log.Printf("oled: error drawing fix: %v", err)
			}
		}
	}
}

// ShowFix queues the fix for drawing and returns at once. A fix still
// waiting to be drawn is replaced. It satisfies gps.FixSink.
func (p *Panel) ShowFix(fix gps.Fix) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("oled: panel closed")
	}
	select {
	case <-p.fixes:
	default:
	}
	p.fixes <- fix
	return nil
}

// Close stops the draw loop, blanks the panel and releases the bus.
func (p *Panel) Close() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		close(p.done)
		p.wg.Wait()

		if herr := p.dev.Halt(); herr != nil {
			log.Printf("oled: halt: %v", herr)
		}
		if p.bus != nil {
			err = p.bus.Close()
		}
	})
	return err
}

func blank() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, d
}

func line(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

func splash() *image1bit.VerticalLSB {
	img, d := blank()
	line(d, 28, 26, "EAGLE EYE")
	line(d, 5, 43, "Looking for")
	line(d, 25, 56, "sats")
	return img
}

func renderFix(fix gps.Fix) *image1bit.VerticalLSB {
	img, d := blank()

	line(d, 0, 13, fix.GridText())

	latDir := "N"
	lat := fix.Latitude
	if lat < 0 {
		latDir = "S"
		lat = -lat
	}
	line(d, 0, 26, fmt.Sprintf("%.5f%s", lat, latDir))

	lonDir := "E"
	lon := fix.Longitude
	if lon < 0 {
		lonDir = "W"
		lon = -lon
	}
	line(d, 0, 39, fmt.Sprintf("%.5f%s", lon, lonDir))

	line(d, 0, 52, fmt.Sprintf("Alt: %.0fm  %s", fix.Altitude, fix.Time))
	return img
}
