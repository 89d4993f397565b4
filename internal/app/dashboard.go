// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/relabs-tech/eagle_eye/internal/display"
	"github.com/relabs-tech/eagle_eye/internal/gps"
	"github.com/relabs-tech/eagle_eye/internal/vision"
)

// ResourceError reports a device or process that could not be opened at
// startup. It is the only fatal error class.
type ResourceError struct {
	Resource string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// PositionFeed is the GPS side of the dashboard.
type PositionFeed interface {
	Wait() bool
	Poll() (*gps.Fix, error)
	Buffered() int
	// Err is the error that stopped the receiver, if it has stopped.
	Err() error
	// Dropped counts receiver lines discarded before they were read.
	Dropped() uint64
}

// FrameFeed is the camera side of the dashboard.
type FrameFeed interface {
	Poll() (*vision.Frame, error)
}

type resource struct {
	name string
	c    io.Closer
}

// Dashboard owns both feeds, the widgets they fill and every open resource.
//
// Polls run off the UI goroutine but hold tickMu, so at most one feed is
// polled at a time. Widgets are only touched from the bubbletea Update.
type Dashboard struct {
	tickMu   sync.Mutex
	closed   bool
	feedLost bool

	position PositionFeed
	frames   FrameFeed
	maxLines int

	window  *gps.Window
	table   *display.Table
	surface *display.Surface

	resources []resource
}

// NewDashboard wires the feeds to fresh widgets. windowRows is the number of
// fixes kept on screen; maxLines bounds how many receiver lines one position
// tick consumes.
func NewDashboard(position PositionFeed, frames FrameFeed, windowRows, maxLines int, sinks ...gps.FixSink) *Dashboard {
	if windowRows < 1 {
		windowRows = gps.DefaultWindowRows
	}
	if maxLines < 1 {
		maxLines = 1
	}
	table := display.NewTable(windowRows)
	return &Dashboard{
		position: position,
		frames:   frames,
		maxLines: maxLines,
		window:   gps.NewWindow(table, windowRows, sinks...),
		table:    table,
		surface:  display.NewSurface(),
	}
}

// own registers a resource to be released by Close, in registration order.
func (d *Dashboard) own(name string, c io.Closer) {
	d.resources = append(d.resources, resource{name: name, c: c})
}

type positionPolledMsg struct {
	fixes   []gps.Fix
	errs    []error
	lost    error // receiver stopped; nothing more will arrive
	dropped uint64
}

type visionPolledMsg struct {
	frame *vision.Frame
	err   error
}

// pollPosition waits for the receiver outside the tick lock, then drains
// what is buffered so fixes are shown in arrival order.
func (d *Dashboard) pollPosition() positionPolledMsg {
	var msg positionPolledMsg
	if d.position == nil {
		return msg
	}
	ready := d.position.Wait()

	d.tickMu.Lock()
	defer d.tickMu.Unlock()
	if d.closed {
		return msg
	}

	msg.dropped = d.position.Dropped()
	if err := d.position.Err(); err != nil {
		if !d.feedLost {
			log.Printf("gps: receiver stopped: %v", err)
			d.feedLost = true
		}
		msg.lost = err
	}
	if !ready {
		return msg
	}

	for i := 0; i < d.maxLines; i++ {
		fix, err := d.position.Poll()
		switch {
		case err != nil:
			log.Printf("gps: %v", err)
			msg.errs = append(msg.errs, err)
		case fix != nil:
			if fix.GridErr != nil {
				log.Printf("gps: grid reference unavailable: %v", fix.GridErr)
			}
			msg.fixes = append(msg.fixes, *fix)
		}
		if d.position.Buffered() == 0 {
			break
		}
	}
	return msg
}

func (d *Dashboard) pollVision() visionPolledMsg {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()
	if d.closed || d.frames == nil {
		return visionPolledMsg{err: &vision.CaptureError{Err: vision.ErrNoFrame}}
	}
	frame, err := d.frames.Poll()
	return visionPolledMsg{frame: frame, err: err}
}

// applyPosition pushes polled fixes into the window. UI goroutine only.
func (d *Dashboard) applyPosition(msg positionPolledMsg) {
	for _, fix := range msg.fixes {
		d.window.Push(fix)
	}
}

// applyVision replaces the shown image. A failed capture leaves it as is.
// UI goroutine only.
func (d *Dashboard) applyVision(msg visionPolledMsg) bool {
	if msg.err != nil || msg.frame == nil || msg.frame.Annotated == nil {
		return false
	}
	d.surface.SetImage(msg.frame.Annotated)
	return true
}

// Close waits for any poll in flight, then releases every resource. Later
// polls see a closed dashboard and do nothing.
func (d *Dashboard) Close() error {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return closeAll(d.resources)
}

func closeAll(resources []resource) error {
	var errs []error
	for _, r := range resources {
		if err := r.c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", r.name, err))
			continue
		}
		log.Printf("app: %s released", r.name)
	}
	return errors.Join(errs...)
}
