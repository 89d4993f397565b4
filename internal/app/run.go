package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/relabs-tech/eagle_eye/internal/config"
	"github.com/relabs-tech/eagle_eye/internal/gps"
	"github.com/relabs-tech/eagle_eye/internal/oled"
	"github.com/relabs-tech/eagle_eye/internal/osgrid"
	"github.com/relabs-tech/eagle_eye/internal/vision"
)

// RunDashboard opens every resource named by cfg and runs the dashboard
// until the operator quits or ctx is cancelled. Resources are released
// before it returns.
func RunDashboard(ctx context.Context, cfg *config.Config) error {
	// The TUI owns the terminal; log to a file instead.
	logFile, err := tea.LogToFile(cfg.LogFile, "eagleeye")
	if err != nil {
		return &ResourceError{Resource: "log file " + cfg.LogFile, Err: err}
	}
	defer logFile.Close()

	d, err := Open(cfg)
	if err != nil {
		log.Printf("app: startup failed: %v", err)
		return err
	}

	m := NewModel(d, cfg.DisplayTitle, cfg.DisplayImageColumns, Timing{
		Position: time.Duration(cfg.GPSInterval) * time.Millisecond,
		Vision:   time.Duration(cfg.VisionInterval) * time.Millisecond,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	log.Println("app: dashboard running")
	_, runErr := p.Run()

	closeErr := d.Close()
	log.Println("app: dashboard stopped")

	if errors.Is(runErr, tea.ErrProgramKilled) || errors.Is(runErr, tea.ErrInterrupted) {
		runErr = nil
	}
	return errors.Join(runErr, closeErr)
}

// Open acquires the frame source, detector, projection, serial port and
// optional OLED panel. Any failure releases what was already opened and is
// returned as *ResourceError.
func Open(cfg *config.Config) (*Dashboard, error) {
	var owned []resource
	fail := func(name string, err error) (*Dashboard, error) {
		if cerr := closeAll(owned); cerr != nil {
			log.Printf("app: cleanup after failed startup: %v", cerr)
		}
		return nil, &ResourceError{Resource: name, Err: err}
	}
	keep := func(name string, c io.Closer) {
		owned = append(owned, resource{name: name, c: c})
	}

	var src vision.FrameSource
	switch cfg.VisionSource {
	case "dir":
		dir, err := vision.OpenDirSource(cfg.VisionDir)
		if err != nil {
			return fail("frame directory "+cfg.VisionDir, err)
		}
		log.Printf("app: replaying %d images from %s", dir.Len(), cfg.VisionDir)
		src = dir
	default:
		command := cfg.VisionCaptureCommand
		if len(command) == 0 {
			command = vision.DefaultCaptureCommand(cfg.VisionFrameWidth, cfg.VisionFrameHeight)
		}
		pipe, err := vision.StartPipeSource(command, cfg.VisionFrameWidth, cfg.VisionFrameHeight,
			time.Duration(cfg.VisionStartTimeout)*time.Millisecond)
		if err != nil {
			return fail("camera", err)
		}
		src = pipe
	}
	keep("frame source", src)

	var det vision.Detector
	if len(cfg.DetectorCommand) > 0 {
		ed, err := vision.StartExecDetector(cfg.DetectorCommand,
			time.Duration(cfg.DetectorTimeout)*time.Millisecond)
		if err != nil {
			return fail("detector", err)
		}
		keep("detector", ed)
		det = ed
	} else {
		log.Println("app: no detector configured, frames are shown without boxes")
	}

	projector, err := osgrid.NewPROJProjector()
	if err != nil {
		return fail("projection", err)
	}
	keep("projection", projector)

	var lines gps.LineSource
	if cfg.GPSSerialPort == gps.SimulatedPort {
		sim := gps.NewSimulator(cfg.GPSSimLatitude, cfg.GPSSimLongitude, time.Second)
		log.Printf("app: simulated GPS around %.4f, %.4f", cfg.GPSSimLatitude, cfg.GPSSimLongitude)
		keep("gps simulator", sim)
		lines = sim
	} else {
		pump, err := gps.OpenSerial(gps.SerialConfig{
			Port:       cfg.GPSSerialPort,
			BaudRate:   cfg.GPSBaudRate,
			LineBuffer: cfg.GPSLineBuffer,
		})
		if err != nil {
			return fail(fmt.Sprintf("gps serial port %s", cfg.GPSSerialPort), err)
		}
		keep("gps serial port", pump)
		lines = pump
	}

	var sinks []gps.FixSink
	if cfg.OLEDEnable {
		panel, err := oled.Open(cfg.OLEDI2CBus)
		if err != nil {
			return fail("oled", err)
		}
		keep("oled", panel)
		sinks = append(sinks, panel)
	}

	position := gps.NewReader(lines, osgrid.NewEncoder(projector), cfg.GPSSentencePrefix,
		time.Duration(cfg.GPSReadTimeout)*time.Millisecond)
	frames := vision.NewReader(src, det, cfg.DetectorConfidence)

	d := NewDashboard(position, frames, cfg.GPSWindowRows, cfg.GPSMaxLinesPerTick, sinks...)
	for _, r := range owned {
		d.own(r.name, r.c)
	}
	return d, nil
}
