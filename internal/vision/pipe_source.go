package vision

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"
)

// PipeSource reads raw RGB24 frames from a long-running capture command
// (ffmpeg by default). A background reader keeps only the newest frame, so a
// slow consumer skips frames instead of queueing them.
type PipeSource struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	width  int
	height int

	mu     sync.Mutex
	latest *image.RGBA
	seq    uint64
	taken  uint64
	err    error

	ready     chan struct{} // closed on the first frame or the end of the stream
	readyOnce sync.Once

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// DefaultCaptureCommand grabs the first V4L2 camera at the given size.
func DefaultCaptureCommand(width, height int) []string {
	return []string{
		"ffmpeg", "-loglevel", "error",
		"-f", "v4l2", "-video_size", fmt.Sprintf("%dx%d", width, height), "-i", "/dev/video0",
		"-f", "rawvideo", "-pix_fmt", "rgb24", "-s", fmt.Sprintf("%dx%d", width, height), "-",
	}
}

// StartPipeSource starts command and reads width x height RGB24 frames from
// its stdout. It returns once the first frame has arrived. A command that
// exits, or sends nothing within startTimeout, is stopped and reported as an
// error.
func StartPipeSource(command []string, width, height int, startTimeout time.Duration) (*PipeSource, error) {
	if len(command) == 0 {
		return nil, errors.New("vision: empty capture command")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("vision: invalid frame size %dx%d", width, height)
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stderr = log.Writer()
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("vision: capture stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("vision: start capture %q: %w", command[0], err)
	}
	log.Printf("vision: capture started: %s (%dx%d)", command[0], width, height)

	s := newPipeSource(out, width, height)
	s.cmd = cmd
	if err := s.waitReady(startTimeout); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("vision: capture %q: %w", command[0], err)
	}
	return s, nil
}

func newPipeSource(out io.ReadCloser, width, height int) *PipeSource {
	s := &PipeSource{
		out:    out,
		width:  width,
		height: height,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// waitReady blocks until the first frame arrives, the stream ends or
// timeout passes.
func (s *PipeSource) waitReady(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.ready:
	case <-timer.C:
		return fmt.Errorf("no frame within %v", timeout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == 0 && s.err != nil {
		return fmt.Errorf("stream ended before the first frame: %w", s.err)
	}
	return nil
}

func (s *PipeSource) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *PipeSource) run() {
	defer s.wg.Done()
	defer s.markReady()

	buf := make([]byte, s.width*s.height*3)
	for {
		if _, err := io.ReadFull(s.out, buf); err != nil {
			select {
			case <-s.done:
			default:
				log.Printf("vision: capture stream ended: %v", err)
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
			return
		}

		img := rgb24ToRGBA(buf, s.width, s.height)
		s.mu.Lock()
		s.latest = img
		s.seq++
		s.mu.Unlock()
		s.markReady()
	}
}

// Capture returns the newest frame. Each frame is handed out once.
func (s *PipeSource) Capture() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq == s.taken {
		if s.err != nil {
			return nil, &CaptureError{Err: s.err}
		}
		return nil, &CaptureError{Err: ErrNoFrame}
	}
	s.taken = s.seq
	return s.latest, nil
}

// Close stops the capture command and releases the stream.
func (s *PipeSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		err = s.out.Close()
		s.wg.Wait()
		if s.cmd != nil {
			// Killed on purpose; the exit status is not interesting.
			_ = s.cmd.Wait()
			log.Printf("vision: capture stopped")
		}
	})
	return err
}

func rgb24ToRGBA(buf []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i+2 < len(buf); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
