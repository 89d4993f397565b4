package vision

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"
)

// Detector finds labelled objects in an image.
type Detector interface {
	Detect(img image.Image) ([]Detection, error)
}

// NopDetector never finds anything. Used when no model is configured.
type NopDetector struct{}

func (NopDetector) Detect(image.Image) ([]Detection, error) { return nil, nil }

// wireDetection is one element of the detector's JSON reply.
type wireDetection struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box"` // x1, y1, x2, y2
}

// ExecDetector talks to a long-running model process. For every frame it
// writes one line holding a base64 JPEG to the process's stdin and reads
// one line of JSON from its stdout:
//
//	[{"label":"person","confidence":0.91,"box":[x1,y1,x2,y2]}]
type ExecDetector struct {
	cmd     *exec.Cmd
	timeout time.Duration

	mu   sync.Mutex // one request at a time
	in   io.WriteCloser
	out  io.ReadCloser
	r    *bufio.Reader
	dead error

	stopOnce sync.Once
	done     chan struct{}
	waitOnce sync.Once
}

// ErrDetectorStopped is returned by Detect once the detector has been
// closed or has been killed for not answering.
var ErrDetectorStopped = errors.New("vision: detector stopped")

// StartExecDetector starts the model process. A request that gets no reply
// within timeout kills the process; later frames are shown without boxes.
func StartExecDetector(command []string, timeout time.Duration) (*ExecDetector, error) {
	if len(command) == 0 {
		return nil, errors.New("vision: empty detector command")
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stderr = log.Writer()
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("vision: detector stdin pipe: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("vision: detector stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("vision: start detector %q: %w", command[0], err)
	}
	log.Printf("vision: detector started: %s", command[0])

	d := newExecDetector(in, out, timeout)
	d.cmd = cmd
	return d, nil
}

func newExecDetector(in io.WriteCloser, out io.ReadCloser, timeout time.Duration) *ExecDetector {
	return &ExecDetector{
		timeout: timeout,
		in:      in,
		out:     out,
		r:       bufio.NewReaderSize(out, 64*1024),
		done:    make(chan struct{}),
	}
}

type detectReply struct {
	line []byte
	err  error
}

func (d *ExecDetector) Detect(img image.Image) ([]Detection, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("vision: encode frame: %w", err)
	}

	req := make([]byte, base64.StdEncoding.EncodedLen(buf.Len())+1)
	base64.StdEncoding.Encode(req, buf.Bytes())
	req[len(req)-1] = '\n'

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dead != nil {
		return nil, d.dead
	}

	// The exchange runs on its own goroutine; stop unblocks it by closing
	// both pipes.
	replies := make(chan detectReply, 1)
	go func() {
		if _, err := d.in.Write(req); err != nil {
			replies <- detectReply{err: fmt.Errorf("vision: write to detector: %w", err)}
			return
		}
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			err = fmt.Errorf("vision: read from detector: %w", err)
		}
		replies <- detectReply{line: line, err: err}
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case rep := <-replies:
		if rep.err != nil {
			select {
			case <-d.done:
				// The pipes were closed under us.
				d.dead = ErrDetectorStopped
				return nil, d.dead
			default:
			}
			return nil, rep.err
		}
		return decodeDetections(rep.line)
	case <-timer.C:
		log.Printf("vision: detector gave no reply within %v, stopping it", d.timeout)
		d.dead = fmt.Errorf("%w: no reply within %v", ErrDetectorStopped, d.timeout)
		d.stop()
		return nil, d.dead
	case <-d.done:
		d.dead = ErrDetectorStopped
		return nil, d.dead
	}
}

func decodeDetections(line []byte) ([]Detection, error) {
	var wire []wireDetection
	if err := json.Unmarshal(bytes.TrimSpace(line), &wire); err != nil {
		return nil, fmt.Errorf("vision: detector reply: %w", err)
	}

	out := make([]Detection, 0, len(wire))
	for _, w := range wire {
		if len(w.Box) != 4 {
			return nil, fmt.Errorf("vision: detector box has %d values, want 4", len(w.Box))
		}
		out = append(out, Detection{
			Box:        image.Rect(int(w.Box[0]), int(w.Box[1]), int(w.Box[2]), int(w.Box[3])),
			Label:      w.Label,
			Confidence: w.Confidence,
		})
	}
	return out, nil
}

// stop kills the process and closes both pipes. It does not wait for a
// request in flight.
func (d *ExecDetector) stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		if d.cmd != nil && d.cmd.Process != nil {
			_ = d.cmd.Process.Kill()
		}
		_ = d.in.Close()
		_ = d.out.Close()
	})
}

// Close ends the model process. A Detect waiting for a reply returns
// ErrDetectorStopped.
func (d *ExecDetector) Close() error {
	d.stop()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd != nil {
		d.waitOnce.Do(func() {
			// Killed on purpose; the exit status is not interesting.
			_ = d.cmd.Wait()
			log.Printf("vision: detector stopped")
		})
	}
	return nil
}
