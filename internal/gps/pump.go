package gps

import (
	"bufio"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

// NMEA sentences are at most 82 characters; anything much longer is noise.
const maxLineLen = 1024

// idleWait is how long the read loop sleeps after a read that returned no
// data, so an exhausted or timed-out source does not spin.
const idleWait = 10 * time.Millisecond

// LineSource yields text lines from a receiver.
type LineSource interface {
	// ReadLine waits up to timeout for the next line.
	ReadLine(timeout time.Duration) (string, bool)
	// Buffered is the number of lines ready without waiting.
	Buffered() int
}

// Pump reads lines from a byte stream in the background and keeps the most
// recent ones. When the ring is full the oldest line is dropped so a slow
// consumer always sees fresh data.
type Pump struct {
	src io.ReadCloser

	mu      sync.Mutex
	lines   []string
	cap     int
	dropped uint64
	err     error

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewPump starts reading src. capacity is the number of lines kept.
func NewPump(src io.ReadCloser, capacity int) *Pump {
	if capacity < 1 {
		capacity = 1
	}
	p := &Pump{
		src:    src,
		cap:    capacity,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Pump) run() {
	defer p.wg.Done()

	reader := bufio.NewReader(p.src)
	var partial strings.Builder

	for {
		select {
		case <-p.done:
			return
		default:
		}

		chunk, err := reader.ReadString('\n')
		if partial.Len()+len(chunk) > maxLineLen {
			// Garbage without newlines; start over.
			partial.Reset()
			chunk = ""
		}
		partial.WriteString(chunk)

		if err != nil {
			if errors.Is(err, io.EOF) {
				// Timed-out read on the serial port, or the end of a
				// finite stream. Keep any partial line for the next read.
				select {
				case <-p.done:
					return
				case <-time.After(idleWait):
				}
				continue
			}
			select {
			case <-p.done:
				// Read failed because Close released the port.
			default:
				log.Printf("gps: read stopped: %v", err)
				p.setErr(err)
			}
			return
		}

		line := strings.TrimSpace(partial.String())
		partial.Reset()
		if line == "" {
			continue
		}
		p.push(line)
	}
}

func (p *Pump) push(line string) {
	p.mu.Lock()
	if len(p.lines) >= p.cap {
		p.lines = p.lines[1:]
		p.dropped++
	}
	p.lines = append(p.lines, line)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Pump) pop() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.lines) == 0 {
		return "", false
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, true
}

func (p *Pump) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// ReadLine returns the oldest buffered line, waiting up to timeout for one
// to arrive.
func (p *Pump) ReadLine(timeout time.Duration) (string, bool) {
	if line, ok := p.pop(); ok {
		return line, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-p.notify:
			if line, ok := p.pop(); ok {
				return line, true
			}
		case <-timer.C:
			return "", false
		case <-p.done:
			return "", false
		}
	}
}

// Wait blocks until a line is buffered, timeout passes or the pump is
// closed. It reports whether a line is ready.
func (p *Pump) Wait(timeout time.Duration) bool {
	if p.Buffered() > 0 {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-p.notify:
			if p.Buffered() > 0 {
				return true
			}
		case <-timer.C:
			return p.Buffered() > 0
		case <-p.done:
			return false
		}
	}
}

func (p *Pump) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lines)
}

// Dropped is the number of lines discarded because the ring was full.
func (p *Pump) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Err returns the error that stopped the read loop, if any.
func (p *Pump) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Close stops the read loop and closes the underlying stream. It returns
// once the loop has exited.
func (p *Pump) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		err = p.src.Close()
		p.wg.Wait()
	})
	return err
}
