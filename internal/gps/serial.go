package gps

import (
	"fmt"
	"log"

	serial "github.com/jacobsa/go-serial/serial"
	bugserial "go.bug.st/serial"
)

// SerialConfig describes the receiver's serial port.
type SerialConfig struct {
	Port       string
	BaudRate   int
	LineBuffer int // lines kept by the Pump
}

// OpenSerial opens the GPS serial port and starts pumping lines from it.
func OpenSerial(cfg SerialConfig) (*Pump, error) {
	serialOpts := serial.OpenOptions{
		PortName:   cfg.Port,
		BaudRate:   uint(cfg.BaudRate),
		DataBits:   8,
		StopBits:   1,
		ParityMode: serial.PARITY_NONE,
		// Timed reads (100 ms) so the pump notices Close promptly.
		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s at %d baud: %w", cfg.Port, cfg.BaudRate, err)
	}
	log.Printf("gps: serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	return NewPump(port, cfg.LineBuffer), nil
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := bugserial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
