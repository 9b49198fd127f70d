// Package serialport implements tropic.Port over a USB/TCP serial bridge,
// for devices that expose the bus through a bridge microcontroller
// instead of direct SPI wiring.
package serialport

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/quaylabs/tropicdrv/pkg/tropic"
)

// Port drives the device through a serial/USB bridge. The bridge
// firmware owns chip-select internally, so CsnLow/CsnHigh are no-ops;
// Transfer writes the outbound buffer and reads back exactly len(buf)
// bytes, matching the bridge's fixed-size full-duplex framing.
type Port struct {
	dev io.ReadWriteCloser
}

// Open opens the named serial device (e.g. "/dev/ttyUSB0" or "COM3") at
// the bridge's fixed baud rate.
func Open(name string) (*Port, error) {
	if name == "" {
		return nil, fmt.Errorf("serialport: no device specified")
	}
	cfg := &serial.Config{Name: name, Baud: 115200, ReadTimeout: time.Second}
	s, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", name, err)
	}
	return &Port{dev: s}, nil
}

// Close releases the underlying serial device.
func (p *Port) Close() error {
	return p.dev.Close()
}

func (p *Port) CsnLow() error  { return nil }
func (p *Port) CsnHigh() error { return nil }

func (p *Port) Transfer(buf []byte, timeout time.Duration) error {
	if _, err := p.dev.Write(buf); err != nil {
		return fmt.Errorf("serialport: write: %w", err)
	}
	if _, err := io.ReadFull(p.dev, buf); err != nil {
		return fmt.Errorf("serialport: read: %w", err)
	}
	return nil
}

func (p *Port) Delay(d time.Duration) error {
	time.Sleep(d)
	return nil
}

func (p *Port) WaitInt(timeout time.Duration) error {
	return tropic.ErrIntUnsupported
}
