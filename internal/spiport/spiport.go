// Package spiport implements tropic.Port over a real SPI bus and two GPIO
// pins (chip-select and an optional READY/INT line), using periph.io.
package spiport

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/quaylabs/tropicdrv/pkg/tropic"
)

// Port drives the device over a SPI bus. CsnLow/CsnHigh are implemented
// directly against the chip-select GPIO pin rather than delegated to the
// SPI port's own per-transfer chip-select, since L1 holds CS low across
// the separate header and body transfers of a response read, which are
// two spi.Conn.Tx calls.
type Port struct {
	conn  spi.Conn
	csn   gpio.PinIO
	ready gpio.PinIn // nil if the READY/INT line is not wired
	closeFn func() error
}

// Config selects the SPI bus and GPIO pins to use.
type Config struct {
	// BusName is a periph.io SPI bus spec, e.g. "/dev/spidev0.0" or "".
	BusName string
	// Speed is the SPI clock rate.
	Speed physic.Frequency
	// Mode is the SPI clock polarity/phase mode (0-3).
	Mode spi.Mode
	// CsnPin is the chip-select GPIO pin name, e.g. "GPIO8".
	CsnPin string
	// ReadyPin is the optional READY/INT GPIO pin name. Leave empty if
	// the device's READY line is not wired to the host.
	ReadyPin string
}

// Open initialises the periph.io host drivers, opens the configured SPI
// bus and GPIO pins, and returns a ready-to-use Port.
func Open(cfg Config) (*Port, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spiport: host init: %w", err)
	}

	busCloser, err := spireg.Open(cfg.BusName)
	if err != nil {
		return nil, fmt.Errorf("spiport: open bus: %w", err)
	}
	conn, err := busCloser.Connect(cfg.Speed, cfg.Mode, 8)
	if err != nil {
		busCloser.Close()
		return nil, fmt.Errorf("spiport: connect: %w", err)
	}

	csn := gpioreg.ByName(cfg.CsnPin)
	if csn == nil {
		busCloser.Close()
		return nil, fmt.Errorf("spiport: csn pin %q not found", cfg.CsnPin)
	}
	if err := csn.Out(gpio.High); err != nil {
		busCloser.Close()
		return nil, fmt.Errorf("spiport: csn init: %w", err)
	}

	var ready gpio.PinIn
	if cfg.ReadyPin != "" {
		p := gpioreg.ByName(cfg.ReadyPin)
		if p == nil {
			busCloser.Close()
			return nil, fmt.Errorf("spiport: ready pin %q not found", cfg.ReadyPin)
		}
		if in, ok := p.(gpio.PinIn); ok {
			if err := in.In(gpio.PullUp, gpio.FallingEdge); err != nil {
				busCloser.Close()
				return nil, fmt.Errorf("spiport: ready pin config: %w", err)
			}
			ready = in
		}
	}

	return &Port{conn: conn, csn: csn, ready: ready, closeFn: busCloser.Close}, nil
}

// Close releases the underlying SPI bus.
func (p *Port) Close() error {
	if p.closeFn == nil {
		return nil
	}
	return p.closeFn()
}

func (p *Port) CsnLow() error {
	return p.csn.Out(gpio.Low)
}

func (p *Port) CsnHigh() error {
	return p.csn.Out(gpio.High)
}

func (p *Port) Transfer(buf []byte, timeout time.Duration) error {
	return p.conn.Tx(buf, buf)
}

func (p *Port) Delay(d time.Duration) error {
	time.Sleep(d)
	return nil
}

func (p *Port) WaitInt(timeout time.Duration) error {
	if p.ready == nil {
		return tropic.ErrIntUnsupported
	}
	if !p.ready.WaitForEdge(timeout) {
		return fmt.Errorf("spiport: wait_int timed out")
	}
	return nil
}
