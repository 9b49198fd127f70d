package tropic

import "time"

// Port is the transport contract the L1 framer drives. Implementations
// wrap a raw SPI bus (chip-select plus full-duplex transfer) or a
// USB/TCP bridge that emulates the same five operations. The port is
// stateless from the driver's point of view: all retry and timeout
// policy lives in L1.
type Port interface {
	// CsnLow asserts chip-select.
	CsnLow() error
	// CsnHigh deasserts chip-select.
	CsnHigh() error
	// Transfer performs a full-duplex SPI exchange: buf is transmitted
	// and simultaneously overwritten with the bytes clocked in, bounded
	// by timeout.
	Transfer(buf []byte, timeout time.Duration) error
	// Delay blocks the calling goroutine for d, used for the chip's
	// command-execution and reboot-settle delays.
	Delay(d time.Duration) error
	// WaitInt blocks until the device's READY GPIO asserts or timeout
	// elapses. Implementations that lack an INT pin report
	// ErrIntUnsupported and L1 falls back to polling GET_RESPONSE.
	WaitInt(timeout time.Duration) error
}

// ErrIntUnsupported is returned by a [Port.WaitInt] implementation that has
// no INT pin wired up, signalling L1 to use status polling instead.
var ErrIntUnsupported = &portErr{"wait_int not supported by this port"}

type portErr struct{ s string }

func (e *portErr) Error() string { return e.s }
