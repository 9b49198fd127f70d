package tropic

import "time"

// L1 opcodes, bit-exact with the wire protocol.
const (
	opGetResponse byte = 0xAA
	opL2ReqData   byte = 0x01
)

// Chip-status bits returned as the single byte following opGetResponse.
const (
	chipStatusReady   byte = 1 << 0
	chipStatusAlarm   byte = 1 << 1
	chipStatusStartup byte = 1 << 2
)

const (
	l1TimeoutDefault   = 200 * time.Millisecond
	l1ReadMaxTries     = 40
	l1ReadRetryDelay   = 10 * time.Millisecond
	l1RebootSettleWait = 500 * time.Millisecond
	l1MaxAlarmLogBytes = 255
)

// l1State is the bus-framing sub-state owned by a [Handle]: the single
// frame buffer shared by every L2 request/response, a flag that relaxes
// status polling right after a reboot request, and the borrowed port.
type l1State struct {
	port Port
	buff []byte
	// startupReqSent is set after a request that is expected to cause
	// the device to reboot (STARTUP), so the next poll waits out a
	// reboot-settle delay before the normal retry budget begins.
	startupReqSent bool
}

func newL1State(port Port) *l1State {
	// Sized for the larger of the two directions: an outbound opcode plus
	// the largest L2 request frame, and an inbound response whose length
	// byte may claim up to 255 body bytes.
	return &l1State{port: port, buff: make([]byte, 1+2+255+2)}
}

// l1Write transmits an L2 frame: it prefixes the opL2ReqData opcode and
// clocks the whole frame out in one chip-select window.
func (l *l1State) l1Write(frame []byte, timeout time.Duration) error {
	if len(frame) > len(l.buff)-1 {
		return newErr("l1_write", KindParam, TagParamErr, nil)
	}
	buf := l.buff[:1+len(frame)]
	buf[0] = opL2ReqData
	copy(buf[1:], frame)

	if err := l.port.CsnLow(); err != nil {
		return newErr("l1_write", KindL1, TagL1SPIError, err)
	}
	defer l.port.CsnHigh()

	if err := l.port.Transfer(buf, timeout); err != nil {
		return newErr("l1_write", KindL1, TagL1SPIError, err)
	}
	return nil
}

// chipStatus polls GET_RESPONSE once and returns the raw status byte.
func (l *l1State) chipStatus(timeout time.Duration) (byte, error) {
	buf := []byte{opGetResponse, 0x00}
	if err := l.port.CsnLow(); err != nil {
		return 0, newErr("chip_status", KindL1, TagL1SPIError, err)
	}
	defer l.port.CsnHigh()

	if err := l.port.Transfer(buf, timeout); err != nil {
		return 0, newErr("chip_status", KindL1, TagL1SPIError, err)
	}
	return buf[1], nil
}

// l1ReadResponse polls chip status until READY (honouring the retry
// budget and the post-reboot settle delay), then reads the L2 response
// frame: status(1) len(1) body(len) crc(2). It returns the frame minus
// the L1 opcode byte, i.e. exactly what l2Receive expects to CRC-check.
func (l *l1State) l1ReadResponse(timeout time.Duration) ([]byte, error) {
	if l.startupReqSent {
		if err := l.port.Delay(l1RebootSettleWait); err != nil {
			return nil, newErr("l1_read", KindL1, TagL1SPIError, err)
		}
		l.startupReqSent = false
	}

	tries := l1ReadMaxTries
	for {
		status, err := l.chipStatus(timeout)
		if err != nil {
			return nil, err
		}

		if status&chipStatusAlarm != 0 {
			l.drainAlarmLog(timeout)
			return nil, newErr("l1_read", KindL1, TagL1ChipAlarmMode, nil)
		}

		if status&chipStatusReady != 0 {
			return l.readFrameBody(status, timeout)
		}

		tries--
		if tries <= 0 {
			return nil, newErr("l1_read", KindL1, TagL1ChipBusy, nil)
		}
		// Prefer blocking on the READY/INT line when the port has one
		// wired; otherwise fall back to sleep-and-repoll.
		switch err := l.port.WaitInt(timeout); err {
		case nil:
		case ErrIntUnsupported:
			if derr := l.port.Delay(l1ReadRetryDelay); derr != nil {
				return nil, newErr("l1_read", KindL1, TagL1SPIError, derr)
			}
		default:
			return nil, newErr("l1_read", KindL1, TagL1IntTimeout, err)
		}
	}
}

// readFrameBody clocks out header(2) then body+crc once the chip has
// reported READY, inside one chip-select window. The frame is staged in
// the shared L2 buffer and returned as a copy, so the buffer can be
// reused by the next transaction while callers still hold the frame.
func (l *l1State) readFrameBody(chipStatus byte, timeout time.Duration) ([]byte, error) {
	if err := l.port.CsnLow(); err != nil {
		return nil, newErr("l1_read", KindL1, TagL1SPIError, err)
	}
	defer l.port.CsnHigh()

	header := l.buff[:2]
	if err := l.port.Transfer(header, timeout); err != nil {
		return nil, newErr("l1_read", KindL1, TagL1SPIError, err)
	}
	rspLen := int(header[1])

	rest := l.buff[2 : 2+rspLen+2] // body + crc
	if err := l.port.Transfer(rest, timeout); err != nil {
		return nil, newErr("l1_read", KindL1, TagL1SPIError, err)
	}

	frame := append([]byte(nil), l.buff[:2+rspLen+2]...)

	if chipStatus&chipStatusStartup != 0 {
		return frame, newErr("l1_read", KindL1, TagL1MaintenanceMode, nil)
	}
	return frame, nil
}

// drainAlarmLog reads and discards a bounded alarm log after an ALARM
// chip-status bit, best-effort: failures here do not change the caller's
// CHIP_ALARM_MODE result.
func (l *l1State) drainAlarmLog(timeout time.Duration) {
	buf := make([]byte, l1MaxAlarmLogBytes)
	_ = l.port.CsnLow()
	defer l.port.CsnHigh()
	_ = l.port.Transfer(buf, timeout)
}

// mode reports the device's current operating mode by polling chip
// status without attempting to read an L2 response frame; used by
// [Handle.Mode] and by reboot mode verification.
func (l *l1State) mode(timeout time.Duration) (Mode, error) {
	tries := l1ReadMaxTries
	for {
		status, err := l.chipStatus(timeout)
		if err != nil {
			return 0, err
		}
		if status&chipStatusAlarm != 0 {
			l.drainAlarmLog(timeout)
			return ModeAlarm, newErr("mode", KindL1, TagL1ChipAlarmMode, nil)
		}
		if status&chipStatusReady != 0 {
			if status&chipStatusStartup != 0 {
				return ModeMaintenance, nil
			}
			return ModeApplication, nil
		}
		tries--
		if tries <= 0 {
			return 0, newErr("mode", KindL1, TagL1ChipBusy, nil)
		}
		if err := l.port.Delay(l1ReadRetryDelay); err != nil {
			return 0, newErr("mode", KindL1, TagL1SPIError, err)
		}
	}
}

// Mode is the device's reported operating mode.
type Mode int

const (
	ModeApplication Mode = iota
	ModeMaintenance
	ModeAlarm
)

func (m Mode) String() string {
	switch m {
	case ModeApplication:
		return "application"
	case ModeMaintenance:
		return "maintenance"
	case ModeAlarm:
		return "alarm"
	default:
		return "unknown"
	}
}
