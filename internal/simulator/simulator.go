// Package simulator implements an in-memory fake device satisfying
// tropic.Port end to end: L1 chip-status polling, L2 framing and CRC,
// and the L3/handshake cryptography, so pkg/tropic can be exercised
// without real hardware.
package simulator

import (
	"time"

	"github.com/quaylabs/tropicdrv/pkg/tropic"
)

// Wire-level constants, bit-exact with the protocol; duplicated here
// rather than imported since they are unexported internals of pkg/tropic.
const (
	opGetResponse byte = 0xAA
	opL2ReqData   byte = 0x01

	chipStatusReady   byte = 1 << 0
	chipStatusAlarm   byte = 1 << 1
	chipStatusStartup byte = 1 << 2

	l2ReqGetInfo             byte = 0x01
	l2ReqHandshake           byte = 0x02
	l2ReqEncryptedCmd        byte = 0x04
	l2ReqSleep               byte = 0x05
	l2ReqEncryptedSessionAbt byte = 0x08
	l2ReqGetLog              byte = 0xA2
	l2ReqStartup             byte = 0xB3
	l2ReqMutableFwUpdate     byte = 0xB0

	l2StatusOK         byte = 0x01
	l2StatusReqCont    byte = 0x02
	l2StatusResCont    byte = 0x03
	l2StatusHskErr     byte = 0x79
	l2StatusNoSession  byte = 0x7A
	l2StatusCRCErr     byte = 0x7C

	resultOK           byte = 0xC3
	resultFail         byte = 0x3C
	resultSlotEmpty    byte = 0x12

	protocolName = "Noise_KK1_25519_AESGCM_SHA256"

	infoChunkSize     = 128
	fwChunkDataSize   = 250 // mirrors pkg/tropic's firmwareChunkSize
)

type expectKind int

const (
	expectCommand expectKind = iota
	expectHeader
	expectBody
	expectDrain
)

// eccKeyEntry is one on-device generated or imported ECC key pair.
type eccKeyEntry struct {
	curve tropic.EccCurve
	priv  [32]byte
	pub   []byte
}

// Simulator is a fake TROPIC-style secure element. It is safe to drive
// from a single goroutine at a time, matching the single-owner Handle it
// stands in for.
type Simulator struct {
	crypto tropic.CryptoProvider

	expect      expectKind
	pendingResp []byte // status(1) len(1) body(len) crc(2)
	respCursor  int

	alarmMode   bool
	maintenance bool

	forceBadHandshakeTag    bool
	corruptNextResponseTag  bool

	stPriv [32]byte
	stPub  [32]byte

	sessionOn bool
	kCmd      [32]byte
	kRes      [32]byte
	nonceCmd  uint32
	nonceRes  uint32

	pairingKeys [4]*[32]byte
	rConfig     map[uint16]uint32
	iConfig     map[uint16]uint32
	rMem        [512][]byte
	eccKeys     [128]*eccKeyEntry
	mcounters   [16]*uint32

	certStore []byte
	chipID    []byte
	fwBank    []byte
	fwImage   []byte
}

var _ tropic.Port = (*Simulator)(nil)

// New creates a Simulator whose device static keypair is (stPriv, stPub).
// Use [tropic.DefaultCrypto] plus RandomBytes/X25519Base to generate a
// fresh pair for a test, or a fixed pair for reproducible tests.
func New(stPriv, stPub [32]byte) *Simulator {
	return &Simulator{
		crypto:  tropic.DefaultCrypto{},
		stPriv:  stPriv,
		stPub:   stPub,
		rConfig: make(map[uint16]uint32),
		iConfig: make(map[uint16]uint32),
		chipID:  []byte("TROPIC-SIM-CHIP-ID-0001"),
		fwBank:  []byte("fwbank-sim-v1"),
	}
}

// StaticPublicKey returns the device's static public key, the value a
// real caller would extract from the certificate store.
func (s *Simulator) StaticPublicKey() [32]byte { return s.stPub }

// SetAlarmMode flips the simulated ALARM chip-status bit.
func (s *Simulator) SetAlarmMode(v bool) { s.alarmMode = v }

// ForceBadHandshakeTag makes the next handshake respond with a corrupted
// T_auth, for exercising key-confirmation failure.
func (s *Simulator) ForceBadHandshakeTag(v bool) { s.forceBadHandshakeTag = v }

// CorruptNextResponseTag inverts the last byte of the next L3 response's
// AEAD tag,
// for exercising session invalidation on tag failure.
func (s *Simulator) CorruptNextResponseTag() { s.corruptNextResponseTag = true }

// ProvisionPairingKey preloads slot with a host public key, standing in
// for a prior PairingKeyWrite call during test setup.
func (s *Simulator) ProvisionPairingKey(slot tropic.PairingKeySlot, pub [32]byte) {
	k := pub
	s.pairingKeys[slot] = &k
}

// SetCertStore installs the raw certificate-store object GET_INFO(X509)
// will return, including its 4-byte-per-certificate length header.
func (s *Simulator) SetCertStore(blob []byte) { s.certStore = blob }

// SessionOn reports whether the simulated device currently considers its
// L3 session established, for test assertions mirroring the host side.
func (s *Simulator) SessionOn() bool { return s.sessionOn }

func (s *Simulator) statusByte() byte {
	var b byte
	if !s.alarmMode {
		b |= chipStatusReady
	} else {
		b |= chipStatusAlarm
	}
	if s.maintenance {
		b |= chipStatusStartup
	}
	return b
}

func (s *Simulator) CsnLow() error  { return nil }
func (s *Simulator) CsnHigh() error { return nil }
func (s *Simulator) Delay(d time.Duration) error { return nil }
func (s *Simulator) WaitInt(timeout time.Duration) error { return tropic.ErrIntUnsupported }

// Transfer is the single dispatch point driving the whole fake device:
// it interprets each call according to s.expect, which tracks where in
// the GET_RESPONSE / header / body sequence the host currently is.
func (s *Simulator) Transfer(buf []byte, timeout time.Duration) error {
	switch s.expect {
	case expectHeader:
		copy(buf, s.pendingResp[:2])
		s.expect = expectBody
		return nil
	case expectBody:
		copy(buf, s.pendingResp[s.respCursor:])
		s.pendingResp = nil
		s.expect = expectCommand
		return nil
	case expectDrain:
		for i := range buf {
			buf[i] = 0
		}
		s.expect = expectCommand
		return nil
	}

	if len(buf) >= 1 && buf[0] == opGetResponse {
		status := s.statusByte()
		buf[1] = status
		switch {
		case status&chipStatusAlarm != 0:
			s.expect = expectDrain
		case status&chipStatusReady != 0 && s.pendingResp != nil:
			s.respCursor = 2
			s.expect = expectHeader
		}
		return nil
	}

	if len(buf) >= 1 && buf[0] == opL2ReqData {
		s.handleL2Frame(buf[1:])
		s.expect = expectCommand
		return nil
	}

	return nil
}

func (s *Simulator) setResponse(status byte, payload []byte) {
	frame := make([]byte, 0, 4+len(payload))
	frame = append(frame, status, byte(len(payload)))
	frame = append(frame, payload...)
	frame = appendCRC(frame)
	s.pendingResp = frame
}

func (s *Simulator) handleL2Frame(frame []byte) {
	body, ok := verifyCRC(frame)
	if !ok {
		s.setResponse(l2StatusCRCErr, nil)
		return
	}
	if len(body) < 2 {
		return
	}
	reqID := body[0]
	reqLen := int(body[1])
	payload := body[2 : 2+reqLen]

	switch reqID {
	case l2ReqGetInfo:
		s.handleGetInfo(payload)
	case l2ReqHandshake:
		s.handleHandshake(payload)
	case l2ReqEncryptedCmd:
		s.handleEncryptedCmd(payload)
	case l2ReqSleep:
		s.setResponse(l2StatusOK, nil)
	case l2ReqEncryptedSessionAbt:
		s.invalidateSession()
		s.setResponse(l2StatusOK, nil)
	case l2ReqGetLog:
		s.setResponse(l2StatusOK, []byte("no alarms logged"))
	case l2ReqStartup:
		s.maintenance = false // the simulator always lands back in application mode
		s.setResponse(l2StatusOK, nil)
	case l2ReqMutableFwUpdate:
		s.handleFwUpdate(payload)
	default:
		s.setResponse(0x7E, nil)
	}
}

func (s *Simulator) handleGetInfo(payload []byte) {
	if len(payload) < 2 {
		s.setResponse(l2StatusOK, nil)
		return
	}
	objID := payload[0]
	block := int(payload[1])

	var obj []byte
	switch objID {
	case 0x00:
		obj = s.certStore
	case 0x01:
		obj = s.chipID
	case 0xB0:
		obj = s.fwBank
	default:
		obj = nil
	}

	start := block * infoChunkSize
	if start >= len(obj) {
		s.setResponse(l2StatusOK, nil)
		return
	}
	end := start + infoChunkSize
	if end >= len(obj) {
		end = len(obj)
		s.setResponse(l2StatusOK, obj[start:end])
		return
	}
	s.setResponse(l2StatusResCont, obj[start:end])
}

// handleFwUpdate only models the ACAB (device-driven chunking) wire
// shape: bank(1) followed by image data. ABAB frames, which carry an
// extra chunk-index byte, are not reassembled byte-accurately here.
func (s *Simulator) handleFwUpdate(payload []byte) {
	if len(payload) < 1 {
		s.setResponse(l2StatusOK, nil)
		return
	}
	data := payload[1:]
	s.fwImage = append(s.fwImage, data...)
	if len(data) < fwChunkDataSize {
		s.setResponse(l2StatusOK, nil)
		return
	}
	s.setResponse(l2StatusReqCont, nil)
}

// FirmwareImage returns the bytes accumulated across FirmwareUpdate
// calls, for test assertions.
func (s *Simulator) FirmwareImage() []byte { return s.fwImage }

func (s *Simulator) invalidateSession() {
	s.sessionOn = false
	var zero [32]byte
	s.kCmd, s.kRes = zero, zero
	s.nonceCmd, s.nonceRes = 0, 0
}
