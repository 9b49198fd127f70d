package tropic

import (
	"log/slog"
	"time"
)

// lifecycleState tracks the handle's UNINIT/READY/SESSION state machine.
// SESSION is derived from l3State.status rather than duplicated here;
// lifecycleState only distinguishes UNINIT (before Init/after Deinit)
// from everything else, since every other gate is already enforced by
// l3Send/l3Recv checking session status directly.
type lifecycleState int

const (
	lifecycleUninit lifecycleState = iota
	lifecycleReady
)

// FirmwareUpdateVariant selects which silicon variant's chunking model
// the firmware-update façade follows: ABAB (the host drives chunking) or
// ACAB (the device drives chunking and the host streams the whole
// image). Both variants share the same L2 framer; only
// [Handle.FirmwareUpdate] branches on it. Selected at construction time
// to match the silicon revision being driven.
type FirmwareUpdateVariant int

const (
	FirmwareVariantABAB FirmwareUpdateVariant = iota
	FirmwareVariantACAB
)

// RebootTarget is the mode a reboot request asks the device to land in.
type RebootTarget byte

const (
	RebootToApplication RebootTarget = 0x00
	RebootToMaintenance RebootTarget = 0x01
)

// Handle is the single-owner driver handle: one L2 sub-state, one L3
// sub-state, a borrowed crypto provider and port. It is not safe for
// concurrent use; callers sharing a device across goroutines must
// provide external mutual exclusion.
type Handle struct {
	l1 *l1State
	l3 *l3State

	state     lifecycleState
	fwVariant FirmwareUpdateVariant
	timeout   time.Duration
}

// Option configures a [Handle] at construction time.
type Option func(*Handle)

// WithCryptoProvider overrides the default AES-256-GCM/X25519/SHA-256
// provider, primarily for tests that need deterministic randomness or
// fault injection.
func WithCryptoProvider(cp CryptoProvider) Option {
	return func(h *Handle) { h.l3.crypto = cp }
}

// WithL3BufferLen sets the L3 command buffer capacity. It must be large
// enough to hold the largest command or response this driver will carry
// plus the 18-byte size+tag overhead; the default matches l2MaxBody.
func WithL3BufferLen(n int) Option {
	return func(h *Handle) {
		h.l3.buff = make([]byte, n)
		h.l3.buffLen = n
	}
}

// WithFirmwareUpdateVariant selects the ABAB/ACAB chunking model used by
// [Handle.FirmwareUpdate].
func WithFirmwareUpdateVariant(v FirmwareUpdateVariant) Option {
	return func(h *Handle) { h.fwVariant = v }
}

// WithTimeout overrides the per-transfer port timeout (default 200ms, the
// chip's documented worst-case command execution time plus margin).
func WithTimeout(d time.Duration) Option {
	return func(h *Handle) { h.timeout = d }
}

// NewHandle allocates a [Handle] bound to port. The handle is not usable
// until [Handle.Init] succeeds.
func NewHandle(port Port, opts ...Option) *Handle {
	h := &Handle{
		l1:        newL1State(port),
		l3:        newL3State(DefaultCrypto{}, l2MaxBody),
		state:     lifecycleUninit,
		fwVariant: FirmwareVariantACAB,
		timeout:   l1TimeoutDefault,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Init transitions UNINIT -> READY. It must be called exactly once
// before any other operation and may not be called again without an
// intervening Deinit.
func (h *Handle) Init() error {
	if h.state != lifecycleUninit {
		return newErr("init", KindParam, TagParamErr, nil)
	}
	if h.l3.buffLen < 18 {
		return newErr("init", KindParam, TagL3BufferTooSmall, nil)
	}
	h.l3.status = sessionOff
	h.l1.startupReqSent = false
	h.state = lifecycleReady
	return nil
}

// Deinit invalidates any active session and transitions to UNINIT. No
// command may run on this handle afterward without a fresh Init.
func (h *Handle) Deinit() error {
	if h.state == lifecycleUninit {
		return nil
	}
	h.l3.invalidate()
	h.state = lifecycleUninit
	return nil
}

func (h *Handle) requireReady(op string) error {
	if h.state != lifecycleReady {
		return newErr(op, KindParam, TagParamErr, nil)
	}
	return nil
}

// SessionActive reports whether the L3 secure session is currently
// established.
func (h *Handle) SessionActive() bool {
	return h.l3.status == sessionOn
}

// NonceState returns the current nonce_cmd/nonce_res counters, primarily
// for tests asserting nonce monotonicity.
func (h *Handle) NonceState() (nonceCmd, nonceRes uint32) {
	return h.l3.nonceCmd, h.l3.nonceRes
}

// Mode polls the device's chip-status bits and reports its current
// operating mode (application or maintenance/bootloader) without reading
// an L2 response frame. A device in alarm mode is reported as ModeAlarm
// alongside a TagL1ChipAlarmMode error, so callers that only check the
// error fail fast.
func (h *Handle) Mode() (Mode, error) {
	if err := h.requireReady("get_tr01_mode"); err != nil {
		return 0, err
	}
	return h.l1.mode(h.timeout)
}

// SessionStart runs the triangle-DH handshake against pairing-key slot
// and installs the resulting session keys. stPub is the device's static
// public key (extracted by the caller from its certificate store);
// shiPriv/shiPub are the host's long-term pairing keypair for slot.
func (h *Handle) SessionStart(stPub [32]byte, slot PairingKeySlot, shiPriv, shiPub [32]byte) error {
	if err := h.requireReady("session_start"); err != nil {
		return err
	}
	slog.Debug("session_start", "slot", slot)
	if err := sessionStart(h, stPub, slot, shiPriv, shiPub, h.timeout); err != nil {
		slog.Error("command failed", "op", "session_start", "err", err)
		return err
	}
	return nil
}

// SessionAbort tells the device to tear down the secure session and
// invalidates the host's session state regardless of the device's
// response.
func (h *Handle) SessionAbort() error {
	if err := h.requireReady("session_abort"); err != nil {
		return err
	}
	h.l3.invalidate()

	if err := h.l1.l2Send(l2ReqEncryptedSessionAbt, nil, h.timeout); err != nil {
		return err
	}
	_, err := h.l1.l2Receive(h.timeout)
	return err
}

// Reboot sends a STARTUP request asking the device to land in target
// mode, then re-polls its mode. A mismatch between the requested and
// observed mode is reported as TagRebootUnsuccessful. The host
// transitions to READY unconditionally, since the session (if any) does
// not survive a device reboot.
func (h *Handle) Reboot(target RebootTarget) error {
	if err := h.requireReady("reboot"); err != nil {
		return err
	}
	slog.Debug("reboot", "target", target)
	h.l3.invalidate()

	if err := h.l1.l2Send(l2ReqStartup, []byte{byte(target)}, h.timeout); err != nil {
		return err
	}
	h.l1.startupReqSent = true
	if _, err := h.l1.l2Receive(h.timeout); err != nil {
		if e, ok := err.(*Error); !ok || e.Tag != TagL1MaintenanceMode {
			return err
		}
	}

	mode, err := h.l1.mode(h.timeout)
	if err != nil {
		return err
	}
	wantMaintenance := target == RebootToMaintenance
	gotMaintenance := mode == ModeMaintenance
	if wantMaintenance != gotMaintenance {
		return newErr("reboot", KindL1, TagRebootUnsuccessful, nil)
	}
	return nil
}

// Sleep sends the unauthenticated SLEEP request. It does not touch
// session state or nonces.
func (h *Handle) Sleep() error {
	if err := h.requireReady("sleep"); err != nil {
		return err
	}
	if err := h.l1.l2Send(l2ReqSleep, nil, h.timeout); err != nil {
		return err
	}
	_, err := h.l1.l2Receive(h.timeout)
	return err
}
