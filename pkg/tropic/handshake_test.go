package tropic_test

import (
	"testing"

	"github.com/quaylabs/tropicdrv/internal/simulator"
	"github.com/quaylabs/tropicdrv/pkg/tropic"
)

// newPairedHandle builds a Handle and Simulator with a fresh device
// static keypair and a host pairing keypair already provisioned in slot
// 0, ready for SessionStart.
func newPairedHandle(t *testing.T) (*tropic.Handle, *simulator.Simulator, [32]byte, [32]byte) {
	t.Helper()
	crypto := tropic.DefaultCrypto{}

	var stPriv [32]byte
	if err := crypto.RandomBytes(stPriv[:]); err != nil {
		t.Fatalf("random stPriv: %v", err)
	}
	stPub, err := crypto.X25519Base(stPriv)
	if err != nil {
		t.Fatalf("x25519 base stPub: %v", err)
	}

	var shiPriv [32]byte
	if err := crypto.RandomBytes(shiPriv[:]); err != nil {
		t.Fatalf("random shiPriv: %v", err)
	}
	shiPub, err := crypto.X25519Base(shiPriv)
	if err != nil {
		t.Fatalf("x25519 base shiPub: %v", err)
	}

	sim := simulator.New(stPriv, stPub)
	sim.ProvisionPairingKey(tropic.PairingKeySlot0, shiPub)

	h := tropic.NewHandle(sim)
	if err := h.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return h, sim, shiPriv, shiPub
}

func mustSession(t *testing.T, h *tropic.Handle, sim *simulator.Simulator, shiPriv, shiPub [32]byte) {
	t.Helper()
	if err := h.SessionStart(sim.StaticPublicKey(), tropic.PairingKeySlot0, shiPriv, shiPub); err != nil {
		t.Fatalf("session_start: %v", err)
	}
}

// A fresh session installs matching keys on both sides: ping echoes its
// input back and both nonces land at 1.
func TestSessionStartAndPing(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	if !h.SessionActive() {
		t.Fatal("expected session active after session_start")
	}

	in := make([]byte, 16)
	for i := range in {
		in[i] = byte(i)
	}
	out, err := h.Ping(in)
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if string(out) != string(in) {
		t.Fatalf("ping echo mismatch: got %x want %x", out, in)
	}

	if cmd, res := h.NonceState(); cmd != 1 || res != 1 {
		t.Fatalf("expected nonce_cmd=nonce_res=1, got cmd=%d res=%d", cmd, res)
	}
}

// A device that returns a bad key-confirmation tag makes session_start
// fail with L2_HSK_ERR and leaves the host out of session.
func TestSessionStartBadTag(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	sim.ForceBadHandshakeTag(true)

	err := h.SessionStart(sim.StaticPublicKey(), tropic.PairingKeySlot0, shiPriv, shiPub)
	if err == nil {
		t.Fatal("expected handshake error")
	}
	terr, ok := err.(*tropic.Error)
	if !ok || terr.Tag != tropic.TagL2HskErr {
		t.Fatalf("expected L2_HSK_ERR, got %v", err)
	}
	if h.SessionActive() {
		t.Fatal("session must not be active after a failed handshake")
	}
}

// An L3 façade call (here Ping) returns HOST_NO_SESSION when no session
// is established.
func TestSessionGating(t *testing.T) {
	h, _, _, _ := newPairedHandle(t)

	_, err := h.Ping([]byte("hi"))
	terr, ok := err.(*tropic.Error)
	if !ok || terr.Tag != tropic.TagHostNoSession {
		t.Fatalf("expected HOST_NO_SESSION, got %v", err)
	}
}

// A corrupted response tag invalidates the session, resets both
// counters, and a subsequent call reports HOST_NO_SESSION.
func TestTagErrorInvalidatesSession(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	sim.CorruptNextResponseTag()
	_, err := h.Ping([]byte("hello"))
	terr, ok := err.(*tropic.Error)
	if !ok || terr.Tag != tropic.TagL3TagErr {
		t.Fatalf("expected L3_TAG_ERR, got %v", err)
	}
	if h.SessionActive() {
		t.Fatal("session must be invalidated after a tag failure")
	}
	if cmd, res := h.NonceState(); cmd != 0 || res != 0 {
		t.Fatalf("expected counters reset to 0 on invalidation, got cmd=%d res=%d", cmd, res)
	}

	_, err = h.Ping([]byte("hello"))
	terr, ok = err.(*tropic.Error)
	if !ok || terr.Tag != tropic.TagHostNoSession {
		t.Fatalf("expected HOST_NO_SESSION after invalidation, got %v", err)
	}
}

// nonce_cmd and nonce_res track the number of completed L3 command
// round trips.
func TestNonceCountsCommands(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	for i := 0; i < 3; i++ {
		if _, err := h.Ping([]byte{byte(i)}); err != nil {
			t.Fatalf("ping %d: %v", i, err)
		}
	}
	if cmd, res := h.NonceState(); cmd != 3 || res != 3 {
		t.Fatalf("expected nonce_cmd=nonce_res=3, got cmd=%d res=%d", cmd, res)
	}
}

// SessionAbort tears the session down on both sides; later L3 calls are
// gated until a fresh session_start.
func TestSessionAbort(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	if err := h.SessionAbort(); err != nil {
		t.Fatalf("session_abort: %v", err)
	}
	if h.SessionActive() {
		t.Fatal("expected session inactive after abort")
	}
	if sim.SessionOn() {
		t.Fatal("expected simulated device to drop its session on abort")
	}

	_, err := h.Ping([]byte("hi"))
	terr, ok := err.(*tropic.Error)
	if !ok || terr.Tag != tropic.TagHostNoSession {
		t.Fatalf("expected HOST_NO_SESSION after abort, got %v", err)
	}

	mustSession(t, h, sim, shiPriv, shiPub)
	if _, err := h.Ping([]byte("hi")); err != nil {
		t.Fatalf("ping after re-establishing session: %v", err)
	}
}

// random_value_get returns the requested length and two calls return
// distinct byte strings.
func TestRandomValueGet(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	a, err := h.RandomValueGet(32)
	if err != nil {
		t.Fatalf("random_value_get: %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(a))
	}
	b, err := h.RandomValueGet(32)
	if err != nil {
		t.Fatalf("random_value_get: %v", err)
	}
	if string(a) == string(b) {
		t.Fatal("two random_value_get calls returned identical bytes")
	}
}

// Generate an Ed25519 key, sign with it, and read back the public key
// the device reports for that slot.
func TestEccGenerateAndSign(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	if err := h.EccKeyGenerate(0, tropic.EccCurveEd25519); err != nil {
		t.Fatalf("ecc_key_generate: %v", err)
	}
	curve, pub, err := h.EccKeyRead(0)
	if err != nil {
		t.Fatalf("ecc_key_read: %v", err)
	}
	if curve != tropic.EccCurveEd25519 {
		t.Fatalf("expected Ed25519, got %v", curve)
	}
	if len(pub) != 32 {
		t.Fatalf("expected 32-byte pubkey, got %d", len(pub))
	}

	sig, err := h.EddsaSign(0, []byte("hello"))
	if err != nil {
		t.Fatalf("eddsa_sign: %v", err)
	}
	if sig == ([64]byte{}) {
		t.Fatal("expected non-zero signature")
	}
}

// Generate a P-256 key, read back its 64-byte public key, and sign a
// digest with it.
func TestEccP256GenerateAndSign(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	if err := h.EccKeyGenerate(1, tropic.EccCurveP256); err != nil {
		t.Fatalf("ecc_key_generate: %v", err)
	}
	curve, pub, err := h.EccKeyRead(1)
	if err != nil {
		t.Fatalf("ecc_key_read: %v", err)
	}
	if curve != tropic.EccCurveP256 {
		t.Fatalf("expected P-256, got %v", curve)
	}
	if len(pub) != 64 {
		t.Fatalf("expected 64-byte pubkey, got %d", len(pub))
	}

	var digest [32]byte
	for i := range digest {
		digest[i] = byte(i)
	}
	sig, err := h.EcdsaSign(1, digest)
	if err != nil {
		t.Fatalf("ecdsa_sign: %v", err)
	}
	if sig == ([64]byte{}) {
		t.Fatal("expected non-zero signature")
	}
}

// Requesting maintenance mode against a simulator that always lands
// back in application mode reports REBOOT_UNSUCCESSFUL.
func TestRebootMismatch(t *testing.T) {
	h, _, _, _ := newPairedHandle(t)

	err := h.Reboot(tropic.RebootToMaintenance)
	terr, ok := err.(*tropic.Error)
	if !ok || terr.Tag != tropic.TagRebootUnsuccessful {
		t.Fatalf("expected REBOOT_UNSUCCESSFUL, got %v", err)
	}
}

// An alarm-mode device fails fast without attempting a response read.
func TestChipAlarmFastFail(t *testing.T) {
	h, sim, _, _ := newPairedHandle(t)
	sim.SetAlarmMode(true)

	_, err := h.Mode()
	terr, ok := err.(*tropic.Error)
	if !ok || terr.Tag != tropic.TagL1ChipAlarmMode {
		t.Fatalf("expected L1_CHIP_ALARM_MODE, got %v", err)
	}
}

// A multi-block certificate store is reassembled using the
// 4-byte-per-certificate length header.
func TestGetInfoCertStoreMultiBlock(t *testing.T) {
	h, sim, _, _ := newPairedHandle(t)

	certs := make([][]byte, 4)
	header := make([]byte, 16)
	var blob []byte
	for i := range certs {
		cert := make([]byte, 128)
		for j := range cert {
			cert[j] = byte(i*128 + j)
		}
		certs[i] = cert
		header[i*4] = 128 // little-endian length, fits in one byte
	}
	for _, c := range certs {
		blob = append(blob, c...)
	}
	sim.SetCertStore(append(header, blob...))

	store, err := h.GetInfoCertStore()
	if err != nil {
		t.Fatalf("get_info_cert_store: %v", err)
	}
	for i, want := range certs {
		if string(store.Certs[i]) != string(want) {
			t.Fatalf("cert %d mismatch", i)
		}
	}
}
