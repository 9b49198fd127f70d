package tropic_test

import (
	"testing"

	"github.com/quaylabs/tropicdrv/internal/simulator"
	"github.com/quaylabs/tropicdrv/pkg/tropic"
)

func TestPairingKeyRoundTrip(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	var newKey [32]byte
	for i := range newKey {
		newKey[i] = byte(i + 1)
	}
	if err := h.PairingKeyWrite(tropic.PairingKeySlot1, newKey); err != nil {
		t.Fatalf("pairing_key_write: %v", err)
	}
	got, err := h.PairingKeyRead(tropic.PairingKeySlot1)
	if err != nil {
		t.Fatalf("pairing_key_read: %v", err)
	}
	if got != newKey {
		t.Fatalf("pairing key mismatch: got %x want %x", got, newKey)
	}

	if err := h.PairingKeyInvalidate(tropic.PairingKeySlot1); err != nil {
		t.Fatalf("pairing_key_invalidate: %v", err)
	}
	if _, err := h.PairingKeyRead(tropic.PairingKeySlot1); err == nil {
		t.Fatal("expected pairing_key_read to fail after invalidation")
	}
}

func TestRConfigWriteReadErase(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	const obj tropic.RConfigObjectID = 0x10
	if err := h.RConfigWrite(obj, 0xCAFEBABE); err != nil {
		t.Fatalf("r_config_write: %v", err)
	}
	v, err := h.RConfigRead(obj)
	if err != nil {
		t.Fatalf("r_config_read: %v", err)
	}
	if v != 0xCAFEBABE {
		t.Fatalf("got %#x want %#x", v, 0xCAFEBABE)
	}
	if err := h.RConfigErase(obj); err != nil {
		t.Fatalf("r_config_erase: %v", err)
	}
	v, err = h.RConfigRead(obj)
	if err != nil {
		t.Fatalf("r_config_read after erase: %v", err)
	}
	if v != 0 {
		t.Fatalf("expected 0 after erase, got %#x", v)
	}
}

// I-config bits only ever accumulate; writing a second value ORs it with
// whatever was already set rather than replacing it.
func TestIConfigWriteOnlySetsBits(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	const obj tropic.IConfigObjectID = 0x01
	if err := h.IConfigWrite(obj, 0x0000000F); err != nil {
		t.Fatalf("i_config_write: %v", err)
	}
	if err := h.IConfigWrite(obj, 0x000000F0); err != nil {
		t.Fatalf("i_config_write: %v", err)
	}
	v, err := h.IConfigRead(obj)
	if err != nil {
		t.Fatalf("i_config_read: %v", err)
	}
	if v != 0x000000FF {
		t.Fatalf("got %#x want %#x", v, 0x000000FF)
	}
}

func TestRMemWriteReadErase(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	payload := []byte("user data fixture")
	if err := h.RMemWrite(3, payload); err != nil {
		t.Fatalf("r_mem_data_write: %v", err)
	}
	got, err := h.RMemRead(3)
	if err != nil {
		t.Fatalf("r_mem_data_read: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q want %q", got, payload)
	}
	if err := h.RMemErase(3); err != nil {
		t.Fatalf("r_mem_data_erase: %v", err)
	}
	got, err = h.RMemRead(3)
	if err != nil {
		t.Fatalf("r_mem_data_read after erase: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty slot after erase, got %q", got)
	}
}

func TestMcounterLifecycle(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	if err := h.McounterInit(2, 2); err != nil {
		t.Fatalf("mcounter_init: %v", err)
	}
	if err := h.McounterUpdate(2); err != nil {
		t.Fatalf("mcounter_update: %v", err)
	}
	v, err := h.McounterGet(2)
	if err != nil {
		t.Fatalf("mcounter_get: %v", err)
	}
	if v != 1 {
		t.Fatalf("got %d want 1", v)
	}
	if err := h.McounterUpdate(2); err != nil {
		t.Fatalf("mcounter_update: %v", err)
	}
	if err := h.McounterUpdate(2); err == nil {
		t.Fatal("expected mcounter_update to fail once the counter reaches zero")
	}
}

// MacAndDestroy destroys the slot's key material as a side effect of
// computing the MAC, so a second call against the same slot fails.
func TestMacAndDestroy(t *testing.T) {
	h, sim, shiPriv, shiPub := newPairedHandle(t)
	mustSession(t, h, sim, shiPriv, shiPub)

	if err := h.EccKeyGenerate(5, tropic.EccCurveEd25519); err != nil {
		t.Fatalf("ecc_key_generate: %v", err)
	}

	var data [32]byte
	for i := range data {
		data[i] = byte(i)
	}
	mac1, err := h.MacAndDestroy(5, data)
	if err != nil {
		t.Fatalf("mac_and_destroy: %v", err)
	}
	if mac1 == ([32]byte{}) {
		t.Fatal("expected non-zero MAC")
	}

	if _, err := h.MacAndDestroy(5, data); err == nil {
		t.Fatal("expected a second mac_and_destroy on a destroyed slot to fail")
	}
}

func TestGetLog(t *testing.T) {
	h, _, _, _ := newPairedHandle(t)
	out, err := h.GetLog()
	if err != nil {
		t.Fatalf("get_log: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected a non-empty log")
	}
}

// FirmwareUpdate under the ACAB variant streams an image in fixed-size
// chunks and the simulator reassembles it byte for byte.
func TestFirmwareUpdateACAB(t *testing.T) {
	crypto := tropic.DefaultCrypto{}
	var stPriv [32]byte
	if err := crypto.RandomBytes(stPriv[:]); err != nil {
		t.Fatalf("random stPriv: %v", err)
	}
	stPub, err := crypto.X25519Base(stPriv)
	if err != nil {
		t.Fatalf("x25519 base stPub: %v", err)
	}
	sim := simulator.New(stPriv, stPub)

	h := tropic.NewHandle(sim, tropic.WithFirmwareUpdateVariant(tropic.FirmwareVariantACAB))
	if err := h.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	image := make([]byte, 1200)
	for i := range image {
		image[i] = byte(i)
	}
	if err := h.FirmwareUpdate(0x01, image); err != nil {
		t.Fatalf("mutable_fw_update: %v", err)
	}
	if string(sim.FirmwareImage()) != string(image) {
		t.Fatal("reassembled firmware image does not match the original")
	}
}
