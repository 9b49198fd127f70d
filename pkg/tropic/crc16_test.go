package tropic

import (
	"math/rand"
	"testing"
)

// For L2 request payloads of length 0..255, verifying a freshly framed
// payload returns the original bytes back unchanged.
func TestCRCRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 0; n <= 255; n++ {
		req := make([]byte, n)
		rng.Read(req)

		framed := appendCRC(append([]byte(nil), req...))
		got, ok := verifyCRC(framed)
		if !ok {
			t.Fatalf("len=%d: verifyCRC rejected a freshly-framed payload", n)
		}
		if string(got) != string(req) {
			t.Fatalf("len=%d: round trip mismatch", n)
		}
	}
}

func TestCRCDetectsCorruption(t *testing.T) {
	framed := appendCRC([]byte("hello"))
	framed[0] ^= 0xFF
	if _, ok := verifyCRC(framed); ok {
		t.Fatal("expected corrupted frame to fail CRC verification")
	}
}
