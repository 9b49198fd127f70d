package tropic

import (
	"testing"
	"time"
)

// Once nonce_cmd saturates at 0xFFFFFFFF, the next L3 command fails
// with NONCE_OVERFLOW and never touches the port.
func TestNonceOverflowBlocksSend(t *testing.T) {
	l := newL3State(DefaultCrypto{}, l2MaxBody)
	l.install([32]byte{}, [32]byte{})
	l.nonceCmd = 0xFFFFFFFF

	err := l.l3Send(newL1State(failPort{t}), cmdPing, []byte("hi"), l1TimeoutDefault)
	terr, ok := err.(*Error)
	if !ok || terr.Tag != TagNonceOverflow {
		t.Fatalf("expected NONCE_OVERFLOW, got %v", err)
	}
	if l.nonceCmd != 0xFFFFFFFF {
		t.Fatalf("expected nonce_cmd to remain saturated, got %d", l.nonceCmd)
	}
}

// failPort fails the test if touched, proving the nonce-overflow check
// in l3Send short-circuits before any port I/O is attempted.
type failPort struct{ t *testing.T }

func (f failPort) CsnLow() error  { f.t.Fatal("unexpected CsnLow"); return nil }
func (f failPort) CsnHigh() error { f.t.Fatal("unexpected CsnHigh"); return nil }
func (f failPort) Transfer(buf []byte, timeout time.Duration) error {
	f.t.Fatal("unexpected Transfer")
	return nil
}
func (f failPort) Delay(d time.Duration) error { f.t.Fatal("unexpected Delay"); return nil }
func (f failPort) WaitInt(timeout time.Duration) error {
	f.t.Fatal("unexpected WaitInt")
	return nil
}
