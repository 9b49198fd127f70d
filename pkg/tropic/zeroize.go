package tropic

import "runtime"

// secureZero overwrites b with zeros. The loop form and the trailing
// runtime.KeepAlive call are there to stop the compiler from recognising
// the "write then never read" pattern and eliding the writes; this is the
// wire-protocol layer's equivalent of the reference implementation's
// memzero-that-cannot-be-optimised-away primitive.
func secureZero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// secureZeroArray32 is secureZero specialised for fixed 32-byte key
// material, used at every handshake and session-invalidation exit path.
func secureZeroArray32(b *[32]byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
