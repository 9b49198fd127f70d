package tropic

import "time"

// sessionStatus is the L3 secure-session state.
type sessionStatus int

const (
	sessionOff sessionStatus = iota
	sessionOn
)

// l3State is the secure-envelope sub-state owned by a [Handle]. It is
// scoped to the handle's lifetime and never aliases the L2 frame buffer:
// every AEAD-wrapped payload is staged in buff, a buffer distinct from
// l1State.buff, and handed to L2 only as an opaque byte slice.
type l3State struct {
	crypto  CryptoProvider
	status  sessionStatus
	buff    []byte
	buffLen int

	kCmd [32]byte
	kRes [32]byte

	nonceCmd uint32
	nonceRes uint32
}

func newL3State(crypto CryptoProvider, buffLen int) *l3State {
	return &l3State{crypto: crypto, buff: make([]byte, buffLen), buffLen: buffLen}
}

// invalidate zeroises both session keys and both counters and sets the
// session OFF.
func (l *l3State) invalidate() {
	secureZeroArray32(&l.kCmd)
	secureZeroArray32(&l.kRes)
	l.nonceCmd = 0
	l.nonceRes = 0
	l.status = sessionOff
}

// install sets the session keys from a completed handshake, resets both
// counters, and flips the session ON. Ownership of kCmd/kRes is copied in;
// the caller remains responsible for zeroising its own copies.
func (l *l3State) install(kCmd, kRes [32]byte) {
	l.kCmd = kCmd
	l.kRes = kRes
	l.nonceCmd = 0
	l.nonceRes = 0
	l.status = sessionOn
}

// invalidateOnError applies the session-invalidation policy: any AEAD,
// L2-CRC, or L1 failure on an L3 operation invalidates the session;
// param, nonce-overflow, no-session, and application-result errors do
// not.
func (l *l3State) invalidateOnError(err error) {
	if InvalidatesSession(err) {
		l.invalidate()
	}
}

// l3Send AEAD-wraps (cmdID, cmdData) under K_cmd/nonce_cmd and writes it
// to L2 as an ENCRYPTED_CMD request. nonce_cmd is incremented only once
// the L2 write completes without error, so a failed send leaves the
// counter at its pre-operation value.
func (l *l3State) l3Send(l1 *l1State, cmdID byte, cmdData []byte, timeout time.Duration) error {
	if l.status != sessionOn {
		return newErr("l3_send", KindSession, TagHostNoSession, nil)
	}
	if l.nonceCmd == 0xFFFFFFFF {
		return newErr("l3_send", KindNonce, TagNonceOverflow, nil)
	}

	body := make([]byte, 1+len(cmdData))
	body[0] = cmdID
	copy(body[1:], cmdData)
	if len(body) > l.buffLen-18 {
		return newErr("l3_send", KindParam, TagParamErr, nil)
	}

	iv := gcmIV(l.nonceCmd)
	ct, err := l.crypto.AEADSeal(l.kCmd, iv, nil, body)
	if err != nil {
		wrapped := newErr("l3_send", KindCrypto, TagCryptoErr, err)
		l.invalidateOnError(wrapped)
		return wrapped
	}

	// Stage the wrapped size || CT || TAG form in the L3 buffer; L2 only
	// ever sees it as an opaque payload and copies it into its own frame
	// buffer, so the two buffers never alias.
	wire := l.buff[:2+len(ct)]
	size := len(ct) - 16 // ciphertext length excluding the GCM tag
	wire[0] = byte(size)
	wire[1] = byte(size >> 8)
	copy(wire[2:], ct)

	if err := l1.l2Send(l2ReqEncryptedCmd, wire, timeout); err != nil {
		l.invalidateOnError(err)
		return err
	}
	l.nonceCmd++
	return nil
}

// l3Recv reads the pending L2 response, AEAD-opens it under
// K_res/nonce_res, and on success increments nonce_res. On a tag
// mismatch it invalidates the session and returns TagL3TagErr.
func (l *l3State) l3Recv(l1 *l1State, timeout time.Duration) (resultByte byte, cmdData []byte, err error) {
	if l.status != sessionOn {
		return 0, nil, newErr("l3_recv", KindSession, TagHostNoSession, nil)
	}

	resp, err := l1.l2Receive(timeout)
	if err != nil {
		l.invalidateOnError(err)
		return 0, nil, err
	}

	if len(resp.Body) < 2 || len(resp.Body) > l.buffLen {
		e := newErr("l3_recv", KindL2, TagL2RspLenError, nil)
		l.invalidateOnError(e)
		return 0, nil, e
	}
	wire := l.buff[:len(resp.Body)]
	copy(wire, resp.Body)
	size := int(wire[0]) | int(wire[1])<<8
	ctAndTag := wire[2:]
	if len(ctAndTag) != size+16 {
		e := newErr("l3_recv", KindL2, TagL2RspLenError, nil)
		l.invalidateOnError(e)
		return 0, nil, e
	}

	iv := gcmIV(l.nonceRes)
	pt, aeadErr := l.crypto.AEADOpen(l.kRes, iv, nil, ctAndTag)
	if aeadErr != nil {
		e := newErr("l3_recv", KindL3, TagL3TagErr, aeadErr)
		l.invalidateOnError(e)
		return 0, nil, e
	}
	if len(pt) < 1 {
		e := newErr("l3_recv", KindL2, TagL2RspLenError, nil)
		l.invalidateOnError(e)
		return 0, nil, e
	}

	l.nonceRes++
	return pt[0], pt[1:], nil
}
