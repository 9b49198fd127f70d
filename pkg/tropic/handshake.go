package tropic

import "time"

// PairingKeySlot selects one of the four pairing-key slots on the device
// that authorises session establishment.
type PairingKeySlot byte

const (
	PairingKeySlot0 PairingKeySlot = iota
	PairingKeySlot1
	PairingKeySlot2
	PairingKeySlot3
)

func (s PairingKeySlot) valid() bool { return s <= PairingKeySlot3 }

// protocolName is the Noise-style domain separator folded into the
// handshake transcript hash, bit-exact and without a trailing NUL.
const protocolName = "Noise_KK1_25519_AESGCM_SHA256"

// hostEphemeralKeys are the ephemeral X25519 keys generated fresh for a
// single session_start call. They are zeroised unconditionally on return,
// per the data model's "scoped to handshake only" lifetime.
type hostEphemeralKeys struct {
	priv [32]byte
	pub  [32]byte
}

func (k *hostEphemeralKeys) zero() {
	secureZeroArray32(&k.priv)
	secureZeroArray32(&k.pub)
}

// foldHash extends the running transcript hash with one more field:
// h := SHA256(h || field).
func foldHash(crypto CryptoProvider, h [32]byte, field []byte) [32]byte {
	s := crypto.Sha256Start()
	crypto.Sha256Update(s, h[:])
	crypto.Sha256Update(s, field)
	return crypto.Sha256Finish(s)
}

// sessionStart runs the X25519 triangle-DH handshake: it generates an
// ephemeral host keypair, exchanges it for the device's
// ephemeral public key and a key-confirmation tag over L2, derives
// K_cmd/K_res via three chained HKDF calls over three DH shared secrets,
// and verifies the device's tag before installing the session keys.
func sessionStart(
	h *Handle,
	stPub [32]byte,
	slot PairingKeySlot,
	shiPriv, shiPub [32]byte,
	timeout time.Duration,
) error {
	if !slot.valid() {
		return newErr("session_start", KindParam, TagParamErr, nil)
	}

	crypto := h.l3.crypto

	eph := hostEphemeralKeys{}
	defer eph.zero()

	if err := crypto.RandomBytes(eph.priv[:]); err != nil {
		return newErr("session_start", KindCrypto, TagCryptoErr, err)
	}
	pub, err := crypto.X25519Base(eph.priv)
	if err != nil {
		return newErr("session_start", KindCrypto, TagCryptoErr, err)
	}
	eph.pub = pub

	// Transcript hash: domain separator, then both static public keys,
	// then the host's ephemeral public key as the device will observe
	// it in the request. The protocol-name hash doubles as the seed for
	// the first HKDF chaining key below.
	pnHash := sha256Of(crypto, []byte(protocolName))
	hHash := foldHash(crypto, pnHash, shiPub[:])
	hHash = foldHash(crypto, hHash, stPub[:])
	hHash = foldHash(crypto, hHash, eph.pub[:])

	reqBody := make([]byte, 0, 33)
	reqBody = append(reqBody, eph.pub[:]...)
	reqBody = append(reqBody, byte(slot))

	if err := h.l1.l2Send(l2ReqHandshake, reqBody, timeout); err != nil {
		return err
	}
	resp, err := h.l1.l2Receive(timeout)
	if err != nil {
		return err
	}
	if len(resp.Body) != 48 {
		return newErr("session_start", KindL2, TagL2RspLenError, nil)
	}

	var etPub [32]byte
	var tAuth [16]byte
	copy(etPub[:], resp.Body[:32])
	copy(tAuth[:], resp.Body[32:])

	hHash = foldHash(crypto, hHash, etPub[:])

	dh1, err := crypto.X25519(eph.priv, etPub)
	if err != nil {
		return newErr("session_start", KindCrypto, TagCryptoErr, err)
	}
	dh2, err := crypto.X25519(shiPriv, etPub)
	if err != nil {
		return newErr("session_start", KindCrypto, TagCryptoErr, err)
	}
	dh3, err := crypto.X25519(eph.priv, stPub)
	if err != nil {
		return newErr("session_start", KindCrypto, TagCryptoErr, err)
	}
	defer secureZeroArray32(&dh1)
	defer secureZeroArray32(&dh2)
	defer secureZeroArray32(&dh3)

	ck1, _ := crypto.Hkdf(pnHash[:], dh1[:])
	ck2, _ := crypto.Hkdf(ck1[:], dh2[:])
	kCmd, kRes := crypto.Hkdf(ck2[:], dh3[:])
	defer secureZeroArray32(&ck1)
	defer secureZeroArray32(&ck2)

	tagOnly, err := crypto.AEADSeal(kCmd, [12]byte{}, hHash[:], nil)
	if err != nil {
		secureZeroArray32(&kCmd)
		secureZeroArray32(&kRes)
		return newErr("session_start", KindCrypto, TagCryptoErr, err)
	}
	var tExpected [16]byte
	copy(tExpected[:], tagOnly)

	if !constantTimeEqual(tExpected[:], tAuth[:]) {
		secureZeroArray32(&kCmd)
		secureZeroArray32(&kRes)
		return newErr("session_start", KindHandshake, TagL2HskErr, nil)
	}

	h.l3.install(kCmd, kRes)
	secureZeroArray32(&kCmd)
	secureZeroArray32(&kRes)
	return nil
}

func sha256Of(crypto CryptoProvider, data []byte) [32]byte {
	s := crypto.Sha256Start()
	crypto.Sha256Update(s, data)
	return crypto.Sha256Finish(s)
}

// constantTimeEqual compares two equal-length byte slices in time
// independent of where they first differ.
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
