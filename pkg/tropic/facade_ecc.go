package tropic

// EccCurve selects the curve an ECC key slot is generated or stored on.
type EccCurve byte

const (
	EccCurveP256    EccCurve = 1
	EccCurveEd25519 EccCurve = 2
)

func (c EccCurve) pubKeyLen() int {
	if c == EccCurveP256 {
		return 64
	}
	return 32
}

const eccKeySlotCount = 128

func validEccSlot(slot byte) bool { return int(slot) < eccKeySlotCount }

// EccKeyGenerate generates a fresh key pair on-device in slot on the
// given curve. The private key never leaves the device.
func (h *Handle) EccKeyGenerate(slot byte, curve EccCurve) error {
	if !validEccSlot(slot) {
		return newErr("ecc_key_generate", KindParam, TagParamErr, nil)
	}
	_, err := h.run("ecc_key_generate", cmdEccKeyGenerate, []byte{slot, byte(curve)})
	return err
}

// EccKeyStore imports a previously generated private key into slot. Used
// for provisioning flows that need a host-chosen key rather than an
// on-device-generated one.
func (h *Handle) EccKeyStore(slot byte, curve EccCurve, priv []byte) error {
	if !validEccSlot(slot) || len(priv) != 32 {
		return newErr("ecc_key_store", KindParam, TagParamErr, nil)
	}
	body := make([]byte, 0, 2+len(priv))
	body = append(body, slot, byte(curve))
	body = append(body, priv...)
	_, err := h.run("ecc_key_store", cmdEccKeyStore, body)
	return err
}

// EccKeyRead returns the curve and public key stored in slot.
func (h *Handle) EccKeyRead(slot byte) (EccCurve, []byte, error) {
	if !validEccSlot(slot) {
		return 0, nil, newErr("ecc_key_read", KindParam, TagParamErr, nil)
	}
	data, err := h.run("ecc_key_read", cmdEccKeyRead, []byte{slot})
	if err != nil {
		return 0, nil, err
	}
	if len(data) < 1 {
		return 0, nil, newErr("ecc_key_read", KindL2, TagL2RspLenError, nil)
	}
	curve := EccCurve(data[0])
	pub := data[1:]
	if len(pub) != curve.pubKeyLen() {
		return 0, nil, newErr("ecc_key_read", KindL2, TagL2RspLenError, nil)
	}
	return curve, append([]byte(nil), pub...), nil
}

// EccKeyErase destroys the key pair stored in slot.
func (h *Handle) EccKeyErase(slot byte) error {
	if !validEccSlot(slot) {
		return newErr("ecc_key_erase", KindParam, TagParamErr, nil)
	}
	_, err := h.run("ecc_key_erase", cmdEccKeyErase, []byte{slot})
	return err
}

// EcdsaSign signs a 32-byte digest with the P-256 key in slot, returning
// a 64-byte r||s signature.
func (h *Handle) EcdsaSign(slot byte, digest [32]byte) ([64]byte, error) {
	var sig [64]byte
	if !validEccSlot(slot) {
		return sig, newErr("ecdsa_sign", KindParam, TagParamErr, nil)
	}
	body := append([]byte{slot}, digest[:]...)
	data, err := h.run("ecdsa_sign", cmdEcdsaSign, body)
	if err != nil {
		return sig, err
	}
	if len(data) != 64 {
		return sig, newErr("ecdsa_sign", KindL2, TagL2RspLenError, nil)
	}
	copy(sig[:], data)
	return sig, nil
}

// EddsaSign signs an arbitrary-length message with the Ed25519 key in
// slot, returning a 64-byte signature.
func (h *Handle) EddsaSign(slot byte, msg []byte) ([64]byte, error) {
	var sig [64]byte
	if !validEccSlot(slot) || len(msg) > facadeMaxResp-2 {
		return sig, newErr("eddsa_sign", KindParam, TagParamErr, nil)
	}
	body := append([]byte{slot}, msg...)
	data, err := h.run("eddsa_sign", cmdEddsaSign, body)
	if err != nil {
		return sig, err
	}
	if len(data) != 64 {
		return sig, newErr("eddsa_sign", KindL2, TagL2RspLenError, nil)
	}
	copy(sig[:], data)
	return sig, nil
}
