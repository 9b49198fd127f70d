package tropic

// PairingKeyWrite installs a host X25519 public key into slot on the
// device, authorising future session_start calls against that slot.
func (h *Handle) PairingKeyWrite(slot PairingKeySlot, pub [32]byte) error {
	if !slot.valid() {
		return newErr("pairing_key_write", KindParam, TagParamErr, nil)
	}
	body := make([]byte, 0, 33)
	body = append(body, byte(slot))
	body = append(body, pub[:]...)
	_, err := h.run("pairing_key_write", cmdPairingKeyWrite, body)
	return err
}

// PairingKeyRead returns the public key currently installed in slot.
func (h *Handle) PairingKeyRead(slot PairingKeySlot) ([32]byte, error) {
	var out [32]byte
	if !slot.valid() {
		return out, newErr("pairing_key_read", KindParam, TagParamErr, nil)
	}
	data, err := h.run("pairing_key_read", cmdPairingKeyRead, []byte{byte(slot)})
	if err != nil {
		return out, err
	}
	if len(data) != 32 {
		return out, newErr("pairing_key_read", KindL2, TagL2RspLenError, nil)
	}
	copy(out[:], data)
	return out, nil
}

// PairingKeyInvalidate clears slot so it can no longer authorise a
// session_start. This is irreversible from the host's perspective.
func (h *Handle) PairingKeyInvalidate(slot PairingKeySlot) error {
	if !slot.valid() {
		return newErr("pairing_key_invalidate", KindParam, TagParamErr, nil)
	}
	_, err := h.run("pairing_key_invalidate", cmdPairingKeyInvalid, []byte{byte(slot)})
	return err
}
