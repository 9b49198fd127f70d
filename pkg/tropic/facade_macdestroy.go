package tropic

// MacAndDestroy runs the slot-keyed one-way verification function: it
// combines data with the key stored in slot, returns the 32-byte MAC, and
// destroys the slot's key material in the same operation regardless of
// the caller's subsequent use of the MAC. This bounds brute-force guesses
// at a secret (e.g. a PIN) to one attempt per provisioning of the slot.
func (h *Handle) MacAndDestroy(slot byte, data [32]byte) ([32]byte, error) {
	var mac [32]byte
	if !validEccSlot(slot) {
		return mac, newErr("mac_and_destroy", KindParam, TagParamErr, nil)
	}
	body := append([]byte{slot}, data[:]...)
	out, err := h.run("mac_and_destroy", cmdMacAndDestroy, body)
	if err != nil {
		return mac, err
	}
	if len(out) != 32 {
		return mac, newErr("mac_and_destroy", KindL2, TagL2RspLenError, nil)
	}
	copy(mac[:], out)
	return mac, nil
}
