package tropic

import "encoding/binary"

// RConfigObjectID addresses one 32-bit register in the device's
// runtime-writable configuration bank.
type RConfigObjectID uint16

// IConfigObjectID addresses one 32-bit register in the device's
// one-time-programmable configuration bank.
type IConfigObjectID uint16

func configBody(objID uint16, value uint32) []byte {
	body := make([]byte, 6)
	binary.LittleEndian.PutUint16(body[0:2], objID)
	binary.LittleEndian.PutUint32(body[2:6], value)
	return body
}

// RConfigWrite sets a runtime-configuration register. Runtime
// configuration may be rewritten any number of times until locked by the
// device's own provisioning policy.
func (h *Handle) RConfigWrite(obj RConfigObjectID, value uint32) error {
	_, err := h.run("r_config_write", cmdRConfigWrite, configBody(uint16(obj), value))
	return err
}

// RConfigRead returns the current value of a runtime-configuration
// register.
func (h *Handle) RConfigRead(obj RConfigObjectID) (uint32, error) {
	data, err := h.run("r_config_read", cmdRConfigRead, uint16Body(uint16(obj)))
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, newErr("r_config_read", KindL2, TagL2RspLenError, nil)
	}
	return binary.LittleEndian.Uint32(data), nil
}

// RConfigErase resets a runtime-configuration register to its factory
// default.
func (h *Handle) RConfigErase(obj RConfigObjectID) error {
	_, err := h.run("r_config_erase", cmdRConfigErase, uint16Body(uint16(obj)))
	return err
}

// IConfigWrite programs a one-time-programmable configuration register.
// Each bit may only transition from 0 to 1: the device ORs value into
// the register, so bits that are already set stay set.
func (h *Handle) IConfigWrite(obj IConfigObjectID, value uint32) error {
	_, err := h.run("i_config_write", cmdIConfigWrite, configBody(uint16(obj), value))
	return err
}

// IConfigRead returns the current value of an OTP configuration
// register.
func (h *Handle) IConfigRead(obj IConfigObjectID) (uint32, error) {
	data, err := h.run("i_config_read", cmdIConfigRead, uint16Body(uint16(obj)))
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, newErr("i_config_read", KindL2, TagL2RspLenError, nil)
	}
	return binary.LittleEndian.Uint32(data), nil
}

func uint16Body(v uint16) []byte {
	body := make([]byte, 2)
	binary.LittleEndian.PutUint16(body, v)
	return body
}
