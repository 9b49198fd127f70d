package tropic

import "encoding/binary"

// randomValueMax is the largest single random_value_get request the
// device accepts; larger requests must be chunked by the caller.
const randomValueMax = 255

// RandomValueGet returns n cryptographically secure random bytes
// generated on-device (not via the host's own RNG).
func (h *Handle) RandomValueGet(n int) ([]byte, error) {
	if n <= 0 || n > randomValueMax {
		return nil, newErr("random_value_get", KindParam, TagParamErr, nil)
	}
	req := make([]byte, 2)
	binary.LittleEndian.PutUint16(req, uint16(n))
	data, err := h.run("random_value_get", cmdRandomValueGet, req)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, newErr("random_value_get", KindL2, TagL2RspLenError, nil)
	}
	return data, nil
}
