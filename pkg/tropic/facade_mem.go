package tropic

import "encoding/binary"

// rMemSlotCount and rMemSlotMaxLen bound the user-data storage area.
const (
	rMemSlotCount  = 512
	rMemSlotMaxLen = 444
)

// RMemWrite writes data into a user-data slot, overwriting any previous
// contents.
func (h *Handle) RMemWrite(slot uint16, data []byte) error {
	if slot >= rMemSlotCount || len(data) > rMemSlotMaxLen {
		return newErr("r_mem_data_write", KindParam, TagParamErr, nil)
	}
	body := make([]byte, 0, 4+len(data))
	slotLen := make([]byte, 4)
	binary.LittleEndian.PutUint16(slotLen[0:2], slot)
	binary.LittleEndian.PutUint16(slotLen[2:4], uint16(len(data)))
	body = append(body, slotLen...)
	body = append(body, data...)
	_, err := h.run("r_mem_data_write", cmdRMemDataWrite, body)
	return err
}

// RMemRead returns the contents currently stored in a user-data slot.
func (h *Handle) RMemRead(slot uint16) ([]byte, error) {
	if slot >= rMemSlotCount {
		return nil, newErr("r_mem_data_read", KindParam, TagParamErr, nil)
	}
	data, err := h.run("r_mem_data_read", cmdRMemDataRead, uint16Body(slot))
	if err != nil {
		return nil, err
	}
	if len(data) < 2 {
		return nil, newErr("r_mem_data_read", KindL2, TagL2RspLenError, nil)
	}
	storedLen := int(binary.LittleEndian.Uint16(data[:2]))
	if storedLen > len(data)-2 {
		return nil, newErr("r_mem_data_read", KindL2, TagL2RspLenError, nil)
	}
	return append([]byte(nil), data[2:2+storedLen]...), nil
}

// RMemErase clears a user-data slot.
func (h *Handle) RMemErase(slot uint16) error {
	if slot >= rMemSlotCount {
		return newErr("r_mem_data_erase", KindParam, TagParamErr, nil)
	}
	_, err := h.run("r_mem_data_erase", cmdRMemDataErase, uint16Body(slot))
	return err
}
