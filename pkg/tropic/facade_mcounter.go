package tropic

import "encoding/binary"

// mcounterCount is the number of independent monotonic down-counters the
// device provides.
const mcounterCount = 16

func validMcounter(index byte) bool { return int(index) < mcounterCount }

// McounterInit (re)initialises counter index to value. This is the only
// operation that can increase a counter's value; it overwrites whatever
// was there before.
func (h *Handle) McounterInit(index byte, value uint32) error {
	if !validMcounter(index) {
		return newErr("mcounter_init", KindParam, TagParamErr, nil)
	}
	body := make([]byte, 5)
	body[0] = index
	binary.LittleEndian.PutUint32(body[1:], value)
	_, err := h.run("mcounter_init", cmdMcounterInit, body)
	return err
}

// McounterUpdate decrements counter index by one. It fails once the
// counter has reached zero.
func (h *Handle) McounterUpdate(index byte) error {
	if !validMcounter(index) {
		return newErr("mcounter_update", KindParam, TagParamErr, nil)
	}
	_, err := h.run("mcounter_update", cmdMcounterUpdate, []byte{index})
	return err
}

// McounterGet returns the current value of counter index.
func (h *Handle) McounterGet(index byte) (uint32, error) {
	if !validMcounter(index) {
		return 0, newErr("mcounter_get", KindParam, TagParamErr, nil)
	}
	data, err := h.run("mcounter_get", cmdMcounterGet, []byte{index})
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, newErr("mcounter_get", KindL2, TagL2RspLenError, nil)
	}
	return binary.LittleEndian.Uint32(data), nil
}
