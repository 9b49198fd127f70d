package tropic

import (
	"log/slog"
	"time"
)

// L3 command IDs, bit-exact with the device's command set.
const (
	cmdPing                byte = 0x01
	cmdPairingKeyWrite     byte = 0x10
	cmdPairingKeyRead      byte = 0x11
	cmdPairingKeyInvalid   byte = 0x12
	cmdRConfigWrite        byte = 0x20
	cmdRConfigRead         byte = 0x21
	cmdRConfigErase        byte = 0x22
	cmdIConfigWrite        byte = 0x30
	cmdIConfigRead         byte = 0x31
	cmdRMemDataWrite       byte = 0x40
	cmdRMemDataRead        byte = 0x41
	cmdRMemDataErase       byte = 0x42
	cmdRandomValueGet      byte = 0x50
	cmdEccKeyGenerate      byte = 0x60
	cmdEccKeyStore         byte = 0x61
	cmdEccKeyRead          byte = 0x62
	cmdEccKeyErase         byte = 0x63
	cmdEcdsaSign           byte = 0x64
	cmdEddsaSign           byte = 0x65
	cmdMcounterInit        byte = 0x70
	cmdMcounterUpdate      byte = 0x71
	cmdMcounterGet         byte = 0x72
	cmdMacAndDestroy       byte = 0x80
)

// Device result codes, first byte of an L3 plaintext response.
const (
	resultOK           byte = 0xC3
	resultFail         byte = 0x3C
	resultUnauthorized byte = 0x01
	resultInvalidCmd   byte = 0x02
	resultHardwareFail byte = 0x03
	resultSlotEmpty    byte = 0x12
	resultSlotInvalid  byte = 0x13
)

// facadeMaxResp is the L2 body limit that Ping and EddsaSign use to bound
// their caller-supplied input lengths.
const facadeMaxResp = l2MaxBody

// run is the common skeleton every L3 façade command follows: send the
// command over L3, receive the response, map the device's result byte
// to the error taxonomy, and hand back the response's cmd_data on
// success. It also emits the one log line per command the CLI tools rely
// on: Info on success, Error with the taxonomy tag on failure.
func (h *Handle) run(op string, cmdID byte, cmdData []byte) ([]byte, error) {
	if err := h.requireReady(op); err != nil {
		return nil, err
	}
	start := time.Now()
	if err := h.l3.l3Send(h.l1, cmdID, cmdData, h.timeout); err != nil {
		logCommandErr(op, err)
		return nil, err
	}
	result, data, err := h.l3.l3Recv(h.l1, h.timeout)
	if err != nil {
		logCommandErr(op, err)
		return nil, err
	}
	if err := mapResult(op, result); err != nil {
		logCommandErr(op, err)
		return nil, err
	}
	slog.Info("command", "op", op, "dur", time.Since(start))
	return data, nil
}

func logCommandErr(op string, err error) {
	if e, ok := err.(*Error); ok {
		slog.Error("command failed", "op", op, "tag", e.Tag, "err", err)
		return
	}
	slog.Error("command failed", "op", op, "err", err)
}

// mapResult maps a device result byte to the L3 application-result
// taxonomy. Unlike transport-layer errors these never invalidate the
// session.
func mapResult(op string, result byte) error {
	switch result {
	case resultOK:
		return nil
	case resultUnauthorized:
		return newErr(op, KindResult, TagL3Unauthorized, nil)
	case resultSlotEmpty:
		return newErr(op, KindResult, TagSlotEmpty, nil)
	case resultSlotInvalid:
		return newErr(op, KindResult, TagSlotInvalid, nil)
	case resultInvalidCmd, resultHardwareFail, resultFail:
		return newErr(op, KindResult, TagL3Fail, nil)
	default:
		return newErr(op, KindResult, TagL3Fail, nil)
	}
}

// Ping round-trips an arbitrary payload through the device as a liveness
// and session-health check: the device echoes in verbatim as cmd_data.
func (h *Handle) Ping(in []byte) ([]byte, error) {
	if len(in) > facadeMaxResp-1 {
		return nil, newErr("ping", KindParam, TagParamErr, nil)
	}
	return h.run("ping", cmdPing, in)
}
