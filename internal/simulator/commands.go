package simulator

import (
	"encoding/binary"

	"github.com/quaylabs/tropicdrv/pkg/tropic"
)

// L3 command IDs, mirroring pkg/tropic/facade.go.
const (
	cmdPing              byte = 0x01
	cmdPairingKeyWrite   byte = 0x10
	cmdPairingKeyRead    byte = 0x11
	cmdPairingKeyInvalid byte = 0x12
	cmdRConfigWrite      byte = 0x20
	cmdRConfigRead       byte = 0x21
	cmdRConfigErase      byte = 0x22
	cmdIConfigWrite      byte = 0x30
	cmdIConfigRead       byte = 0x31
	cmdRMemDataWrite     byte = 0x40
	cmdRMemDataRead      byte = 0x41
	cmdRMemDataErase     byte = 0x42
	cmdRandomValueGet    byte = 0x50
	cmdEccKeyGenerate    byte = 0x60
	cmdEccKeyStore       byte = 0x61
	cmdEccKeyRead        byte = 0x62
	cmdEccKeyErase       byte = 0x63
	cmdEcdsaSign         byte = 0x64
	cmdEddsaSign         byte = 0x65
	cmdMcounterInit      byte = 0x70
	cmdMcounterUpdate    byte = 0x71
	cmdMcounterGet       byte = 0x72
	cmdMacAndDestroy     byte = 0x80
)

// dispatchCommand runs one decrypted L3 command against simulator state
// and returns the device result byte plus any cmd_data.
func (s *Simulator) dispatchCommand(cmdID byte, data []byte) (byte, []byte) {
	switch cmdID {
	case cmdPing:
		return resultOK, data

	case cmdPairingKeyWrite:
		if len(data) != 33 {
			return resultFail, nil
		}
		var pub [32]byte
		copy(pub[:], data[1:])
		s.pairingKeys[data[0]] = &pub
		return resultOK, nil

	case cmdPairingKeyRead:
		if len(data) != 1 || s.pairingKeys[data[0]] == nil {
			return resultSlotEmpty, nil
		}
		return resultOK, s.pairingKeys[data[0]][:]

	case cmdPairingKeyInvalid:
		if len(data) != 1 {
			return resultFail, nil
		}
		s.pairingKeys[data[0]] = nil
		return resultOK, nil

	case cmdRConfigWrite:
		if len(data) != 6 {
			return resultFail, nil
		}
		s.rConfig[binary.LittleEndian.Uint16(data[:2])] = binary.LittleEndian.Uint32(data[2:])
		return resultOK, nil

	case cmdRConfigRead:
		if len(data) != 2 {
			return resultFail, nil
		}
		v := s.rConfig[binary.LittleEndian.Uint16(data)]
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, v)
		return resultOK, out

	case cmdRConfigErase:
		if len(data) != 2 {
			return resultFail, nil
		}
		delete(s.rConfig, binary.LittleEndian.Uint16(data))
		return resultOK, nil

	case cmdIConfigWrite:
		if len(data) != 6 {
			return resultFail, nil
		}
		obj := binary.LittleEndian.Uint16(data[:2])
		newVal := binary.LittleEndian.Uint32(data[2:])
		s.iConfig[obj] |= newVal // OTP: bits only ever set, never cleared
		return resultOK, nil

	case cmdIConfigRead:
		if len(data) != 2 {
			return resultFail, nil
		}
		v := s.iConfig[binary.LittleEndian.Uint16(data)]
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, v)
		return resultOK, out

	case cmdRMemDataWrite:
		if len(data) < 4 {
			return resultFail, nil
		}
		slot := binary.LittleEndian.Uint16(data[:2])
		n := int(binary.LittleEndian.Uint16(data[2:4]))
		if int(slot) >= len(s.rMem) || 4+n > len(data) {
			return resultFail, nil
		}
		s.rMem[slot] = append([]byte(nil), data[4:4+n]...)
		return resultOK, nil

	case cmdRMemDataRead:
		if len(data) != 2 {
			return resultFail, nil
		}
		slot := binary.LittleEndian.Uint16(data)
		if int(slot) >= len(s.rMem) {
			return resultFail, nil
		}
		stored := s.rMem[slot]
		out := make([]byte, 2+len(stored))
		binary.LittleEndian.PutUint16(out, uint16(len(stored)))
		copy(out[2:], stored)
		return resultOK, out

	case cmdRMemDataErase:
		if len(data) != 2 {
			return resultFail, nil
		}
		slot := binary.LittleEndian.Uint16(data)
		if int(slot) >= len(s.rMem) {
			return resultFail, nil
		}
		s.rMem[slot] = nil
		return resultOK, nil

	case cmdRandomValueGet:
		if len(data) != 2 {
			return resultFail, nil
		}
		n := int(binary.LittleEndian.Uint16(data))
		out := make([]byte, n)
		_ = s.crypto.RandomBytes(out)
		return resultOK, out

	case cmdEccKeyGenerate:
		return s.eccKeyGenerate(data)
	case cmdEccKeyStore:
		return s.eccKeyStore(data)
	case cmdEccKeyRead:
		return s.eccKeyRead(data)
	case cmdEccKeyErase:
		return s.eccKeyErase(data)
	case cmdEcdsaSign:
		return s.eccSign(data, 32)
	case cmdEddsaSign:
		return s.eccSign(data, -1)

	case cmdMcounterInit:
		if len(data) != 5 {
			return resultFail, nil
		}
		idx := data[0]
		v := binary.LittleEndian.Uint32(data[1:])
		s.mcounters[idx] = &v
		return resultOK, nil

	case cmdMcounterUpdate:
		if len(data) != 1 || s.mcounters[data[0]] == nil || *s.mcounters[data[0]] == 0 {
			return resultFail, nil
		}
		*s.mcounters[data[0]]--
		return resultOK, nil

	case cmdMcounterGet:
		if len(data) != 1 || s.mcounters[data[0]] == nil {
			return resultFail, nil
		}
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, *s.mcounters[data[0]])
		return resultOK, out

	case cmdMacAndDestroy:
		if len(data) != 33 {
			return resultFail, nil
		}
		slot := data[0]
		entry := s.eccKeys[slot]
		if entry == nil {
			return resultSlotEmpty, nil
		}
		mac := s.crypto.HmacSha256(entry.priv[:], data[1:])
		s.eccKeys[slot] = nil
		return resultOK, mac[:]

	default:
		return resultFail, nil
	}
}

func (s *Simulator) eccKeyGenerate(data []byte) (byte, []byte) {
	if len(data) != 2 {
		return resultFail, nil
	}
	slot, curve := data[0], data[1]
	var priv [32]byte
	_ = s.crypto.RandomBytes(priv[:])
	s.eccKeys[slot] = &eccKeyEntry{curve: eccCurve(curve), priv: priv, pub: s.eccPublicFor(curve, priv)}
	return resultOK, nil
}

func (s *Simulator) eccKeyStore(data []byte) (byte, []byte) {
	if len(data) != 34 {
		return resultFail, nil
	}
	slot, curve := data[0], data[1]
	var priv [32]byte
	copy(priv[:], data[2:])
	s.eccKeys[slot] = &eccKeyEntry{curve: eccCurve(curve), priv: priv, pub: s.eccPublicFor(curve, priv)}
	return resultOK, nil
}

// eccPublicFor derives a deterministic pseudo public key of the length
// the requested curve calls for: 64 bytes (x || y) for P-256, 32 bytes
// otherwise.
func (s *Simulator) eccPublicFor(curve byte, priv [32]byte) []byte {
	if eccCurve(curve) == tropic.EccCurveP256 {
		x := s.crypto.HmacSha256(priv[:], []byte("p256-pub-x"))
		y := s.crypto.HmacSha256(priv[:], []byte("p256-pub-y"))
		return append(x[:], y[:]...)
	}
	pub, _ := s.crypto.X25519Base(priv)
	return pub[:]
}

func (s *Simulator) eccKeyRead(data []byte) (byte, []byte) {
	if len(data) != 1 {
		return resultFail, nil
	}
	entry := s.eccKeys[data[0]]
	if entry == nil {
		return resultSlotEmpty, nil
	}
	out := append([]byte{byte(entry.curve)}, entry.pub...)
	return resultOK, out
}

func (s *Simulator) eccKeyErase(data []byte) (byte, []byte) {
	if len(data) != 1 {
		return resultFail, nil
	}
	s.eccKeys[data[0]] = nil
	return resultOK, nil
}

// eccSign produces a deterministic 64-byte pseudo-signature keyed on the
// slot's private scalar. digestLen pins the message to an exact digest
// length for ECDSA (32) or leaves it free-form for EdDSA (-1).
func (s *Simulator) eccSign(data []byte, digestLen int) (byte, []byte) {
	if len(data) < 1 {
		return resultFail, nil
	}
	slot := data[0]
	msg := data[1:]
	if digestLen >= 0 && len(msg) != digestLen {
		return resultFail, nil
	}
	entry := s.eccKeys[slot]
	if entry == nil {
		return resultSlotEmpty, nil
	}
	h1 := s.crypto.HmacSha256(entry.priv[:], msg)
	h2 := s.crypto.HmacSha256(entry.priv[:], append(append([]byte(nil), msg...), 0x01))
	return resultOK, append(h1[:], h2[:]...)
}

func eccCurve(b byte) tropic.EccCurve { return tropic.EccCurve(b) }
