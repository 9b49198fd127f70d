package simulator

import "encoding/binary"

func (s *Simulator) foldHash(h [32]byte, field []byte) [32]byte {
	st := s.crypto.Sha256Start()
	s.crypto.Sha256Update(st, h[:])
	s.crypto.Sha256Update(st, field)
	return s.crypto.Sha256Finish(st)
}

func (s *Simulator) sha256Of(data []byte) [32]byte {
	st := s.crypto.Sha256Start()
	s.crypto.Sha256Update(st, data)
	return s.crypto.Sha256Finish(st)
}

// handleHandshake mirrors pkg/tropic/handshake.go's sessionStart from the
// device's side of the triangle DH: it re-derives the same chained HKDF
// keys using its own static keypair, the host's ephemeral public key, and
// the host's pairing public key on file for the requested slot.
func (s *Simulator) handleHandshake(payload []byte) {
	if len(payload) != 33 {
		s.setResponse(l2StatusHskErr, nil)
		return
	}
	var ehPub [32]byte
	copy(ehPub[:], payload[:32])
	slot := payload[32]

	if int(slot) >= len(s.pairingKeys) || s.pairingKeys[slot] == nil {
		s.setResponse(l2StatusHskErr, nil)
		return
	}
	shiPub := *s.pairingKeys[slot]

	var etPriv [32]byte
	_ = s.crypto.RandomBytes(etPriv[:])
	etPub, _ := s.crypto.X25519Base(etPriv)

	pnHash := s.sha256Of([]byte(protocolName))
	hHash := s.foldHash(pnHash, shiPub[:])
	hHash = s.foldHash(hHash, s.stPub[:])
	hHash = s.foldHash(hHash, ehPub[:])
	hHash = s.foldHash(hHash, etPub[:])

	dh1, _ := s.crypto.X25519(etPriv, ehPub)
	dh2, _ := s.crypto.X25519(etPriv, shiPub)
	dh3, _ := s.crypto.X25519(s.stPriv, ehPub)

	ck1, _ := s.crypto.Hkdf(pnHash[:], dh1[:])
	ck2, _ := s.crypto.Hkdf(ck1[:], dh2[:])
	kCmd, kRes := s.crypto.Hkdf(ck2[:], dh3[:])

	tag, err := s.crypto.AEADSeal(kCmd, [12]byte{}, hHash[:], nil)
	if err != nil {
		s.setResponse(l2StatusHskErr, nil)
		return
	}
	if s.forceBadHandshakeTag {
		tag[0] ^= 0xFF
		s.forceBadHandshakeTag = false
	}

	s.kCmd, s.kRes = kCmd, kRes
	s.nonceCmd, s.nonceRes = 0, 0
	s.sessionOn = true

	resp := append(append([]byte(nil), etPub[:]...), tag...)
	s.setResponse(l2StatusOK, resp)
}

func gcmIV(nonce uint32) [12]byte {
	var iv [12]byte
	binary.LittleEndian.PutUint32(iv[:4], nonce)
	return iv
}

const l2StatusTagErr byte = 0x7B

// handleEncryptedCmd opens an ENCRYPTED_CMD request under K_cmd/nonce_cmd,
// dispatches the decrypted command, and seals the response under
// K_res/nonce_res.
func (s *Simulator) handleEncryptedCmd(payload []byte) {
	if !s.sessionOn {
		s.setResponse(l2StatusNoSession, nil)
		return
	}
	if len(payload) < 2 {
		s.setResponse(l2StatusTagErr, nil)
		return
	}
	size := int(payload[0]) | int(payload[1])<<8
	ctAndTag := payload[2:]
	if len(ctAndTag) != size+16 {
		s.setResponse(l2StatusTagErr, nil)
		return
	}

	pt, err := s.crypto.AEADOpen(s.kCmd, gcmIV(s.nonceCmd), nil, ctAndTag)
	if err != nil || len(pt) < 1 {
		s.invalidateSession()
		s.setResponse(l2StatusTagErr, nil)
		return
	}
	s.nonceCmd++

	result, data := s.dispatchCommand(pt[0], pt[1:])

	respPlain := append([]byte{result}, data...)
	ct, err := s.crypto.AEADSeal(s.kRes, gcmIV(s.nonceRes), nil, respPlain)
	if err != nil {
		s.setResponse(l2StatusTagErr, nil)
		return
	}
	if s.corruptNextResponseTag {
		ct[len(ct)-1] ^= 0xFF
		s.corruptNextResponseTag = false
	}
	s.nonceRes++

	ctSize := len(ct) - 16
	wire := make([]byte, 0, 2+len(ct))
	wire = append(wire, byte(ctSize), byte(ctSize>>8))
	wire = append(wire, ct...)
	s.setResponse(l2StatusOK, wire)
}
