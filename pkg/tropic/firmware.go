package tropic

// firmwareChunkSize bounds a single MUTABLE_FW_UPDATE chunk so that the
// bank byte (plus the ABAB chunk-index byte) and the chunk still fit
// inside an L2 frame.
const firmwareChunkSize = l2MaxBody - 2

// FirmwareUpdate streams a firmware image to bank using MUTABLE_FW_UPDATE
// requests over L2 (unauthenticated — firmware update runs before, or
// independent of, session establishment). The chunking model follows
// h's configured [FirmwareUpdateVariant]:
//
//   - ACAB: the device drives chunking; the host streams the whole image
//     as a sequence of fixed-size chunks and the device reassembles it,
//     signalling REQ_CONT after every chunk but the last.
//   - ABAB: the host drives chunking explicitly, prefixing each chunk
//     with a one-byte running chunk index so the device can detect a
//     dropped or reordered chunk.
func (h *Handle) FirmwareUpdate(bank byte, image []byte) error {
	if err := h.requireReady("mutable_fw_update"); err != nil {
		return err
	}
	if len(image) == 0 {
		return newErr("mutable_fw_update", KindParam, TagParamErr, nil)
	}

	for offset, index := 0, byte(0); offset < len(image); index++ {
		end := offset + firmwareChunkSize
		if end > len(image) {
			end = len(image)
		}
		chunk := image[offset:end]

		var body []byte
		switch h.fwVariant {
		case FirmwareVariantABAB:
			body = make([]byte, 0, 2+len(chunk))
			body = append(body, bank, index)
		default: // FirmwareVariantACAB
			body = make([]byte, 0, 1+len(chunk))
			body = append(body, bank)
		}
		body = append(body, chunk...)

		if err := h.l1.l2Send(l2ReqMutableFwUpdate, body, h.timeout); err != nil {
			return err
		}
		resp, err := h.l1.l2Receive(h.timeout)
		if err != nil {
			return err
		}

		offset = end
		switch resp.Status {
		case l2StatusReqCont:
			if offset >= len(image) {
				return newErr("mutable_fw_update", KindL2, TagL2GenErr, nil)
			}
		case l2StatusOK:
			if offset < len(image) {
				return newErr("mutable_fw_update", KindL2, TagL2GenErr, nil)
			}
			return nil
		default:
			return newErr("mutable_fw_update", KindL2, TagL2GenErr, nil)
		}
	}
	return nil
}
