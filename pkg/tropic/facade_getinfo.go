package tropic

import "encoding/binary"

// GetInfoObjectID selects which object a GET_INFO request retrieves.
type GetInfoObjectID byte

const (
	GetInfoX509Cert GetInfoObjectID = 0x00
	GetInfoChipID   GetInfoObjectID = 0x01
	GetInfoRiscvFw  GetInfoObjectID = 0x02
	GetInfoSpectFw  GetInfoObjectID = 0x04
	GetInfoFwBank   GetInfoObjectID = 0xB0
)

const certCount = 4

// CertStore holds the four per-certificate buffers the device's
// certificate-store object unpacks into, each sized to its own
// header-declared length.
type CertStore struct {
	Certs [certCount][]byte
}

// getInfoBlocks runs the GET_INFO request/RES_CONT chunking loop: the
// same (objID, blockIndex) request is reissued with an incrementing
// block index until the device stops returning RES_CONT.
func (h *Handle) getInfoBlocks(obj GetInfoObjectID) ([]byte, error) {
	if err := h.requireReady("get_info"); err != nil {
		return nil, err
	}
	var out []byte
	for block := 0; block < 256; block++ {
		body := []byte{byte(obj), byte(block)}
		if err := h.l1.l2Send(l2ReqGetInfo, body, h.timeout); err != nil {
			return nil, err
		}
		resp, err := h.l1.l2Receive(h.timeout)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Body...)
		if resp.Status != l2StatusResCont {
			return out, nil
		}
	}
	return nil, newErr("get_info", KindL2, TagL2GenErr, nil)
}

// GetInfoChipIDBytes returns the device's chip identifier blob verbatim.
func (h *Handle) GetInfoChipIDBytes() ([]byte, error) {
	return h.getInfoBlocks(GetInfoChipID)
}

// GetInfoFwBankHeaders returns the raw firmware-bank header blob for both
// banks, copied verbatim from the device's response.
func (h *Handle) GetInfoFwBankHeaders() ([]byte, error) {
	return h.getInfoBlocks(GetInfoFwBank)
}

// GetInfoRiscvFwVersion returns the RISC-V core firmware version blob.
func (h *Handle) GetInfoRiscvFwVersion() ([]byte, error) {
	return h.getInfoBlocks(GetInfoRiscvFw)
}

// GetInfoSpectFwVersion returns the cryptographic co-processor firmware
// version blob.
func (h *Handle) GetInfoSpectFwVersion() ([]byte, error) {
	return h.getInfoBlocks(GetInfoSpectFw)
}

// GetInfoCertStore retrieves the full certificate-store object and splits
// it into per-certificate buffers using the 4-byte-per-certificate
// little-endian length header at the front of the blob.
func (h *Handle) GetInfoCertStore() (*CertStore, error) {
	blob, err := h.getInfoBlocks(GetInfoX509Cert)
	if err != nil {
		return nil, err
	}
	headerLen := certCount * 4
	if len(blob) < headerLen {
		return nil, newErr("get_info_cert_store", KindL2, TagCertStoreInvalid, nil)
	}

	store := &CertStore{}
	offset := headerLen
	for i := 0; i < certCount; i++ {
		certLen := int(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
		if certLen < 0 || offset+certLen > len(blob) {
			return nil, newErr("get_info_cert_store", KindL2, TagCertStoreInvalid, nil)
		}
		store.Certs[i] = append([]byte(nil), blob[offset:offset+certLen]...)
		offset += certLen
	}
	return store, nil
}
