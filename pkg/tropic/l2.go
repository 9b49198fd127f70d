package tropic

import "time"

// L2 request IDs relevant to the core protocol.
const (
	l2ReqGetInfo             byte = 0x01
	l2ReqHandshake           byte = 0x02
	l2ReqEncryptedCmd        byte = 0x04
	l2ReqSleep               byte = 0x05
	l2ReqEncryptedSessionAbt byte = 0x08
	l2ReqGetLog              byte = 0xA2
	l2ReqStartup             byte = 0xB3
	l2ReqMutableFwUpdate     byte = 0xB0
)

// L2 response status codes (first byte of the response frame).
const (
	l2StatusOK          byte = 0x01
	l2StatusReqCont     byte = 0x02
	l2StatusResCont     byte = 0x03
	l2StatusHskErr      byte = 0x79
	l2StatusNoSession   byte = 0x7A
	l2StatusTagErr      byte = 0x7B
	l2StatusCRCErr      byte = 0x7C
	l2StatusUnknownReq  byte = 0x7E
	l2StatusGenErr      byte = 0x7F
	l2StatusNoResp      byte = 0xFF
)

// l2MaxBody is the largest request body l2Send accepts and the default L3
// buffer length. Response frames are read with any body length up to 255.
const l2MaxBody = 252

// l2Send frames (reqID, body) as id(1) len(1) body(len) crc(2) and hands
// it to L1.
func (l *l1State) l2Send(reqID byte, body []byte, timeout time.Duration) error {
	if len(body) > l2MaxBody {
		return newErr("l2_send", KindParam, TagParamErr, nil)
	}
	frame := make([]byte, 0, 2+len(body))
	frame = append(frame, reqID, byte(len(body)))
	frame = append(frame, body...)
	frame = appendCRC(frame)
	return l.l1Write(frame, timeout)
}

// l2Response is a parsed L2 response frame.
type l2Response struct {
	Status byte
	Body   []byte
}

// l2Receive reads one L2 response frame, verifies its CRC, and maps
// device-reported wire status codes that indicate a protocol-level
// problem (as opposed to OK/REQ_CONT/RES_CONT, which callers interpret
// themselves) to driver errors.
func (l *l1State) l2Receive(timeout time.Duration) (l2Response, error) {
	frame, err := l.l1ReadResponse(timeout)
	if err != nil {
		// l1ReadResponse may still return a frame alongside
		// TagL1MaintenanceMode; everything else is fatal.
		if e, ok := err.(*Error); !ok || e.Tag != TagL1MaintenanceMode {
			return l2Response{}, err
		}
	}

	body, ok := verifyCRC(frame)
	if !ok {
		return l2Response{}, newErr("l2_receive", KindL2, TagL2CRCErr, nil)
	}
	if len(body) < 2 {
		return l2Response{}, newErr("l2_receive", KindL2, TagL2RspLenError, nil)
	}

	status := body[0]
	rspLen := int(body[1])
	payload := body[2:]
	if len(payload) != rspLen {
		return l2Response{}, newErr("l2_receive", KindL2, TagL2RspLenError, nil)
	}

	switch status {
	case l2StatusOK, l2StatusReqCont, l2StatusResCont:
		return l2Response{Status: status, Body: payload}, nil
	case l2StatusHskErr:
		return l2Response{}, newErr("l2_receive", KindHandshake, TagL2HskErr, nil)
	case l2StatusNoSession:
		return l2Response{}, newErr("l2_receive", KindSession, TagHostNoSession, nil)
	case l2StatusTagErr:
		return l2Response{}, newErr("l2_receive", KindL3, TagL3TagErr, nil)
	case l2StatusCRCErr:
		return l2Response{}, newErr("l2_receive", KindL2, TagL2InCRCErr, nil)
	case l2StatusUnknownReq:
		return l2Response{}, newErr("l2_receive", KindL2, TagL2UnknownReq, nil)
	case l2StatusGenErr:
		return l2Response{}, newErr("l2_receive", KindL2, TagL2GenErr, nil)
	case l2StatusNoResp:
		return l2Response{}, newErr("l2_receive", KindL2, TagL2NoResp, nil)
	default:
		return l2Response{}, newErr("l2_receive", KindL2, TagL2GenErr, nil)
	}
}
