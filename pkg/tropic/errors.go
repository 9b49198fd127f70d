package tropic

import "fmt"

// Kind classifies a driver error by where the failure happened and what
// it implies for session state, not by which wire byte produced it.
type Kind int

const (
	// KindParam covers null arguments, out-of-range slot indices, and
	// oversize inputs. No I/O is attempted and no state changes.
	KindParam Kind = iota
	// KindL1 covers port-level failures: SPI transfer errors, INT
	// timeouts, exhausted chip-busy retry budgets, and alarm mode.
	KindL1
	// KindL2 covers CRC mismatches and malformed response lengths at
	// the framing layer.
	KindL2
	// KindHandshake covers a failed key-confirmation tag or a device
	// refusal during session_start.
	KindHandshake
	// KindL3 covers AEAD tag failures and other secure-envelope errors.
	// Except where noted, these invalidate the session.
	KindL3
	// KindResult covers application-level result codes returned by the
	// device inside a successfully-decrypted L3 response. The session
	// stays ON.
	KindResult
	// KindSession covers calling an L3 command while no session is
	// established.
	KindSession
	// KindNonce covers a would-be nonce wraparound.
	KindNonce
	// KindCrypto covers a crypto-provider failure (key derivation, DH,
	// random-byte generation).
	KindCrypto
)

func (k Kind) String() string {
	switch k {
	case KindParam:
		return "param"
	case KindL1:
		return "l1"
	case KindL2:
		return "l2"
	case KindHandshake:
		return "handshake"
	case KindL3:
		return "l3"
	case KindResult:
		return "result"
	case KindSession:
		return "session"
	case KindNonce:
		return "nonce"
	case KindCrypto:
		return "crypto"
	default:
		return "unknown"
	}
}

// Tag is a stable short code for a specific error condition, used by
// [Error.Error] and by callers that want to branch on exact cause without
// string-matching.
type Tag string

const (
	TagParamErr             Tag = "PARAM_ERR"
	TagL1SPIError           Tag = "L1_SPI_ERROR"
	TagL1IntTimeout         Tag = "L1_INT_TIMEOUT"
	TagL1ChipBusy           Tag = "L1_CHIP_BUSY"
	TagL1ChipAlarmMode      Tag = "L1_CHIP_ALARM_MODE"
	TagL1MaintenanceMode    Tag = "L1_MAINTENANCE_MODE"
	TagL2CRCErr             Tag = "L2_CRC_ERR"
	TagL2InCRCErr           Tag = "L2_IN_CRC_ERR"
	TagL2RspLenError        Tag = "L2_RSP_LEN_ERROR"
	TagL2HskErr             Tag = "L2_HSK_ERR"
	TagL2UnknownReq         Tag = "L2_UNKNOWN_REQ"
	TagL2GenErr             Tag = "L2_GEN_ERR"
	TagL2NoResp             Tag = "L2_NO_RESP"
	TagL3TagErr             Tag = "L3_TAG_ERR"
	TagL3Fail               Tag = "L3_FAIL"
	TagL3Unauthorized       Tag = "L3_UNAUTHORIZED"
	TagSlotEmpty            Tag = "SLOT_EMPTY"
	TagSlotInvalid          Tag = "SLOT_INVALID"
	TagHostNoSession        Tag = "HOST_NO_SESSION"
	TagNonceOverflow        Tag = "NONCE_OVERFLOW"
	TagCryptoErr            Tag = "CRYPTO_ERR"
	TagRebootUnsuccessful   Tag = "REBOOT_UNSUCCESSFUL"
	TagL3BufferTooSmall     Tag = "L3_BUFFER_TOO_SMALL"
	TagCertStoreInvalid     Tag = "CERT_STORE_INVALID"
)

// Error is the concrete error type returned by every exported operation in
// this package. It carries the [Kind] used for session-state decisions and
// a stable [Tag] for diagnostics.
type Error struct {
	Kind Kind
	Tag  Tag
	// Op names the operation that failed, e.g. "session_start" or "ping".
	Op string
	// Err wraps the underlying cause, if any (a port error, a crypto
	// provider error). May be nil.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tropic: %s: %s: %v", e.Op, e.Tag, e.Err)
	}
	return fmt.Sprintf("tropic: %s: %s", e.Op, e.Tag)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(op string, kind Kind, tag Tag, cause error) *Error {
	return &Error{Op: op, Kind: kind, Tag: tag, Err: cause}
}

// InvalidatesSession reports whether an error, when it occurs mid
// L3-operation, drives the session to OFF: any L1, L2, AEAD, or crypto
// failure does; parameter errors, nonce overflow, no-session, and
// application-level device results do not. An error of unknown type is
// treated as invalidating.
func InvalidatesSession(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return true
	}
	switch e.Kind {
	case KindParam, KindNonce, KindSession, KindResult:
		return false
	default:
		return true
	}
}

// Text returns a human-readable diagnostic string for a tag. It exists
// purely for logging; callers should branch on Tag, not on this string.
func Text(tag Tag) string {
	switch tag {
	case TagParamErr:
		return "invalid parameter"
	case TagL1SPIError:
		return "SPI transfer failed"
	case TagL1IntTimeout:
		return "INT pin wait timed out"
	case TagL1ChipBusy:
		return "chip busy, retry budget exhausted"
	case TagL1ChipAlarmMode:
		return "chip is in alarm mode"
	case TagL1MaintenanceMode:
		return "chip is in maintenance (bootloader) mode"
	case TagL2CRCErr:
		return "CRC mismatch on response frame"
	case TagL2InCRCErr:
		return "CRC mismatch reported by device on request frame"
	case TagL2RspLenError:
		return "response length did not match expectation"
	case TagL2HskErr:
		return "handshake rejected or key confirmation failed"
	case TagL2UnknownReq:
		return "device did not recognise the request"
	case TagL2GenErr:
		return "device reported a generic error"
	case TagL2NoResp:
		return "no response available"
	case TagL3TagErr:
		return "AEAD tag verification failed"
	case TagL3Fail:
		return "command failed at the application layer"
	case TagL3Unauthorized:
		return "command not authorized in current session"
	case TagSlotEmpty:
		return "requested slot is empty"
	case TagSlotInvalid:
		return "requested slot is invalid"
	case TagHostNoSession:
		return "no secure session established"
	case TagNonceOverflow:
		return "nonce counter would overflow"
	case TagCryptoErr:
		return "crypto provider failure"
	case TagRebootUnsuccessful:
		return "device did not enter the requested mode after reboot"
	case TagL3BufferTooSmall:
		return "configured L3 buffer is smaller than required"
	case TagCertStoreInvalid:
		return "certificate store header is malformed"
	default:
		return "unknown error"
	}
}
