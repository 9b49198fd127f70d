/*
Package tropic implements a host-side driver for a secure-element chip that
exposes a layered, authenticated-and-encrypted command interface over a
low-speed serial bus (SPI, or a USB/TCP bridge).

The driver is organised in three nested layers:

  - L1 (bus framing): chip-select assertion, raw SPI transfer, and chip-status
    polling via the GET_RESPONSE opcode.
  - L2 (request/response framing): typed request/response frames with a
    length byte and a CRC-16/CCITT checksum, including multi-chunk
    continuation for get-info and firmware transfers.
  - L3 (secure envelope): a nonce-sequenced AES-256-GCM AEAD wrapper around
    application commands, installed by a one-time X25519 triangle-DH
    handshake with key-confirmation.

A [Handle] owns one L2 sub-state and one L3 sub-state and is single-owner:
it is not safe for concurrent use by more than one goroutine. Every
command on the handle either completes fully or reports an error and
advances no state, with two exceptions: the session-invalidation cases
classified by [InvalidatesSession], and a command the device answers
with a failure result code, which still advances both nonces because
the device processed it.
*/
package tropic
