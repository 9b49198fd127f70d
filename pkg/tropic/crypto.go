package tropic

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// HashState is a streaming SHA-256 context, mirroring the
// init/update/finish lifecycle the reference firmware uses for long
// message digests (e.g. Mac-and-Destroy input assembly).
type HashState struct {
	h interface {
		Write(p []byte) (int, error)
		Sum(b []byte) []byte
	}
}

// CryptoProvider is the capability contract the driver calls for every
// cryptographic primitive. Production code uses [DefaultCrypto]; tests may
// substitute a provider that records calls or injects failures.
type CryptoProvider interface {
	// Sha256Start begins a new streaming SHA-256 computation.
	Sha256Start() *HashState
	// Sha256Update feeds bytes into an in-progress computation.
	Sha256Update(s *HashState, data []byte)
	// Sha256Finish returns the 32-byte digest and must be safe to call
	// at most once per HashState.
	Sha256Finish(s *HashState) [32]byte

	// HmacSha256 computes a one-shot HMAC-SHA-256 over input.
	HmacSha256(key, input []byte) [32]byte

	// Hkdf computes (out1, out2) from a chaining key ck and input the
	// way the handshake profile defines it:
	//   T    = HMAC(ck, input)
	//   out1 = HMAC(T, 0x01)
	//   out2 = HMAC(T, out1 || 0x02)
	Hkdf(ck, input []byte) (out1, out2 [32]byte)

	// X25519 performs RFC 7748 scalar multiplication of priv with
	// peerPub.
	X25519(priv, peerPub [32]byte) ([32]byte, error)
	// X25519Base derives the public key matching priv.
	X25519Base(priv [32]byte) ([32]byte, error)

	// RandomBytes fills out with cryptographically secure random bytes,
	// used both for ephemeral handshake scalars and for the
	// random_value_get command.
	RandomBytes(out []byte) error

	// AEADSeal encrypts plaintext with AES-256-GCM under key, a 12-byte
	// IV, and aad, returning ciphertext||tag.
	AEADSeal(key [32]byte, iv [12]byte, aad, plaintext []byte) ([]byte, error)
	// AEADOpen authenticates and decrypts ciphertext||tag, returning the
	// plaintext or an error if the tag does not verify.
	AEADOpen(key [32]byte, iv [12]byte, aad, ciphertextAndTag []byte) ([]byte, error)
}

// DefaultCrypto is the CryptoProvider backed by the standard library plus
// golang.org/x/crypto/curve25519 for X25519 scalar multiplication.
type DefaultCrypto struct{}

var _ CryptoProvider = DefaultCrypto{}

func (DefaultCrypto) Sha256Start() *HashState {
	return &HashState{h: sha256.New()}
}

func (DefaultCrypto) Sha256Update(s *HashState, data []byte) {
	s.h.Write(data)
}

func (DefaultCrypto) Sha256Finish(s *HashState) [32]byte {
	var out [32]byte
	copy(out[:], s.h.Sum(nil))
	return out
}

func (DefaultCrypto) HmacSha256(key, input []byte) [32]byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(input)
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}

func (c DefaultCrypto) Hkdf(ck, input []byte) (out1, out2 [32]byte) {
	t := c.HmacSha256(ck, input)
	defer secureZeroArray32(&t)

	out1 = c.HmacSha256(t[:], []byte{0x01})

	helper := make([]byte, 33)
	copy(helper, out1[:])
	helper[32] = 0x02
	out2 = c.HmacSha256(t[:], helper)
	secureZero(helper)

	return out1, out2
}

func (DefaultCrypto) X25519(priv, peerPub [32]byte) ([32]byte, error) {
	var out [32]byte
	shared, err := curve25519.X25519(priv[:], peerPub[:])
	if err != nil {
		return out, fmt.Errorf("x25519: %w", err)
	}
	copy(out[:], shared)
	return out, nil
}

func (DefaultCrypto) X25519Base(priv [32]byte) ([32]byte, error) {
	var out [32]byte
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return out, fmt.Errorf("x25519 base: %w", err)
	}
	copy(out[:], pub)
	return out, nil
}

func (DefaultCrypto) RandomBytes(out []byte) error {
	_, err := io.ReadFull(rand.Reader, out)
	return err
}

func (DefaultCrypto) AEADSeal(key [32]byte, iv [12]byte, aad, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, iv[:], plaintext, aad), nil
}

func (DefaultCrypto) AEADOpen(key [32]byte, iv [12]byte, aad, ciphertextAndTag []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, iv[:], ciphertextAndTag, aad)
}

func newGCM(key [32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	gcm, err := cipher.NewGCMWithTagSize(block, 16)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return gcm, nil
}

// gcmIV builds the 96-bit IV used throughout L3: a 32-bit little-endian
// nonce in the low 4 bytes, the remaining 8 bytes zero.
func gcmIV(nonce uint32) [12]byte {
	var iv [12]byte
	iv[0] = byte(nonce)
	iv[1] = byte(nonce >> 8)
	iv[2] = byte(nonce >> 16)
	iv[3] = byte(nonce >> 24)
	return iv
}
