// Package idcodec turns internal numeric identifiers into opaque,
// tamper-evident strings that are safe to hand to clients.
//
// Tokens are sealed with XChaCha20-Poly1305 under keys derived from a process
// secret. The nonce is synthetic (an HMAC of the id), which keeps encoding
// deterministic: the same id always maps to the same token, so clients can
// use tokens as stable resource names.
package idcodec

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the shortest secret accepted by New.
const MinSecretLength = 16

const (
	plainSize = 8
	tokenSize = chacha20poly1305.NonceSizeX + plainSize + chacha20poly1305.Overhead
)

var (
	// ErrInvalidIdentifier is returned by Decode for malformed or tampered tokens.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrWeakSecret is returned by New when the secret is too short.
	ErrWeakSecret = fmt.Errorf("secret must be at least %d bytes", MinSecretLength)
)

var encoding = base64.RawURLEncoding

// Codec encodes and decodes identifiers. It is safe for concurrent use.
type Codec struct {
	aead   cipher.AEAD
	macKey []byte
	label  []byte
}

// Option configures a Codec.
type Option func(*Codec)

// WithLabel binds tokens to a namespace. A token produced under one label
// does not decode under another, so ids of different entity kinds cannot be
// swapped for each other.
func WithLabel(label string) Option {
	return func(c *Codec) {
		c.label = []byte(label)
	}
}

// New derives the sealing and nonce keys from secret.
func New(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	kdf := hkdf.New(sha256.New, secret, nil, []byte("feedvault idcodec v1"))

	sealKey := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, sealKey); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}

	macKey := make([]byte, sha256.Size)
	if _, err := io.ReadFull(kdf, macKey); err != nil {
		return nil, fmt.Errorf("derive nonce key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(sealKey)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}

	c := &Codec{
		aead:   aead,
		macKey: macKey,
		label:  []byte("feed"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Encode returns the opaque token for id.
func (c *Codec) Encode(id int64) string {
	plain := make([]byte, plainSize)
	binary.BigEndian.PutUint64(plain, uint64(id))

	nonce := c.nonce(plain)

	out := make([]byte, 0, tokenSize)
	out = append(out, nonce...)
	out = c.aead.Seal(out, nonce, plain, c.label)

	return encoding.EncodeToString(out)
}

// Decode reverses Encode. Any token that was not produced by Encode with the
// same secret and label yields ErrInvalidIdentifier.
func (c *Codec) Decode(token string) (int64, error) {
	raw, err := encoding.DecodeString(token)
	if err != nil || len(raw) != tokenSize {
		return 0, ErrInvalidIdentifier
	}

	nonce, sealed := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]

	plain, err := c.aead.Open(nil, nonce, sealed, c.label)
	if err != nil {
		return 0, ErrInvalidIdentifier
	}

	if !hmac.Equal(nonce, c.nonce(plain)) {
		return 0, ErrInvalidIdentifier
	}

	id := int64(binary.BigEndian.Uint64(plain))
	if id <= 0 {
		return 0, ErrInvalidIdentifier
	}

	return id, nil
}

func (c *Codec) nonce(plain []byte) []byte {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write(c.label)
	mac.Write(plain)
	return mac.Sum(nil)[:chacha20poly1305.NonceSizeX]
}
