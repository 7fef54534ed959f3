package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfInfo domain-separates the packet encryption KDF from any other use of
// the same curve.
var hkdfInfo = []byte("prio-packet-encryption-v1")

// PacketEncryptionKey is the public half of a share processor's packet
// encryption key pair. Ingestion clients encrypt each data-share payload to
// this key so only the receiving processor learns its share.
type PacketEncryptionKey struct {
	key *ecdh.PublicKey
}

// NewPacketEncryptionKeyFromBytes parses a packet encryption key from its
// X9.63 uncompressed point form (65 bytes, leading 0x04).
func NewPacketEncryptionKeyFromBytes(data []byte) (*PacketEncryptionKey, error) {
	key, err := ecdh.P256().NewPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse packet encryption key: %w", err)
	}
	return &PacketEncryptionKey{key: key}, nil
}

// NewPacketEncryptionKeyFromString parses the base64 form produced by String.
func NewPacketEncryptionKeyFromString(s string) (*PacketEncryptionKey, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode packet encryption key: %w", err)
	}
	return NewPacketEncryptionKeyFromBytes(data)
}

// Bytes returns the X9.63 uncompressed point form of the key.
func (k *PacketEncryptionKey) Bytes() []byte {
	return k.key.Bytes()
}

// String returns a base64 representation of Bytes.
func (k *PacketEncryptionKey) String() string {
	return base64.StdEncoding.EncodeToString(k.key.Bytes())
}

// PacketDecryptionKey is a share processor's P-256 key pair for packet
// decryption. Its serialized form is the X9.63 public point followed by the
// private scalar (97 bytes total).
type PacketDecryptionKey struct {
	key *ecdh.PrivateKey
}

const packetDecryptionKeyLen = 65 + 32

// GeneratePacketDecryptionKey generates a new P-256 packet decryption key.
func GeneratePacketDecryptionKey() (*PacketDecryptionKey, error) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate packet decryption key: %w", err)
	}
	return &PacketDecryptionKey{key: key}, nil
}

// NewPacketDecryptionKeyFromBytes parses the 97-byte point-then-scalar form
// produced by Bytes.
func NewPacketDecryptionKeyFromBytes(data []byte) (*PacketDecryptionKey, error) {
	if len(data) != packetDecryptionKeyLen {
		return nil, fmt.Errorf("packet decryption key must be %d bytes, got %d", packetDecryptionKeyLen, len(data))
	}
	key, err := ecdh.P256().NewPrivateKey(data[65:])
	if err != nil {
		return nil, fmt.Errorf("parse packet decryption key: %w", err)
	}
	if !bytes.Equal(key.PublicKey().Bytes(), data[:65]) {
		return nil, errors.New("packet decryption key point does not match its scalar")
	}
	return &PacketDecryptionKey{key: key}, nil
}

// NewPacketDecryptionKeyFromString parses the base64 form produced by String.
func NewPacketDecryptionKeyFromString(s string) (*PacketDecryptionKey, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode packet decryption key: %w", err)
	}
	return NewPacketDecryptionKeyFromBytes(data)
}

// EncryptionKey returns the public half of this key.
func (k *PacketDecryptionKey) EncryptionKey() *PacketEncryptionKey {
	return &PacketEncryptionKey{key: k.key.PublicKey()}
}

// Bytes returns the point-then-scalar form of the key.
// The output contains private key material and should be handled accordingly.
func (k *PacketDecryptionKey) Bytes() []byte {
	out := make([]byte, 0, packetDecryptionKeyLen)
	out = append(out, k.key.PublicKey().Bytes()...)
	out = append(out, k.key.Bytes()...)
	return out
}

// String returns a base64 representation of Bytes.
func (k *PacketDecryptionKey) String() string {
	return base64.StdEncoding.EncodeToString(k.Bytes())
}

// EncryptedMessage contains an ECIES-encrypted packet payload.
// Format: ephemeral pubkey (65 bytes) || nonce (12 bytes) || ciphertext+tag
type EncryptedMessage struct {
	EphemeralPublicKey []byte // P-256 uncompressed public key
	Nonce              []byte // AES-GCM nonce
	Ciphertext         []byte // Encrypted data with auth tag
}

// Encrypt encrypts plaintext to a recipient's packet encryption key.
// The scheme is ECIES: ephemeral P-256 ECDH agreement, HKDF-SHA256 key
// derivation, and AES-256-GCM with the ephemeral public key as associated
// data.
func Encrypt(recipient *PacketEncryptionKey, plaintext []byte) (*EncryptedMessage, error) {
	ephemeral, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}

	shared, err := ephemeral.ECDH(recipient.key)
	if err != nil {
		return nil, fmt.Errorf("ECDH: %w", err)
	}

	aead, err := packetAEAD(shared)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ephemeralPub := ephemeral.PublicKey().Bytes()
	ciphertext := aead.Seal(nil, nonce, plaintext, ephemeralPub)

	return &EncryptedMessage{
		EphemeralPublicKey: ephemeralPub,
		Nonce:              nonce,
		Ciphertext:         ciphertext,
	}, nil
}

// Decrypt decrypts an ECIES-encrypted message using the recipient's packet
// decryption key.
func Decrypt(key *PacketDecryptionKey, msg *EncryptedMessage) ([]byte, error) {
	ephemeral, err := ecdh.P256().NewPublicKey(msg.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("parse ephemeral key: %w", err)
	}

	shared, err := key.key.ECDH(ephemeral)
	if err != nil {
		return nil, fmt.Errorf("ECDH: %w", err)
	}

	aead, err := packetAEAD(shared)
	if err != nil {
		return nil, err
	}

	if len(msg.Nonce) != aead.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}

	plaintext, err := aead.Open(nil, msg.Nonce, msg.Ciphertext, msg.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return plaintext, nil
}

// Bytes serializes an encrypted message.
func (m *EncryptedMessage) Bytes() []byte {
	result := make([]byte, 0, len(m.EphemeralPublicKey)+len(m.Nonce)+len(m.Ciphertext))
	result = append(result, m.EphemeralPublicKey...)
	result = append(result, m.Nonce...)
	result = append(result, m.Ciphertext...)
	return result
}

// ParseEncryptedMessage deserializes an encrypted message.
func ParseEncryptedMessage(data []byte) (*EncryptedMessage, error) {
	// P-256 uncompressed pubkey is 65 bytes, nonce is 12 bytes,
	// minimum ciphertext is the 16-byte auth tag alone.
	const pubKeyLen = 65
	const nonceLen = 12
	minLen := pubKeyLen + nonceLen + 16

	if len(data) < minLen {
		return nil, errors.New("encrypted message too short")
	}

	return &EncryptedMessage{
		EphemeralPublicKey: data[:pubKeyLen],
		Nonce:              data[pubKeyLen : pubKeyLen+nonceLen],
		Ciphertext:         data[pubKeyLen+nonceLen:],
	}, nil
}

// packetAEAD derives the AES-256-GCM cipher for one message's shared secret.
func packetAEAD(sharedSecret []byte) (cipher.AEAD, error) {
	kdf := hkdf.New(sha256.New, sharedSecret, nil, hkdfInfo)
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive packet key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return gcm, nil
}
