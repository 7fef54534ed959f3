package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"slices"
)

// Signature represents an ECDSA signature over a batch artifact.
// Signatures are ASN.1 DER encoded, as produced by ecdsa.SignASN1, and are
// computed over the SHA-256 digest of the raw file bytes.
type Signature []byte

// NewSignature creates a Signature from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewSignature(data []byte) Signature {
	sig := make([]byte, len(data))
	copy(sig, data)
	return Signature(sig)
}

// Bytes returns the signature as a byte slice.
// This is useful when the signature needs to be serialized or transmitted.
func (s Signature) Bytes() []byte {
	return []byte(s)
}

// String returns a base64 representation of the signature.
// This is useful for logging and debugging.
func (s Signature) String() string {
	return base64.StdEncoding.EncodeToString(s)
}

// BatchSigningKey is the ECDSA P-256 private key a share processor uses to
// sign the batches it writes. The ingestion servers hold their own signing
// keys of the same shape.
type BatchSigningKey struct {
	key          *ecdsa.PrivateKey
	der          []byte
	verification *BatchVerificationKey
}

// GenerateBatchSigningKey generates a new P-256 batch signing key.
func GenerateBatchSigningKey() (*BatchSigningKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return newBatchSigningKey(key)
}

// NewBatchSigningKeyFromString parses the base64 PKCS#8 DER form produced by
// String.
func NewBatchSigningKeyFromString(s string) (*BatchSigningKey, error) {
	der, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("signing key is not an ECDSA key")
	}
	if key.Curve != elliptic.P256() {
		return nil, errors.New("signing key is not a P-256 key")
	}
	return newBatchSigningKey(key)
}

// newBatchSigningKey derives the serialized and public forms once so the
// accessors never fail.
func newBatchSigningKey(key *ecdsa.PrivateKey) (*BatchSigningKey, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal signing key: %w", err)
	}
	pub, err := key.PublicKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("derive verification key: %w", err)
	}
	verification := &BatchVerificationKey{key: &key.PublicKey, raw: pub.Bytes()}
	return &BatchSigningKey{key: key, der: der, verification: verification}, nil
}

// Sign signs message with this key. The message is hashed with SHA-256.
// Signing is randomized; two signatures over the same message differ.
func (k *BatchSigningKey) Sign(message []byte) (Signature, error) {
	digest := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, k.key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return Signature(sig), nil
}

// VerificationKey returns the public half of this key.
func (k *BatchSigningKey) VerificationKey() *BatchVerificationKey {
	return k.verification
}

// String returns the base64 PKCS#8 DER form of the key.
// The output contains private key material and should be handled accordingly.
func (k *BatchSigningKey) String() string {
	return base64.StdEncoding.EncodeToString(k.der)
}

// BatchVerificationKey is the ECDSA P-256 public key peers use to verify a
// batch writer's signatures.
type BatchVerificationKey struct {
	key *ecdsa.PublicKey
	raw []byte
}

// NewBatchVerificationKeyFromBytes parses a verification key from its X9.63
// uncompressed point form (65 bytes, leading 0x04).
func NewBatchVerificationKeyFromBytes(data []byte) (*BatchVerificationKey, error) {
	// Round-tripping through crypto/ecdh rejects malformed and off-curve
	// points before any coordinate is trusted.
	if _, err := ecdh.P256().NewPublicKey(data); err != nil {
		return nil, fmt.Errorf("parse verification key: %w", err)
	}
	key := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(data[1:33]),
		Y:     new(big.Int).SetBytes(data[33:65]),
	}
	return &BatchVerificationKey{key: key, raw: slices.Clone(data)}, nil
}

// NewBatchVerificationKeyFromString parses the base64 form produced by String.
func NewBatchVerificationKeyFromString(s string) (*BatchVerificationKey, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode verification key: %w", err)
	}
	return NewBatchVerificationKeyFromBytes(data)
}

// Bytes returns the X9.63 uncompressed point form of the key.
func (k *BatchVerificationKey) Bytes() []byte {
	return slices.Clone(k.raw)
}

// String returns a base64 representation of Bytes.
// This is the form exchanged in configuration between batch peers.
func (k *BatchVerificationKey) String() string {
	return base64.StdEncoding.EncodeToString(k.raw)
}

// Verify reports whether sig is a valid signature by this key over message.
// Any tampering with message or sig, down to a single byte, makes this
// return false.
func (k *BatchVerificationKey) Verify(message []byte, sig Signature) bool {
	digest := sha256.Sum256(message)
	return ecdsa.VerifyASN1(k.key, digest[:], sig)
}
