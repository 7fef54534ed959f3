package prio

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// SeedLength is the size of a share-expansion seed. The seed is the AES-128
// key of the expansion stream and is itself the second processor's whole
// payload.
const SeedLength = 16

// expandSeed derives length field elements from seed: the AES-128-CTR
// keystream under the seed with a zero IV, read as 4-byte little-endian
// words, discarding words outside the field. Both sides of the protocol
// must expand identically, so the chunking and rejection rule are part of
// the wire contract.
func expandSeed(seed []byte, length int) ([]FieldElement, error) {
	if len(seed) != SeedLength {
		return nil, fmt.Errorf("expansion seed must be %d bytes, got %d", SeedLength, len(seed))
	}
	block, err := aes.NewCipher(seed)
	if err != nil {
		return nil, fmt.Errorf("create expansion cipher: %w", err)
	}
	stream := cipher.NewCTR(block, make([]byte, aes.BlockSize))

	out := make([]FieldElement, 0, length)
	buf := make([]byte, 4096)
	for len(out) < length {
		// Encrypting zeros yields the raw keystream.
		clear(buf)
		stream.XORKeyStream(buf, buf)
		for off := 0; off+4 <= len(buf) && len(out) < length; off += 4 {
			v := binary.LittleEndian.Uint32(buf[off : off+4])
			if uint64(v) < Modulus {
				out = append(out, FieldElement(v))
			}
		}
	}
	return out, nil
}

// secretShare splits proof into two additive shares. On return, proof
// holds the first share and the returned seed expands to the second, so
// that first[i] + expand(seed)[i] equals the original proof[i].
func secretShare(proof []FieldElement) ([]byte, error) {
	seed := make([]byte, SeedLength)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate share seed: %w", err)
	}
	share2, err := expandSeed(seed, len(proof))
	if err != nil {
		return nil, err
	}
	for i := range proof {
		proof[i] = proof[i].Sub(share2[i])
	}
	return seed, nil
}

// serializeShare encodes field elements as little-endian 32-bit words.
func serializeShare(share []FieldElement) []byte {
	out := make([]byte, 4*len(share))
	for i, v := range share {
		binary.LittleEndian.PutUint32(out[4*i:], uint32(v))
	}
	return out
}

// deserializeShare decodes little-endian 32-bit words, rejecting values
// outside the field.
func deserializeShare(data []byte) ([]FieldElement, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("share length %d is not a multiple of 4", len(data))
	}
	out := make([]FieldElement, len(data)/4)
	for i := range out {
		v := binary.LittleEndian.Uint32(data[4*i:])
		if uint64(v) >= Modulus {
			return nil, fmt.Errorf("share element %d out of field range: %d", i, v)
		}
		out[i] = FieldElement(v)
	}
	return out, nil
}
