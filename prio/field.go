package prio

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Modulus is the order of the field: 2^32 - 2^20 + 1. It is prime, and
// 2^20 divides Modulus - 1, so the field supports radix-2 FFTs up to 2^20
// points.
const Modulus = 4293918721

// generator generates the multiplicative subgroup of order numRoots.
const (
	generator = 3925978153
	numRoots  = 1 << 20
)

// FieldElement is a value in GF(Modulus). The zero value is the field's
// zero. All operations assume their operands are already reduced.
type FieldElement uint32

// Reduce embeds an unsigned integer into the field.
func Reduce(v uint64) FieldElement {
	return FieldElement(v % Modulus)
}

// Add returns a + b in the field.
func (a FieldElement) Add(b FieldElement) FieldElement {
	return FieldElement((uint64(a) + uint64(b)) % Modulus)
}

// Sub returns a - b in the field.
func (a FieldElement) Sub(b FieldElement) FieldElement {
	return FieldElement((uint64(a) + Modulus - uint64(b)) % Modulus)
}

// Mul returns a * b in the field.
func (a FieldElement) Mul(b FieldElement) FieldElement {
	return FieldElement(uint64(a) * uint64(b) % Modulus)
}

// Pow returns a^e by square and multiply.
func (a FieldElement) Pow(e uint32) FieldElement {
	result := FieldElement(1)
	base := a
	for ; e > 0; e >>= 1 {
		if e&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
	}
	return result
}

// Inv returns the multiplicative inverse of a. Inv of zero returns zero.
func (a FieldElement) Inv() FieldElement {
	return a.Pow(Modulus - 2)
}

// RandomElement returns a uniformly distributed field element drawn from
// crypto/rand, suitable as a proof evaluation point or zero term.
func RandomElement() (FieldElement, error) {
	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("read randomness: %w", err)
		}
		// Rejection sampling keeps the distribution uniform.
		v := binary.LittleEndian.Uint32(buf[:])
		if uint64(v) < Modulus {
			return FieldElement(v), nil
		}
	}
}
