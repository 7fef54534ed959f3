package prio

import "fmt"

// maxDimension bounds the data vector so the 2n-point evaluation domain
// still fits inside the field's 2^20-element root subgroup.
const maxDimension = 1<<19 - 1

// ProofLength returns the number of field elements in a proof vector for
// the given data dimension: the data itself, the three zero terms f(0),
// g(0) and h(0), and one packed h point per n-domain slot.
func ProofLength(dimension int) int {
	return dimension + 3 + nextPowerOfTwo(dimension+1)
}

func checkDimension(dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if dimension > maxDimension {
		return fmt.Errorf("dimension %d exceeds maximum %d", dimension, maxDimension)
	}
	return nil
}
