package prio

import (
	"fmt"

	"github.com/winstrom/prio-server/crypto"
)

// Client encodes Boolean data vectors into encrypted proof shares for a
// pair of share processors. A Client is fixed to one dimension and one
// pair of packet encryption keys; it is not safe for concurrent use.
type Client struct {
	dimension int
	n         int
	first     *crypto.PacketEncryptionKey
	second    *crypto.PacketEncryptionKey
	rootsNInv []FieldElement
	roots2N   []FieldElement
}

// NewClient returns a Client for data vectors of the given dimension,
// encrypting the first processor's shares to first and the second's to
// second.
func NewClient(dimension int, first, second *crypto.PacketEncryptionKey) (*Client, error) {
	if err := checkDimension(dimension); err != nil {
		return nil, err
	}
	n := nextPowerOfTwo(dimension + 1)
	return &Client{
		dimension: dimension,
		n:         n,
		first:     first,
		second:    second,
		rootsNInv: rootsOfUnity(n, true),
		roots2N:   rootsOfUnity(2*n, false),
	}, nil
}

// Encode builds the proof for one data vector, splits it into two additive
// shares and encrypts one to each processor. Every entry of data must be 0
// or 1 for the resulting shares to verify downstream; Encode does not
// check this, since a dishonest client is exactly what verification is
// for. The returned payloads are the processors' encrypted packet
// payloads, in role order.
func (c *Client) Encode(data []FieldElement) (first, second []byte, err error) {
	if len(data) != c.dimension {
		return nil, nil, fmt.Errorf("data has %d entries, want %d", len(data), c.dimension)
	}

	proof, err := c.prove(data)
	if err != nil {
		return nil, nil, err
	}

	// proof becomes the first share in place.
	seed, err := secretShare(proof)
	if err != nil {
		return nil, nil, err
	}

	firstMsg, err := crypto.Encrypt(c.first, serializeShare(proof))
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt first share: %w", err)
	}
	secondMsg, err := crypto.Encrypt(c.second, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt second share: %w", err)
	}
	return firstMsg.Bytes(), secondMsg.Bytes(), nil
}

// prove lays out the full proof vector: data, the zero terms f(0), g(0)
// and h(0) = f(0)*g(0), then the odd-index evaluations of h = f*g on the
// doubled domain. The even-index evaluations beyond h(0) are identically
// zero for well-formed data and are not carried.
func (c *Client) prove(data []FieldElement) ([]FieldElement, error) {
	f0, err := RandomElement()
	if err != nil {
		return nil, err
	}
	g0, err := RandomElement()
	if err != nil {
		return nil, err
	}

	proof := make([]FieldElement, ProofLength(c.dimension))
	copy(proof, data)
	proof[c.dimension] = f0
	proof[c.dimension+1] = g0
	proof[c.dimension+2] = f0.Mul(g0)

	pointsF := make([]FieldElement, c.n)
	pointsG := make([]FieldElement, c.n)
	pointsF[0] = f0
	pointsG[0] = g0
	for i, v := range data {
		pointsF[i+1] = v
		pointsG[i+1] = v.Sub(1)
	}

	evalsF := c.evalOnDoubledDomain(pointsF)
	evalsG := c.evalOnDoubledDomain(pointsG)

	packedH := proof[c.dimension+3:]
	for i := range packedH {
		packedH[i] = evalsF[2*i+1].Mul(evalsG[2*i+1])
	}
	return proof, nil
}

// evalOnDoubledDomain interpolates n points and evaluates the polynomial
// on the 2n roots-of-unity domain.
func (c *Client) evalOnDoubledDomain(points []FieldElement) []FieldElement {
	coeffs := interpolate(points, c.rootsNInv)
	padded := make([]FieldElement, 2*c.n)
	copy(padded, coeffs)
	return fft(padded, c.roots2N)
}
