package prio

import (
	"fmt"

	"github.com/winstrom/prio-server/crypto"
)

// VerificationMessage is one share processor's contribution to the proof
// check for a single packet: its shares of f, g and h evaluated at the
// packet's evaluation point.
type VerificationMessage struct {
	FR FieldElement
	GR FieldElement
	HR FieldElement
}

// Server verifies packet payloads for one share processor's role within
// one batch. It is constructed with the batch's bin count, so a Server
// must not outlive the batch it was built for.
type Server struct {
	dimension  int
	n          int
	isFirst    bool
	key        *crypto.PacketDecryptionKey
	rootsNInv  []FieldElement
	roots2NInv []FieldElement
}

// NewServer returns a Server for data vectors of the given dimension.
// isFirst selects which of the two secret shares this processor's payloads
// carry: the first role receives full share vectors, the second receives
// expansion seeds.
func NewServer(dimension int, isFirst bool, key *crypto.PacketDecryptionKey) (*Server, error) {
	if err := checkDimension(dimension); err != nil {
		return nil, err
	}
	n := nextPowerOfTwo(dimension + 1)
	return &Server{
		dimension:  dimension,
		n:          n,
		isFirst:    isFirst,
		key:        key,
		rootsNInv:  rootsOfUnity(n, true),
		roots2NInv: rootsOfUnity(2*n, true),
	}, nil
}

// GenerateVerificationMessage decrypts this processor's share of one
// packet's proof and evaluates its f, g and h point shares at evalAt.
// The computation is deterministic: the same payload and evaluation point
// always produce the same message. Any decryption, length or range failure
// means the packet cannot be validated and returns an error.
func (s *Server) GenerateVerificationMessage(evalAt FieldElement, payload []byte) (*VerificationMessage, error) {
	share, err := s.decryptShare(payload)
	if err != nil {
		return nil, err
	}

	data := share[:s.dimension]
	f0 := share[s.dimension]
	g0 := share[s.dimension+1]
	h0 := share[s.dimension+2]
	packedH := share[s.dimension+3:]

	pointsF := make([]FieldElement, s.n)
	pointsG := make([]FieldElement, s.n)
	pointsH := make([]FieldElement, 2*s.n)
	pointsF[0] = f0
	pointsG[0] = g0
	pointsH[0] = h0
	for i, x := range data {
		pointsF[i+1] = x
		if s.isFirst {
			// Exactly one share carries the g = f - 1 offset, so the
			// offsets sum to the true points across processors.
			pointsG[i+1] = x.Sub(1)
		} else {
			pointsG[i+1] = x
		}
	}
	// Even h points beyond index 0 are zero by construction and were not
	// transmitted.
	for i, x := range packedH {
		pointsH[2*i+1] = x
	}

	return &VerificationMessage{
		FR: interpolateEval(pointsF, s.rootsNInv, evalAt),
		GR: interpolateEval(pointsG, s.rootsNInv, evalAt),
		HR: interpolateEval(pointsH, s.roots2NInv, evalAt),
	}, nil
}

// decryptShare recovers this role's proof share from an encrypted packet
// payload.
func (s *Server) decryptShare(payload []byte) ([]FieldElement, error) {
	msg, err := crypto.ParseEncryptedMessage(payload)
	if err != nil {
		return nil, fmt.Errorf("parse packet payload: %w", err)
	}
	plaintext, err := crypto.Decrypt(s.key, msg)
	if err != nil {
		return nil, fmt.Errorf("decrypt packet payload: %w", err)
	}

	length := ProofLength(s.dimension)
	if s.isFirst {
		share, err := deserializeShare(plaintext)
		if err != nil {
			return nil, err
		}
		if len(share) != length {
			return nil, fmt.Errorf("share has %d elements, want %d", len(share), length)
		}
		return share, nil
	}
	return expandSeed(plaintext, length)
}

// IsValidShare reports whether two processors' verification messages for
// the same packet are consistent with a well-formed data vector. The
// downstream aggregators exchange messages and apply this check before
// accumulating a packet.
func IsValidShare(v1, v2 *VerificationMessage) bool {
	fr := v1.FR.Add(v2.FR)
	gr := v1.GR.Add(v2.GR)
	hr := v1.HR.Add(v2.HR)
	return fr.Mul(gr) == hr
}
