package batch

import "errors"

// Error kinds surfaced by Ingestor, matched with errors.Is. Transport and
// codec failures are returned as wrapped causes naming the storage key
// instead; they carry no sentinel.
var (
	// ErrCryptography covers signature verification and signing failures.
	// It always means a tampered batch or a key mismatch.
	ErrCryptography = errors.New("cryptography failure")

	// ErrMalformedHeader marks a header that parsed but is semantically
	// invalid, such as a non-positive bin count.
	ErrMalformedHeader = errors.New("malformed ingestion header")

	// ErrMalformedDataPacket marks a packet field outside its valid
	// domain, such as an r_pit beyond the unsigned 32-bit range.
	ErrMalformedDataPacket = errors.New("malformed data packet")

	// ErrPrioVerification marks a packet whose verification message could
	// not be constructed.
	ErrPrioVerification = errors.New("verification message construction failed")
)
