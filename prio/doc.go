// Package prio implements the secret-shared proof protocol that lets two
// share processors validate a client's data packet without either one
// seeing the data.
//
// A client holds a vector of Boolean values, one per bin. It encodes the
// vector into a proof: the data itself, random zero-point values f(0) and
// g(0), their product h(0), and the packed odd-index evaluations of
// h = f * g, where f and g are the polynomials through the data points
// (g offset by one) on a roots-of-unity domain. The proof is split into two
// additive shares. The first processor receives the full share vector, the
// second a 16-byte seed that expands to its share through AES-CTR, and each
// share is ECIES-encrypted to its processor.
//
// Each processor rebuilds its share of the f, g and h point sets,
// interpolates them, and evaluates at a field element r chosen by the
// ingestion server, yielding a VerificationMessage (f(r), g(r), h(r) shares).
// Combining both processors' messages reveals whether f(r)*g(r) = h(r),
// which holds exactly when every data value is 0 or 1, and reveals nothing
// else.
//
// All arithmetic is in GF(p) with p = 4293918721 = 2^32 - 2^20 + 1, whose
// multiplicative group contains a subgroup of order 2^20 supplying the FFT
// roots. Verification-message computation is deterministic; only proof
// construction draws randomness.
//
// Note: field and polynomial operations are not constant-time. The values
// they handle are secret shares, which are uniform in the field and carry
// no information on their own.
package prio
