// Package crypto provides the key material and primitives that protect a
// batch in transit between aggregation participants.
//
// Two independent key hierarchies exist:
//
//   - Batch signing keys (ECDSA P-256): every batch a participant writes is
//     signed so its peers can verify the batch reached them unmodified.
//     Signatures are ASN.1 DER over a SHA-256 digest of the raw file bytes.
//   - Packet encryption keys (P-256 ECIES): ingestion clients encrypt each
//     data-share payload to the receiving share processor so that no other
//     party, including the second processor, learns that share.
//
// All keys serialize to base64 strings for exchange through configuration:
// signing keys as PKCS#8 DER, verification keys as X9.63 uncompressed
// points, decryption keys as the public point followed by the private
// scalar.
//
// The field and polynomial arithmetic of the secret-sharing protocol itself
// lives in the prio package, not here.
package crypto
