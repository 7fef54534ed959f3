/*
Package testutil provides shared fixtures for tests across the share
processor packages.

Testing batch validation requires the same setup over and over: signing
and packet encryption keys, ingestion headers, and data share packets
with particular field values. This package provides generators for all
of them so tests can focus on behavior rather than construction.

# Key Generators

Functions for creating key material, failing the test on error:

	signingKey := testutil.GenerateTestSigningKey(t)
	decryptionKey := testutil.GenerateTestDecryptionKey(t)
	payload := testutil.GenerateRandomBytes(t, 32)

# Record Generators

Functions for creating ingestion records with the option pattern:

	// A well-formed header for a small Boolean aggregation
	header := testutil.GenerateTestHeader()

	// A header with out-of-contract values
	badHeader := testutil.GenerateTestHeader(testutil.WithBins(0))

	// A packet carrying a hostile evaluation point
	packet := testutil.GenerateTestPacket(testutil.WithRPit(1 << 32))

GenerateTestPacket's default payload is not a real ciphertext; tests
that need packets a processor can actually decrypt generate a batch
through the sample package instead.

This package is intended for testing purposes only and should not be
used in production code.
*/
package testutil
