package testutil

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/winstrom/prio-server/crypto"
	"github.com/winstrom/prio-server/idl"
	"github.com/winstrom/prio-server/prio"
)

// TestDate is a fixed batch date tests can share so storage keys come out
// stable.
var TestDate = time.Date(2020, 10, 31, 20, 29, 0, 0, time.UTC)

// =====================================
// Key Generators
// =====================================

// GenerateTestSigningKey creates a fresh batch signing key, failing the
// test if key generation does.
func GenerateTestSigningKey(t *testing.T) *crypto.BatchSigningKey {
	t.Helper()
	key, err := crypto.GenerateBatchSigningKey()
	require.NoError(t, err)
	return key
}

// GenerateTestDecryptionKey creates a fresh packet decryption key.
func GenerateTestDecryptionKey(t *testing.T) *crypto.PacketDecryptionKey {
	t.Helper()
	key, err := crypto.GeneratePacketDecryptionKey()
	require.NoError(t, err)
	return key
}

// GenerateRandomBytes generates a slice of random bytes with the
// specified length.
func GenerateRandomBytes(t *testing.T, length int) []byte {
	t.Helper()
	data := make([]byte, length)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

// =====================================
// Record Generators
// =====================================

// HeaderOption is a function that modifies an IngestionHeader fixture.
type HeaderOption func(*idl.IngestionHeader)

// WithBatchUUID sets the batch identifier.
func WithBatchUUID(id uuid.UUID) HeaderOption {
	return func(h *idl.IngestionHeader) {
		h.BatchUUID = id
	}
}

// WithName sets the aggregation name.
func WithName(name string) HeaderOption {
	return func(h *idl.IngestionHeader) {
		h.Name = name
	}
}

// WithBins sets the number of value bins.
func WithBins(bins int32) HeaderOption {
	return func(h *idl.IngestionHeader) {
		h.Bins = bins
	}
}

// WithEpsilon sets the differential privacy parameter.
func WithEpsilon(epsilon float64) HeaderOption {
	return func(h *idl.IngestionHeader) {
		h.Epsilon = epsilon
	}
}

// WithNumberOfServers sets the number of share processors.
func WithNumberOfServers(n int32) HeaderOption {
	return func(h *idl.IngestionHeader) {
		h.NumberOfServers = n
	}
}

// WithHammingWeight sets the optional hamming weight.
func WithHammingWeight(weight int32) HeaderOption {
	return func(h *idl.IngestionHeader) {
		h.HammingWeight = &weight
	}
}

// GenerateTestHeader creates an ingestion header describing a small
// Boolean aggregation, customizable through options.
func GenerateTestHeader(options ...HeaderOption) *idl.IngestionHeader {
	header := &idl.IngestionHeader{
		BatchUUID:       uuid.New(),
		Name:            "fake-aggregation",
		Bins:            4,
		Epsilon:         0.11,
		Prime:           prio.Modulus,
		NumberOfServers: 2,
		BatchStartTime:  TestDate.UnixMilli(),
		BatchEndTime:    TestDate.Add(time.Hour).UnixMilli(),
	}
	for _, option := range options {
		option(header)
	}
	return header
}

// PacketOption is a function that modifies a data share packet fixture.
type PacketOption func(*idl.IngestionDataSharePacket)

// WithPacketUUID sets the packet identifier.
func WithPacketUUID(id uuid.UUID) PacketOption {
	return func(p *idl.IngestionDataSharePacket) {
		p.UUID = id
	}
}

// WithRPit sets the verification evaluation point.
func WithRPit(rPit int64) PacketOption {
	return func(p *idl.IngestionDataSharePacket) {
		p.RPit = rPit
	}
}

// WithPayload sets the encrypted payload bytes.
func WithPayload(payload []byte) PacketOption {
	return func(p *idl.IngestionDataSharePacket) {
		p.EncryptedPayload = payload
	}
}

// WithEncryptionKeyID sets the key identifier recorded on the packet.
func WithEncryptionKeyID(id string) PacketOption {
	return func(p *idl.IngestionDataSharePacket) {
		p.EncryptionKeyID = id
	}
}

// GenerateTestPacket creates a data share packet with a fresh UUID and a
// payload that is deliberately not a real ciphertext. Tests that need a
// decryptable payload go through sample generation instead.
func GenerateTestPacket(options ...PacketOption) *idl.IngestionDataSharePacket {
	packet := &idl.IngestionDataSharePacket{
		UUID:             uuid.New(),
		EncryptedPayload: []byte("placeholder payload"),
		EncryptionKeyID:  "fixture-key",
		RPit:             12345,
	}
	for _, option := range options {
		option(packet)
	}
	return packet
}
