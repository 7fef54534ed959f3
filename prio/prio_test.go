package prio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winstrom/prio-server/crypto"
)

func testKeyPair(t *testing.T) (first, second *crypto.PacketDecryptionKey) {
	t.Helper()
	first, err := crypto.GeneratePacketDecryptionKey()
	require.NoError(t, err)
	second, err = crypto.GeneratePacketDecryptionKey()
	require.NoError(t, err)
	return first, second
}

func TestProofLength(t *testing.T) {
	// dimension + three zero terms + one packed h point per n-domain slot.
	assert.Equal(t, 1+3+2, ProofLength(1))
	assert.Equal(t, 10+3+16, ProofLength(10))
	assert.Equal(t, 15+3+16, ProofLength(15))
	assert.Equal(t, 16+3+32, ProofLength(16))
}

func TestClientServerRoundTrip(t *testing.T) {
	const dimension = 10
	firstKey, secondKey := testKeyPair(t)

	client, err := NewClient(dimension, firstKey.EncryptionKey(), secondKey.EncryptionKey())
	require.NoError(t, err)

	data := []FieldElement{1, 0, 1, 1, 0, 0, 0, 1, 0, 1}
	firstPayload, secondPayload, err := client.Encode(data)
	require.NoError(t, err)

	firstServer, err := NewServer(dimension, true, firstKey)
	require.NoError(t, err)
	secondServer, err := NewServer(dimension, false, secondKey)
	require.NoError(t, err)

	r, err := RandomElement()
	require.NoError(t, err)

	v1, err := firstServer.GenerateVerificationMessage(r, firstPayload)
	require.NoError(t, err)
	v2, err := secondServer.GenerateVerificationMessage(r, secondPayload)
	require.NoError(t, err)

	assert.True(t, IsValidShare(v1, v2))
}

func TestRoundTripAcrossDimensions(t *testing.T) {
	for _, dimension := range []int{1, 2, 3, 7, 8, 15, 16, 33} {
		firstKey, secondKey := testKeyPair(t)
		client, err := NewClient(dimension, firstKey.EncryptionKey(), secondKey.EncryptionKey())
		require.NoError(t, err)

		data := make([]FieldElement, dimension)
		for i := range data {
			data[i] = FieldElement(i % 2)
		}
		firstPayload, secondPayload, err := client.Encode(data)
		require.NoError(t, err)

		firstServer, err := NewServer(dimension, true, firstKey)
		require.NoError(t, err)
		secondServer, err := NewServer(dimension, false, secondKey)
		require.NoError(t, err)

		r, err := RandomElement()
		require.NoError(t, err)
		v1, err := firstServer.GenerateVerificationMessage(r, firstPayload)
		require.NoError(t, err)
		v2, err := secondServer.GenerateVerificationMessage(r, secondPayload)
		require.NoError(t, err)

		assert.True(t, IsValidShare(v1, v2), "dimension %d", dimension)
	}
}

func TestNonBooleanDataFailsVerification(t *testing.T) {
	const dimension = 4
	firstKey, secondKey := testKeyPair(t)

	client, err := NewClient(dimension, firstKey.EncryptionKey(), secondKey.EncryptionKey())
	require.NoError(t, err)

	// 2 is not a Boolean value, so h's even points are not actually zero
	// and the transmitted proof cannot hold.
	data := []FieldElement{1, 2, 0, 1}
	firstPayload, secondPayload, err := client.Encode(data)
	require.NoError(t, err)

	firstServer, err := NewServer(dimension, true, firstKey)
	require.NoError(t, err)
	secondServer, err := NewServer(dimension, false, secondKey)
	require.NoError(t, err)

	r, err := RandomElement()
	require.NoError(t, err)
	v1, err := firstServer.GenerateVerificationMessage(r, firstPayload)
	require.NoError(t, err)
	v2, err := secondServer.GenerateVerificationMessage(r, secondPayload)
	require.NoError(t, err)

	assert.False(t, IsValidShare(v1, v2))
}

func TestVerificationMessageDeterministic(t *testing.T) {
	const dimension = 10
	firstKey, secondKey := testKeyPair(t)
	client, err := NewClient(dimension, firstKey.EncryptionKey(), secondKey.EncryptionKey())
	require.NoError(t, err)

	data := []FieldElement{0, 1, 0, 0, 1, 1, 1, 0, 1, 0}
	firstPayload, _, err := client.Encode(data)
	require.NoError(t, err)

	server, err := NewServer(dimension, true, firstKey)
	require.NoError(t, err)

	r := FieldElement(12345)
	first, err := server.GenerateVerificationMessage(r, firstPayload)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := server.GenerateVerificationMessage(r, firstPayload)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// A fresh server over the same inputs agrees byte for byte.
	other, err := NewServer(dimension, true, firstKey)
	require.NoError(t, err)
	again, err := other.GenerateVerificationMessage(r, firstPayload)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestGenerateVerificationMessageRejectsGarbage(t *testing.T) {
	firstKey, _ := testKeyPair(t)
	server, err := NewServer(10, true, firstKey)
	require.NoError(t, err)

	_, err = server.GenerateVerificationMessage(1, []byte("too short"))
	assert.Error(t, err)

	// Well-formed envelope length, undecryptable contents.
	_, err = server.GenerateVerificationMessage(1, make([]byte, 200))
	assert.Error(t, err)
}

func TestWrongRolePayloadFails(t *testing.T) {
	// A first-role server fed the second processor's seed payload must
	// error out: a 16-byte plaintext is not a full share vector.
	const dimension = 10
	firstKey, secondKey := testKeyPair(t)
	client, err := NewClient(dimension, firstKey.EncryptionKey(), secondKey.EncryptionKey())
	require.NoError(t, err)
	_, secondPayload, err := client.Encode(make([]FieldElement, dimension))
	require.NoError(t, err)

	misroled, err := NewServer(dimension, true, secondKey)
	require.NoError(t, err)
	_, err = misroled.GenerateVerificationMessage(1, secondPayload)
	assert.Error(t, err)
}

func TestEncodeRejectsWrongDimension(t *testing.T) {
	firstKey, secondKey := testKeyPair(t)
	client, err := NewClient(4, firstKey.EncryptionKey(), secondKey.EncryptionKey())
	require.NoError(t, err)

	_, _, err = client.Encode([]FieldElement{1, 0})
	assert.Error(t, err)
}

func TestNewServerRejectsBadDimension(t *testing.T) {
	firstKey, _ := testKeyPair(t)
	_, err := NewServer(0, true, firstKey)
	assert.Error(t, err)
	_, err = NewServer(-3, true, firstKey)
	assert.Error(t, err)
	_, err = NewServer(1<<20, true, firstKey)
	assert.Error(t, err)
}
