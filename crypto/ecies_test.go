package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GeneratePacketDecryptionKey()
	require.NoError(t, err)

	plaintext := []byte("data share payload")
	msg, err := Encrypt(key.EncryptionKey(), plaintext)
	require.NoError(t, err)

	decrypted, err := Decrypt(key, msg)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	key, err := GeneratePacketDecryptionKey()
	require.NoError(t, err)
	wrong, err := GeneratePacketDecryptionKey()
	require.NoError(t, err)

	msg, err := Encrypt(key.EncryptionKey(), []byte("for the first processor only"))
	require.NoError(t, err)

	_, err = Decrypt(wrong, msg)
	assert.Error(t, err)
}

func TestEncryptedMessageBytesRoundTrip(t *testing.T) {
	key, err := GeneratePacketDecryptionKey()
	require.NoError(t, err)

	msg, err := Encrypt(key.EncryptionKey(), []byte("serialized through avro"))
	require.NoError(t, err)

	parsed, err := ParseEncryptedMessage(msg.Bytes())
	require.NoError(t, err)
	assert.Equal(t, msg.EphemeralPublicKey, parsed.EphemeralPublicKey)
	assert.Equal(t, msg.Nonce, parsed.Nonce)
	assert.Equal(t, msg.Ciphertext, parsed.Ciphertext)

	decrypted, err := Decrypt(key, parsed)
	require.NoError(t, err)
	assert.Equal(t, []byte("serialized through avro"), decrypted)
}

func TestPacketEncryptionKeyStringRoundTrip(t *testing.T) {
	key, err := GeneratePacketDecryptionKey()
	require.NoError(t, err)
	ek := key.EncryptionKey()

	parsed, err := NewPacketEncryptionKeyFromString(ek.String())
	require.NoError(t, err)
	assert.Equal(t, ek.Bytes(), parsed.Bytes())

	// Encrypting to the parsed key still decrypts with the original pair.
	msg, err := Encrypt(parsed, []byte("cross check"))
	require.NoError(t, err)
	plaintext, err := Decrypt(key, msg)
	require.NoError(t, err)
	assert.Equal(t, []byte("cross check"), plaintext)
}

func TestPacketDecryptionKeyStringRoundTrip(t *testing.T) {
	key, err := GeneratePacketDecryptionKey()
	require.NoError(t, err)

	parsed, err := NewPacketDecryptionKeyFromString(key.String())
	require.NoError(t, err)
	assert.Equal(t, key.Bytes(), parsed.Bytes())
}

func TestPacketDecryptionKeyRejectsMismatchedPoint(t *testing.T) {
	a, err := GeneratePacketDecryptionKey()
	require.NoError(t, err)
	b, err := GeneratePacketDecryptionKey()
	require.NoError(t, err)

	// Pair a's public point with b's private scalar.
	mixed := append(a.EncryptionKey().Bytes(), b.Bytes()[65:]...)
	_, err = NewPacketDecryptionKeyFromBytes(mixed)
	assert.ErrorContains(t, err, "does not match")
}

func TestPacketDecryptionKeyRejectsWrongLength(t *testing.T) {
	_, err := NewPacketDecryptionKeyFromBytes(make([]byte, 96))
	assert.Error(t, err)
	_, err = NewPacketDecryptionKeyFromBytes(nil)
	assert.Error(t, err)
}
