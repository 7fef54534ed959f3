package idl

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketStreamRoundTrip(t *testing.T) {
	// Enough packets to span multiple container blocks.
	const count = 300
	var buf bytes.Buffer
	w, err := NewIngestionPacketWriter(&buf)
	require.NoError(t, err)

	version := "config-v1"
	written := make([]*IngestionDataSharePacket, count)
	for i := range written {
		p := &IngestionDataSharePacket{
			UUID:             uuid.New(),
			EncryptedPayload: []byte{byte(i), byte(i >> 8), 0xee},
			EncryptionKeyID:  "key-1",
			RPit:             int64(i) * 1000,
		}
		if i%2 == 0 {
			p.VersionConfiguration = &version
			p.DeviceNonce = []byte{0xde, 0xad}
		}
		written[i] = p
		require.NoError(t, w.Write(p))
	}
	require.NoError(t, w.Flush())

	r, err := NewIngestionPacketReader(&buf)
	require.NoError(t, err)
	for i := 0; ; i++ {
		p, err := r.Next()
		if err == io.EOF {
			assert.Equal(t, count, i)
			break
		}
		require.NoError(t, err)
		require.Less(t, i, count)
		assert.Equal(t, written[i], p)
	}
}

func TestPacketWriterFlushCommitsTail(t *testing.T) {
	// Below one block's worth of records, nothing past the container
	// header reaches the stream until Flush.
	var buf bytes.Buffer
	w, err := NewValidationPacketWriter(&buf)
	require.NoError(t, err)

	headerLen := buf.Len()
	p := &ValidationPacket{UUID: uuid.New(), FR: 1, GR: 2, HR: 3}
	require.NoError(t, w.Write(p))
	assert.Equal(t, headerLen, buf.Len())

	require.NoError(t, w.Flush())
	assert.Greater(t, buf.Len(), headerLen)

	r, err := NewValidationPacketReader(&buf)
	require.NoError(t, err)
	decoded, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, p, decoded)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestEmptyPacketStream(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewValidationPacketWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	r, err := NewValidationPacketReader(&buf)
	require.NoError(t, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestPacketReaderRejectsGarbage(t *testing.T) {
	_, err := NewIngestionPacketReader(bytes.NewReader([]byte("junk")))
	assert.Error(t, err)
}

func TestValidationReaderRejectsForeignRecords(t *testing.T) {
	// The container is self-describing, so a validation reader pointed at
	// an ingestion packet file decodes records but cannot map the fields.
	var buf bytes.Buffer
	w, err := NewIngestionPacketWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Write(&IngestionDataSharePacket{
		UUID:             uuid.New(),
		EncryptedPayload: []byte{1},
		EncryptionKeyID:  "k",
		RPit:             7,
	}))
	require.NoError(t, w.Flush())

	r, err := NewValidationPacketReader(&buf)
	require.NoError(t, err)
	_, err = r.Next()
	assert.Error(t, err)
}
