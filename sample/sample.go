package sample

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/winstrom/prio-server/batch"
	"github.com/winstrom/prio-server/crypto"
	"github.com/winstrom/prio-server/idl"
	"github.com/winstrom/prio-server/prio"
	"github.com/winstrom/prio-server/transport"
)

// Config describes one sample ingestion batch.
type Config struct {
	// Name, BatchID and Date identify the batch on both transports.
	Name    string
	BatchID uuid.UUID
	Date    time.Time

	// Dimension is the number of value bins; PacketCount the number of
	// simulated contributions.
	Dimension   int
	PacketCount int

	// Epsilon is the differential-privacy parameter recorded in the
	// header. Validation-share generation carries it through unread.
	Epsilon float64

	// First and Second receive the two processors' copies of the batch.
	First  Destination
	Second Destination

	// BatchSigningKey signs both copies, standing in for the ingestion
	// server's key.
	BatchSigningKey *crypto.BatchSigningKey
}

// Destination is one share processor's side of a sample batch.
type Destination struct {
	Transport transport.Transport

	// PacketEncryptionKey encrypts this processor's payload shares.
	PacketEncryptionKey *crypto.PacketEncryptionKey

	// KeyID is recorded as each packet's encryption_key_id.
	KeyID string
}

// GenerateIngestionBatch writes a signed ingestion batch to both
// destinations: a packet file with one random Boolean contribution per
// packet, a header recording the protocol parameters, and the signature
// record over both. It returns the packet UUIDs in file order, identical
// for the two copies, as is each packet's r_pit.
func GenerateIngestionBatch(ctx context.Context, cfg *Config) ([]uuid.UUID, error) {
	if cfg.PacketCount < 0 {
		return nil, fmt.Errorf("invalid packet count %d", cfg.PacketCount)
	}
	client, err := prio.NewClient(cfg.Dimension, cfg.First.PacketEncryptionKey, cfg.Second.PacketEncryptionKey)
	if err != nil {
		return nil, err
	}

	locator := batch.NewIngestion(cfg.Name, cfg.BatchID, cfg.Date)
	first, err := openBatchWriter(ctx, cfg.First.Transport, locator)
	if err != nil {
		return nil, err
	}
	defer first.sidecar.Close()
	second, err := openBatchWriter(ctx, cfg.Second.Transport, locator)
	if err != nil {
		return nil, err
	}
	defer second.sidecar.Close()

	data := make([]prio.FieldElement, cfg.Dimension)
	bits := make([]byte, cfg.Dimension)
	uuids := make([]uuid.UUID, 0, cfg.PacketCount)
	for i := 0; i < cfg.PacketCount; i++ {
		if _, err := rand.Read(bits); err != nil {
			return nil, fmt.Errorf("draw contribution %d: %w", i, err)
		}
		for j, b := range bits {
			data[j] = prio.FieldElement(b & 1)
		}
		firstShare, secondShare, err := client.Encode(data)
		if err != nil {
			return nil, fmt.Errorf("encode contribution %d: %w", i, err)
		}
		rPit, err := prio.RandomElement()
		if err != nil {
			return nil, fmt.Errorf("draw r_pit for contribution %d: %w", i, err)
		}

		id := uuid.New()
		if err := first.writePacket(&idl.IngestionDataSharePacket{
			UUID:             id,
			EncryptedPayload: firstShare,
			EncryptionKeyID:  cfg.First.KeyID,
			RPit:             int64(rPit),
		}); err != nil {
			return nil, err
		}
		if err := second.writePacket(&idl.IngestionDataSharePacket{
			UUID:             id,
			EncryptedPayload: secondShare,
			EncryptionKeyID:  cfg.Second.KeyID,
			RPit:             int64(rPit),
		}); err != nil {
			return nil, err
		}
		uuids = append(uuids, id)
	}

	header := &idl.IngestionHeader{
		BatchUUID:       cfg.BatchID,
		Name:            cfg.Name,
		Bins:            int32(cfg.Dimension),
		Epsilon:         cfg.Epsilon,
		Prime:           prio.Modulus,
		NumberOfServers: 2,
		BatchStartTime:  cfg.Date.UnixMilli(),
		BatchEndTime:    cfg.Date.Add(time.Hour).UnixMilli(),
	}
	if err := first.finish(ctx, header, cfg.BatchSigningKey); err != nil {
		return nil, err
	}
	if err := second.finish(ctx, header, cfg.BatchSigningKey); err != nil {
		return nil, err
	}
	return uuids, nil
}

// batchWriter drives one destination's three files through the same
// write-then-sign path the share processors use for their own output.
type batchWriter struct {
	transport transport.Transport
	locator   batch.Batch
	sidecar   *batch.SidecarWriter
	packets   *idl.IngestionPacketWriter
}

func openBatchWriter(ctx context.Context, t transport.Transport, locator batch.Batch) (*batchWriter, error) {
	sink, err := t.Put(ctx, locator.PacketFileKey())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", locator.PacketFileKey(), err)
	}
	sidecar := batch.NewSidecarWriter(sink)
	packets, err := idl.NewIngestionPacketWriter(sidecar)
	if err != nil {
		sidecar.Close()
		return nil, fmt.Errorf("open ingestion packet stream %s: %w", locator.PacketFileKey(), err)
	}
	return &batchWriter{transport: t, locator: locator, sidecar: sidecar, packets: packets}, nil
}

func (bw *batchWriter) writePacket(p *idl.IngestionDataSharePacket) error {
	if err := bw.packets.Write(p); err != nil {
		return fmt.Errorf("write ingestion packet %s: %w", p.UUID, err)
	}
	return nil
}

// finish commits the packet file, then writes the signed header and the
// signature record covering both files.
func (bw *batchWriter) finish(ctx context.Context, header *idl.IngestionHeader, key *crypto.BatchSigningKey) error {
	if err := bw.packets.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", bw.locator.PacketFileKey(), err)
	}
	if err := bw.sidecar.Close(); err != nil {
		return fmt.Errorf("close %s: %w", bw.locator.PacketFileKey(), err)
	}
	packetSig, err := key.Sign(bw.sidecar.Bytes())
	if err != nil {
		return fmt.Errorf("sign packet file: %w", err)
	}

	headerSink, err := bw.transport.Put(ctx, bw.locator.HeaderKey())
	if err != nil {
		return fmt.Errorf("open %s: %w", bw.locator.HeaderKey(), err)
	}
	headers := batch.NewSidecarWriter(headerSink)
	if err := header.Write(headers); err != nil {
		headers.Close()
		return fmt.Errorf("write %s: %w", bw.locator.HeaderKey(), err)
	}
	if err := headers.Close(); err != nil {
		return fmt.Errorf("close %s: %w", bw.locator.HeaderKey(), err)
	}
	headerSig, err := key.Sign(headers.Bytes())
	if err != nil {
		return fmt.Errorf("sign header: %w", err)
	}

	sigSink, err := bw.transport.Put(ctx, bw.locator.SignatureKey())
	if err != nil {
		return fmt.Errorf("open %s: %w", bw.locator.SignatureKey(), err)
	}
	record := &idl.BatchSignature{
		BatchHeaderSignature: headerSig.Bytes(),
		SignatureOfPackets:   packetSig.Bytes(),
	}
	if err := record.Write(sigSink); err != nil {
		sigSink.Close()
		return fmt.Errorf("write %s: %w", bw.locator.SignatureKey(), err)
	}
	if err := sigSink.Close(); err != nil {
		return fmt.Errorf("close %s: %w", bw.locator.SignatureKey(), err)
	}
	return nil
}
