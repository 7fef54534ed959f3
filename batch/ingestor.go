package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/winstrom/prio-server/crypto"
	"github.com/winstrom/prio-server/idl"
	"github.com/winstrom/prio-server/prio"
	"github.com/winstrom/prio-server/transport"
)

// Ingestor validates one ingestion batch end to end and emits the signed
// validation batch for this processor's role. All fields except Log must
// be set before calling GenerateValidationShare. Instances share no
// state, so distinct batches may be processed concurrently, but two
// Ingestors must never be given the same output batch identity: the
// three output objects are written separately and a concurrent reader
// could observe a mixed pair.
type Ingestor struct {
	// Name is the aggregation the batch belongs to. Together with
	// BatchID and Date it fixes the storage keys on both transports.
	Name    string
	BatchID uuid.UUID
	Date    time.Time

	// Ingestion supplies the input batch, Validation receives the
	// output batch. Their key namespaces are independent.
	Ingestion  transport.Transport
	Validation transport.Transport

	// IsFirst selects the processor role. The first processor decrypts
	// explicit proof shares and the second seed-expanded ones, and each
	// role writes its own validity filename.
	IsFirst bool

	// PacketDecryptionKey opens the packet payloads encrypted to this
	// processor; BatchSigningKey signs the output batch.
	PacketDecryptionKey *crypto.PacketDecryptionKey
	BatchSigningKey     *crypto.BatchSigningKey

	// IngestorVerificationKey authenticates the input batch.
	IngestorVerificationKey *crypto.BatchVerificationKey

	// Log defaults to slog.Default().
	Log *slog.Logger
}

// GenerateValidationShare authenticates the ingestion batch, computes a
// verification message for every packet and writes the signed validation
// batch. Each stage is a hard precondition for the next: the first
// failure aborts the call, and output already written to the validation
// transport stays behind without a signature record referencing it.
func (ing *Ingestor) GenerateValidationShare(ctx context.Context) error {
	log := ing.logger().With("aggregation", ing.Name, "batch", ing.BatchID, "isFirst", ing.IsFirst)
	log.Info("Generating validation share")

	ingestion := NewIngestion(ing.Name, ing.BatchID, ing.Date)

	signature, err := ing.readBatchSignature(ctx, ingestion)
	if err != nil {
		return err
	}

	headerBytes, err := ing.readObject(ctx, ingestion.HeaderKey())
	if err != nil {
		return err
	}
	if !ing.IngestorVerificationKey.Verify(headerBytes, crypto.Signature(signature.BatchHeaderSignature)) {
		return fmt.Errorf("%w: invalid signature on ingestion header %s", ErrCryptography, ingestion.HeaderKey())
	}

	header, err := idl.ReadIngestionHeader(bytes.NewReader(headerBytes))
	if err != nil {
		return fmt.Errorf("parse ingestion header %s: %w", ingestion.HeaderKey(), err)
	}
	if header.Bins <= 0 {
		return fmt.Errorf("%w: invalid bin count %d", ErrMalformedHeader, header.Bins)
	}

	server, err := prio.NewServer(int(header.Bins), ing.IsFirst, ing.PacketDecryptionKey)
	if err != nil {
		return fmt.Errorf("construct share verifier: %w", err)
	}

	// The packet file is read to the end and its signature checked
	// before a single record is decoded. The signature covers the whole
	// byte string, and decoding straight from storage would let the
	// bytes processed diverge from the bytes verified.
	packetFile, err := ing.readObject(ctx, ingestion.PacketFileKey())
	if err != nil {
		return err
	}
	if !ing.IngestorVerificationKey.Verify(packetFile, crypto.Signature(signature.SignatureOfPackets)) {
		return fmt.Errorf("%w: invalid signature on ingestion packet file %s", ErrCryptography, ingestion.PacketFileKey())
	}

	validation := NewValidation(ing.Name, ing.BatchID, ing.Date, ing.IsFirst)

	count, packetSig, err := ing.writeValidationPackets(ctx, validation, server, packetFile)
	if err != nil {
		return err
	}
	headerSig, err := ing.writeValidationHeader(ctx, validation, header)
	if err != nil {
		return err
	}
	if err := ing.writeBatchSignature(ctx, validation, headerSig, packetSig); err != nil {
		return err
	}

	log.Info("Validation share generated", "packets", count)
	return nil
}

// writeValidationPackets streams the trusted packet file through the
// share verifier, writing one validation packet per input packet in file
// order, and returns the packet count and the signature over the output
// file's bytes.
func (ing *Ingestor) writeValidationPackets(ctx context.Context, out Batch, server *prio.Server, packetFile []byte) (int, crypto.Signature, error) {
	reader, err := idl.NewIngestionPacketReader(bytes.NewReader(packetFile))
	if err != nil {
		return 0, nil, fmt.Errorf("open ingestion packet stream: %w", err)
	}

	sink, err := ing.Validation.Put(ctx, out.PacketFileKey())
	if err != nil {
		return 0, nil, fmt.Errorf("open %s: %w", out.PacketFileKey(), err)
	}
	sidecar := NewSidecarWriter(sink)
	defer sidecar.Close()

	writer, err := idl.NewValidationPacketWriter(sidecar)
	if err != nil {
		return 0, nil, fmt.Errorf("open validation packet stream %s: %w", out.PacketFileKey(), err)
	}

	count := 0
	for {
		packet, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, nil, fmt.Errorf("read ingestion packet %d: %w", count, err)
		}

		rPit, err := rPitFieldElement(packet.RPit)
		if err != nil {
			return 0, nil, fmt.Errorf("packet %s: %w", packet.UUID, err)
		}
		vm, err := server.GenerateVerificationMessage(rPit, packet.EncryptedPayload)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: packet %s: %w", ErrPrioVerification, packet.UUID, err)
		}

		validated := &idl.ValidationPacket{
			UUID: packet.UUID,
			FR:   int64(vm.FR),
			GR:   int64(vm.GR),
			HR:   int64(vm.HR),
		}
		if err := writer.Write(validated); err != nil {
			return 0, nil, fmt.Errorf("write validation packet %s: %w", packet.UUID, err)
		}
		count++
	}

	if err := writer.Flush(); err != nil {
		return 0, nil, fmt.Errorf("flush %s: %w", out.PacketFileKey(), err)
	}
	if err := sidecar.Close(); err != nil {
		return 0, nil, fmt.Errorf("close %s: %w", out.PacketFileKey(), err)
	}

	sig, err := ing.BatchSigningKey.Sign(sidecar.Bytes())
	if err != nil {
		return 0, nil, fmt.Errorf("%w: sign validation packet file: %w", ErrCryptography, err)
	}
	return count, sig, nil
}

// writeValidationHeader writes the output header and returns the
// signature over its bytes. Protocol parameters carry over verbatim from
// the trusted input header; the collection window does not describe the
// validation batch and is dropped.
func (ing *Ingestor) writeValidationHeader(ctx context.Context, out Batch, header *idl.IngestionHeader) (crypto.Signature, error) {
	sink, err := ing.Validation.Put(ctx, out.HeaderKey())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", out.HeaderKey(), err)
	}
	sidecar := NewSidecarWriter(sink)
	defer sidecar.Close()

	validationHeader := &idl.ValidationHeader{
		BatchUUID:       header.BatchUUID,
		Name:            header.Name,
		Bins:            header.Bins,
		Epsilon:         header.Epsilon,
		Prime:           header.Prime,
		NumberOfServers: header.NumberOfServers,
		HammingWeight:   header.HammingWeight,
	}
	if err := validationHeader.Write(sidecar); err != nil {
		return nil, fmt.Errorf("write %s: %w", out.HeaderKey(), err)
	}
	if err := sidecar.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", out.HeaderKey(), err)
	}

	sig, err := ing.BatchSigningKey.Sign(sidecar.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: sign validation header: %w", ErrCryptography, err)
	}
	return sig, nil
}

// writeBatchSignature publishes the signature record last, so a reader
// that finds it can expect the header and packet file to be complete.
func (ing *Ingestor) writeBatchSignature(ctx context.Context, out Batch, headerSig, packetSig crypto.Signature) error {
	sink, err := ing.Validation.Put(ctx, out.SignatureKey())
	if err != nil {
		return fmt.Errorf("open %s: %w", out.SignatureKey(), err)
	}
	defer sink.Close()

	record := &idl.BatchSignature{
		BatchHeaderSignature: headerSig.Bytes(),
		SignatureOfPackets:   packetSig.Bytes(),
	}
	if err := record.Write(sink); err != nil {
		return fmt.Errorf("write %s: %w", out.SignatureKey(), err)
	}
	if err := sink.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out.SignatureKey(), err)
	}
	return nil
}

// rPitFieldElement narrows the widened transit value back to the
// unsigned 32-bit range the protocol defines, then embeds it in the
// field. Out-of-range values are rejected, never truncated.
func rPitFieldElement(raw int64) (prio.FieldElement, error) {
	if raw < 0 || raw > math.MaxUint32 {
		return 0, fmt.Errorf("%w: r_pit %d outside unsigned 32-bit range", ErrMalformedDataPacket, raw)
	}
	return prio.Reduce(uint64(raw)), nil
}

func (ing *Ingestor) readObject(ctx context.Context, key string) ([]byte, error) {
	r, err := ing.Ingestion.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (ing *Ingestor) readBatchSignature(ctx context.Context, b Batch) (*idl.BatchSignature, error) {
	r, err := ing.Ingestion.Get(ctx, b.SignatureKey())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", b.SignatureKey(), err)
	}
	defer r.Close()

	signature, err := idl.ReadBatchSignature(r)
	if err != nil {
		return nil, fmt.Errorf("parse batch signature %s: %w", b.SignatureKey(), err)
	}
	return signature, nil
}

func (ing *Ingestor) logger() *slog.Logger {
	if ing.Log != nil {
		return ing.Log
	}
	return slog.Default()
}
