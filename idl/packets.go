package idl

import (
	"fmt"
	"io"

	"github.com/linkedin/goavro/v2"
)

// packetBlockSize is how many packet records accumulate before the writer
// commits a container block to the underlying stream.
const packetBlockSize = 128

// IngestionPacketReader decodes ingestion data-share packets from a
// container stream in file order.
type IngestionPacketReader struct {
	ocf *goavro.OCFReader
}

// NewIngestionPacketReader opens a packet container stream. A stream whose
// container framing or schema is unreadable fails here rather than on the
// first Next call.
func NewIngestionPacketReader(r io.Reader) (*IngestionPacketReader, error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, fmt.Errorf("open packet container: %w", err)
	}
	return &IngestionPacketReader{ocf: ocf}, nil
}

// Next returns the next packet, or io.EOF at clean end of stream. Any
// other error means the stream is corrupt past this point; the caller
// should not continue.
func (pr *IngestionPacketReader) Next() (*IngestionDataSharePacket, error) {
	record, err := nextRecord(pr.ocf)
	if err != nil {
		return nil, err
	}
	return ingestionPacketFromRecord(record)
}

// ValidationPacketReader decodes validation packets from a container
// stream in file order.
type ValidationPacketReader struct {
	ocf *goavro.OCFReader
}

// NewValidationPacketReader opens a packet container stream.
func NewValidationPacketReader(r io.Reader) (*ValidationPacketReader, error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, fmt.Errorf("open packet container: %w", err)
	}
	return &ValidationPacketReader{ocf: ocf}, nil
}

// Next returns the next packet, or io.EOF at clean end of stream.
func (pr *ValidationPacketReader) Next() (*ValidationPacket, error) {
	record, err := nextRecord(pr.ocf)
	if err != nil {
		return nil, err
	}
	return validationPacketFromRecord(record)
}

func nextRecord(ocf *goavro.OCFReader) (map[string]interface{}, error) {
	if !ocf.Scan() {
		if err := ocf.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	datum, err := ocf.Read()
	if err != nil {
		return nil, err
	}
	record, ok := datum.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected packet datum type %T", datum)
	}
	return record, nil
}

// IngestionPacketWriter encodes ingestion data-share packets into a
// container stream, committing a block every packetBlockSize records.
// Flush must be called after the last packet or the tail block is lost.
type IngestionPacketWriter struct {
	ocf     *goavro.OCFWriter
	pending []interface{}
}

// NewIngestionPacketWriter starts a packet container stream on w. The
// container header is written immediately.
func NewIngestionPacketWriter(w io.Writer) (*IngestionPacketWriter, error) {
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{W: w, Schema: ingestionDataSharePacketSchema})
	if err != nil {
		return nil, fmt.Errorf("open packet container: %w", err)
	}
	return &IngestionPacketWriter{ocf: ocf}, nil
}

// Write appends one packet to the stream.
func (pw *IngestionPacketWriter) Write(p *IngestionDataSharePacket) error {
	pw.pending = append(pw.pending, p.record())
	if len(pw.pending) < packetBlockSize {
		return nil
	}
	return pw.commit()
}

// Flush commits any buffered records to the underlying stream.
func (pw *IngestionPacketWriter) Flush() error {
	if len(pw.pending) == 0 {
		return nil
	}
	return pw.commit()
}

func (pw *IngestionPacketWriter) commit() error {
	if err := pw.ocf.Append(pw.pending); err != nil {
		return fmt.Errorf("append packet block: %w", err)
	}
	pw.pending = pw.pending[:0]
	return nil
}

// ValidationPacketWriter encodes validation packets into a container
// stream, committing a block every packetBlockSize records. Flush must be
// called after the last packet.
type ValidationPacketWriter struct {
	ocf     *goavro.OCFWriter
	pending []interface{}
}

// NewValidationPacketWriter starts a packet container stream on w.
func NewValidationPacketWriter(w io.Writer) (*ValidationPacketWriter, error) {
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{W: w, Schema: validationPacketSchema})
	if err != nil {
		return nil, fmt.Errorf("open packet container: %w", err)
	}
	return &ValidationPacketWriter{ocf: ocf}, nil
}

// Write appends one packet to the stream.
func (pw *ValidationPacketWriter) Write(p *ValidationPacket) error {
	pw.pending = append(pw.pending, p.record())
	if len(pw.pending) < packetBlockSize {
		return nil
	}
	return pw.commit()
}

// Flush commits any buffered records to the underlying stream.
func (pw *ValidationPacketWriter) Flush() error {
	if len(pw.pending) == 0 {
		return nil
	}
	return pw.commit()
}

func (pw *ValidationPacketWriter) commit() error {
	if err := pw.ocf.Append(pw.pending); err != nil {
		return fmt.Errorf("append packet block: %w", err)
	}
	pw.pending = pw.pending[:0]
	return nil
}
