package idl

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/linkedin/goavro/v2"
)

// IngestionHeader describes one ingestion batch: its identity and the
// protocol parameters every packet in the batch was encoded under.
type IngestionHeader struct {
	BatchUUID       uuid.UUID
	Name            string
	Bins            int32
	Epsilon         float64
	Prime           int64
	NumberOfServers int32
	HammingWeight   *int32
	BatchStartTime  int64
	BatchEndTime    int64
}

// IngestionDataSharePacket carries one client contribution's secret share:
// an identity, the packet evaluation randomness (widened to a long) and
// the payload encrypted to this processor. EncryptionKeyID names the key
// the ingestion server used; VersionConfiguration and DeviceNonce pass
// through validation untouched.
type IngestionDataSharePacket struct {
	UUID                 uuid.UUID
	EncryptedPayload     []byte
	EncryptionKeyID      string
	RPit                 int64
	VersionConfiguration *string
	DeviceNonce          []byte
}

// BatchSignature holds the two signatures covering a batch: one over the
// raw header file bytes and one over the raw packet file bytes. Both
// ingestion servers and share processors write this record shape.
type BatchSignature struct {
	BatchHeaderSignature []byte
	SignatureOfPackets   []byte
}

// ValidationHeader restates an ingestion header's protocol parameters over
// the validation batch this processor produced.
type ValidationHeader struct {
	BatchUUID       uuid.UUID
	Name            string
	Bins            int32
	Epsilon         float64
	Prime           int64
	NumberOfServers int32
	HammingWeight   *int32
}

// ValidationPacket carries one packet's verification message: the f, g and
// h share evaluations, each widened to a long.
type ValidationPacket struct {
	UUID uuid.UUID
	FR   int64
	GR   int64
	HR   int64
}

// ReadIngestionHeader decodes the single header record from r.
func ReadIngestionHeader(r io.Reader) (*IngestionHeader, error) {
	record, err := readOne(r)
	if err != nil {
		return nil, fmt.Errorf("read ingestion header: %w", err)
	}
	return ingestionHeaderFromRecord(record)
}

// Write encodes the header as a single-record container file.
func (h *IngestionHeader) Write(w io.Writer) error {
	return writeOne(w, ingestionHeaderSchema, map[string]interface{}{
		"batch_uuid":        h.BatchUUID.String(),
		"name":              h.Name,
		"bins":              h.Bins,
		"epsilon":           h.Epsilon,
		"prime":             h.Prime,
		"number_of_servers": h.NumberOfServers,
		"hamming_weight":    optionalIntUnion(h.HammingWeight),
		"batch_start_time":  h.BatchStartTime,
		"batch_end_time":    h.BatchEndTime,
	})
}

// ReadBatchSignature decodes the single signature record from r.
func ReadBatchSignature(r io.Reader) (*BatchSignature, error) {
	record, err := readOne(r)
	if err != nil {
		return nil, fmt.Errorf("read batch signature: %w", err)
	}
	f := fields{record: record}
	sig := &BatchSignature{
		BatchHeaderSignature: f.bytesField("batch_header_signature"),
		SignatureOfPackets:   f.bytesField("signature_of_packets"),
	}
	if f.err != nil {
		return nil, fmt.Errorf("read batch signature: %w", f.err)
	}
	return sig, nil
}

// Write encodes the signature as a single-record container file.
func (s *BatchSignature) Write(w io.Writer) error {
	return writeOne(w, batchSignatureSchema, map[string]interface{}{
		"batch_header_signature": s.BatchHeaderSignature,
		"signature_of_packets":   s.SignatureOfPackets,
	})
}

// ReadValidationHeader decodes the single header record from r.
func ReadValidationHeader(r io.Reader) (*ValidationHeader, error) {
	record, err := readOne(r)
	if err != nil {
		return nil, fmt.Errorf("read validation header: %w", err)
	}
	f := fields{record: record}
	h := &ValidationHeader{
		BatchUUID:       f.uuidField("batch_uuid"),
		Name:            f.stringField("name"),
		Bins:            f.intField("bins"),
		Epsilon:         f.doubleField("epsilon"),
		Prime:           f.longField("prime"),
		NumberOfServers: f.intField("number_of_servers"),
		HammingWeight:   f.optionalIntField("hamming_weight"),
	}
	if f.err != nil {
		return nil, fmt.Errorf("read validation header: %w", f.err)
	}
	return h, nil
}

// Write encodes the header as a single-record container file.
func (h *ValidationHeader) Write(w io.Writer) error {
	return writeOne(w, validationHeaderSchema, map[string]interface{}{
		"batch_uuid":        h.BatchUUID.String(),
		"name":              h.Name,
		"bins":              h.Bins,
		"epsilon":           h.Epsilon,
		"prime":             h.Prime,
		"number_of_servers": h.NumberOfServers,
		"hamming_weight":    optionalIntUnion(h.HammingWeight),
	})
}

func ingestionHeaderFromRecord(record map[string]interface{}) (*IngestionHeader, error) {
	f := fields{record: record}
	h := &IngestionHeader{
		BatchUUID:       f.uuidField("batch_uuid"),
		Name:            f.stringField("name"),
		Bins:            f.intField("bins"),
		Epsilon:         f.doubleField("epsilon"),
		Prime:           f.longField("prime"),
		NumberOfServers: f.intField("number_of_servers"),
		HammingWeight:   f.optionalIntField("hamming_weight"),
		BatchStartTime:  f.longField("batch_start_time"),
		BatchEndTime:    f.longField("batch_end_time"),
	}
	if f.err != nil {
		return nil, fmt.Errorf("read ingestion header: %w", f.err)
	}
	return h, nil
}

func ingestionPacketFromRecord(record map[string]interface{}) (*IngestionDataSharePacket, error) {
	f := fields{record: record}
	p := &IngestionDataSharePacket{
		UUID:                 f.uuidField("uuid"),
		EncryptedPayload:     f.bytesField("encrypted_payload"),
		EncryptionKeyID:      f.stringField("encryption_key_id"),
		RPit:                 f.longField("r_pit"),
		VersionConfiguration: f.optionalStringField("version_configuration"),
		DeviceNonce:          f.optionalBytesField("device_nonce"),
	}
	if f.err != nil {
		return nil, fmt.Errorf("read data share packet: %w", f.err)
	}
	return p, nil
}

func (p *IngestionDataSharePacket) record() map[string]interface{} {
	return map[string]interface{}{
		"uuid":                  p.UUID.String(),
		"encrypted_payload":     p.EncryptedPayload,
		"encryption_key_id":     p.EncryptionKeyID,
		"r_pit":                 p.RPit,
		"version_configuration": optionalStringUnion(p.VersionConfiguration),
		"device_nonce":          optionalBytesUnion(p.DeviceNonce),
	}
}

func validationPacketFromRecord(record map[string]interface{}) (*ValidationPacket, error) {
	f := fields{record: record}
	p := &ValidationPacket{
		UUID: f.uuidField("uuid"),
		FR:   f.longField("f_r"),
		GR:   f.longField("g_r"),
		HR:   f.longField("h_r"),
	}
	if f.err != nil {
		return nil, fmt.Errorf("read validation packet: %w", f.err)
	}
	return p, nil
}

func (p *ValidationPacket) record() map[string]interface{} {
	return map[string]interface{}{
		"uuid": p.UUID.String(),
		"f_r":  p.FR,
		"g_r":  p.GR,
		"h_r":  p.HR,
	}
}

// readOne opens a container stream and decodes exactly one record.
func readOne(r io.Reader) (map[string]interface{}, error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, err
	}
	if !ocf.Scan() {
		if err := ocf.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("container holds no records")
	}
	datum, err := ocf.Read()
	if err != nil {
		return nil, err
	}
	record, ok := datum.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected datum type %T", datum)
	}
	return record, nil
}

// writeOne writes a single record as a complete container stream.
func writeOne(w io.Writer, schema string, record map[string]interface{}) error {
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{W: w, Schema: schema})
	if err != nil {
		return fmt.Errorf("open container: %w", err)
	}
	if err := ocf.Append([]interface{}{record}); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// fields decodes typed values out of a goavro native record, remembering
// the first failure so record constructors can assign every field and
// check once.
type fields struct {
	record map[string]interface{}
	err    error
}

func (f *fields) fail(name string, v interface{}, want string) {
	if f.err == nil {
		f.err = fmt.Errorf("field %s: got %T, want %s", name, v, want)
	}
}

func (f *fields) stringField(name string) string {
	v, ok := f.record[name].(string)
	if !ok {
		f.fail(name, f.record[name], "string")
	}
	return v
}

func (f *fields) bytesField(name string) []byte {
	v, ok := f.record[name].([]byte)
	if !ok {
		f.fail(name, f.record[name], "bytes")
	}
	return v
}

func (f *fields) intField(name string) int32 {
	v, ok := f.record[name].(int32)
	if !ok {
		f.fail(name, f.record[name], "int")
	}
	return v
}

func (f *fields) longField(name string) int64 {
	v, ok := f.record[name].(int64)
	if !ok {
		f.fail(name, f.record[name], "long")
	}
	return v
}

func (f *fields) doubleField(name string) float64 {
	v, ok := f.record[name].(float64)
	if !ok {
		f.fail(name, f.record[name], "double")
	}
	return v
}

func (f *fields) uuidField(name string) uuid.UUID {
	s := f.stringField(name)
	if f.err != nil {
		return uuid.UUID{}
	}
	id, err := uuid.Parse(s)
	if err != nil {
		if f.err == nil {
			f.err = fmt.Errorf("field %s: %w", name, err)
		}
		return uuid.UUID{}
	}
	return id
}

func (f *fields) optionalIntField(name string) *int32 {
	branch, ok := f.unionBranch(name, "int")
	if !ok {
		return nil
	}
	v, ok := branch.(int32)
	if !ok {
		f.fail(name, branch, "int")
		return nil
	}
	return &v
}

func (f *fields) optionalStringField(name string) *string {
	branch, ok := f.unionBranch(name, "string")
	if !ok {
		return nil
	}
	v, ok := branch.(string)
	if !ok {
		f.fail(name, branch, "string")
		return nil
	}
	return &v
}

func (f *fields) optionalBytesField(name string) []byte {
	branch, ok := f.unionBranch(name, "bytes")
	if !ok {
		return nil
	}
	v, ok := branch.([]byte)
	if !ok {
		f.fail(name, branch, "bytes")
		return nil
	}
	return v
}

// unionBranch unwraps goavro's union encoding: nil for the null branch, a
// single-entry map keyed by type name otherwise.
func (f *fields) unionBranch(name, branchName string) (interface{}, bool) {
	raw := f.record[name]
	if raw == nil {
		return nil, false
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		f.fail(name, raw, "union")
		return nil, false
	}
	branch, ok := m[branchName]
	if !ok {
		f.fail(name, raw, "union branch "+branchName)
		return nil, false
	}
	return branch, true
}

func optionalIntUnion(v *int32) interface{} {
	if v == nil {
		return nil
	}
	return map[string]interface{}{"int": *v}
}

func optionalStringUnion(v *string) interface{} {
	if v == nil {
		return nil
	}
	return map[string]interface{}{"string": *v}
}

func optionalBytesUnion(v []byte) interface{} {
	if v == nil {
		return nil
	}
	return map[string]interface{}{"bytes": v}
}
