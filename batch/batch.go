package batch

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// dateLayout renders batch dates as minute-resolution path segments.
const dateLayout = "2006/01/02/15/04"

// Batch names the three storage objects making up one batch. The layout
// is the sole coupling between the producer and the consumer of a batch:
// keys share the stem <name>/<date>/<uuid>.<filename>, where filename is
// "batch" for ingestion batches and "validity_0" or "validity_1" for the
// first and second processor's validation batches.
type Batch struct {
	headerKey     string
	packetFileKey string
	signatureKey  string
}

// NewIngestion locates the ingestion batch written by the ingestion
// server for the given aggregation name, batch id and date.
func NewIngestion(name string, id uuid.UUID, date time.Time) Batch {
	return newBatch(name, id, date, "batch")
}

// NewValidation locates the validation batch a processor in the given
// role writes for the same identity.
func NewValidation(name string, id uuid.UUID, date time.Time, isFirst bool) Batch {
	role := 1
	if isFirst {
		role = 0
	}
	return newBatch(name, id, date, fmt.Sprintf("validity_%d", role))
}

func newBatch(name string, id uuid.UUID, date time.Time, filename string) Batch {
	stem := fmt.Sprintf("%s/%s/%s.%s", name, date.UTC().Format(dateLayout), id, filename)
	return Batch{
		headerKey:     stem,
		packetFileKey: stem + ".avro",
		signatureKey:  stem + ".sig",
	}
}

// HeaderKey returns the key of the single-record header file.
func (b Batch) HeaderKey() string { return b.headerKey }

// PacketFileKey returns the key of the multi-record packet file.
func (b Batch) PacketFileKey() string { return b.packetFileKey }

// SignatureKey returns the key of the single-record signature file.
func (b Batch) SignatureKey() string { return b.signatureKey }
