// Package idl defines the wire records exchanged between aggregation
// participants and their Avro Object Container File encoding.
//
// A batch is three files: a header, a packet file and a signature. Header
// and signature files hold exactly one record; packet files hold any
// number of records framed in the self-describing container, decoded
// sequentially in file order.
//
// Several logically unsigned 32-bit protocol values travel widened inside
// signed 64-bit Avro longs (r_pit on ingestion packets, f_r, g_r and h_r
// on validation packets). Widening happens on write; the range check back
// to 32 bits is the reader's responsibility, since a wider value in a
// stored batch is malformed input rather than a decode failure.
package idl
