// Package batch implements validation-share generation for one share
// processor in a Prio-style aggregation pipeline.
//
// A batch is a triple of storage objects under one key stem: a header
// describing the protocol parameters, a packet file holding one record
// per client contribution, and a signature record covering the raw bytes
// of the other two. Batch computes the key layout, Ingestor verifies a
// signed ingestion batch end to end and emits the corresponding signed
// validation batch, and SidecarWriter captures output bytes for signing
// while they stream to the destination transport.
//
// Every failure aborts the whole batch. Partial validation output is
// meaningless to the downstream aggregation step, so there is no
// skip-and-continue for individual packets and no cleanup of whatever
// output was already written when an error occurred.
package batch
