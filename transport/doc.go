// Package transport provides byte-stream access to the storage backends
// that hold ingestion and validation batches.
//
// A Transport addresses objects by the slash-separated keys produced by
// the batch locator and promises nothing about listing, deletion, or
// atomicity across keys. Two implementations are provided: FileTransport
// for local directories and S3Transport for S3-compatible object stores.
package transport
