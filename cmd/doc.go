// Package cmd provides the CLI command for the share processor.
//
// # Commands
//
// facilitator: Runs one side of a privacy-preserving aggregation
// deployment. Its generate-ingestion-sample subcommand simulates an
// ingestion server writing signed, encrypted batches of secret-shared
// contributions; its batch-intake subcommand verifies such a batch and
// writes the signed validation batch for the peer processor.
//
//	go run ./cmd/facilitator generate-ingestion-sample \
//	  --first-output /tmp/ingestion-first --second-output /tmp/ingestion-second
//	go run ./cmd/facilitator batch-intake --config facilitator.yml --role both
//
// # Configuration
//
// Both subcommands support YAML configuration files via the --config
// flag. Command-line flags override config file values.
//
// Example config for running intake for both processor roles:
//
//	aggregation: "fake-aggregation"
//	batch_id: "ba4a8112-a14e-4df3-b12e-79b63b3e1e2e"
//	date: "2020/10/31/20/29"
//	role: "both"
//	ingestor:
//	  verification_key: "BIl6j+J6dYttxALdj..."
//	first:
//	  ingestion: "s3://ingestion-first"
//	  validation: "/var/lib/facilitator/validation-first"
//	  packet_decryption_key: "BNNOqoU54GPo+1gTPv..."
//	second:
//	  ingestion: "s3://ingestion-second"
//	  validation: "/var/lib/facilitator/validation-second"
//	  packet_decryption_key: "BIl6j+J6dYttxALdj..."
package cmd
