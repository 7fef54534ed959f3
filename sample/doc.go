// Package sample generates complete signed ingestion batches with
// randomized Boolean contributions, standing in for a real ingestion
// server. Both share processors receive the same batch identity and
// packet sequence; only the encrypted payload shares differ. It backs
// the end-to-end tests and the CLI's sample subcommand.
package sample
