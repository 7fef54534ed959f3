// Command facilitator runs one side of a privacy-preserving aggregation
// deployment. It can simulate an ingestion server writing signed,
// encrypted batches of secret-shared contributions, and it can run the
// share processor's intake step, which verifies such a batch and emits
// the signed validation batch consumed by the peer processor.
//
// # Subcommands
//
//	generate-ingestion-sample  write a signed sample ingestion batch for both processors
//	batch-intake               verify an ingestion batch and emit the validation batch
//
// # Configuration File
//
// Both subcommands accept --config pointing at a YAML file. Flags
// override the file. A full configuration looks like:
//
//	aggregation: "fake-aggregation"
//	batch_id: "ba4a8112-a14e-4df3-b12e-79b63b3e1e2e"
//	date: "2020/10/31/20/29"
//	role: "both"
//	ingestor:
//	  verification_key: "BIl6j+J6dYttxALdj..."
//	  signing_key: ""
//	first:
//	  ingestion: "s3://ingestion-first"
//	  validation: "/var/lib/facilitator/validation-first"
//	  packet_decryption_key: "BNNOqoU54GPo+1gTPv..."
//	  batch_signing_key: ""
//	second:
//	  ingestion: "s3://ingestion-second"
//	  validation: "/var/lib/facilitator/validation-second"
//	  packet_decryption_key: "BIl6j+J6dYttxALdj..."
//	  batch_signing_key: ""
//	sample:
//	  dimension: 10
//	  packet_count: 100
//	  epsilon: 0.11
//
// Storage locations are local directories, or s3://bucket URLs resolved
// through the ambient AWS credentials.
//
// Keys are base64. Signing keys are PKCS#8 ECDSA P-256 private keys,
// verification keys are X9.63 uncompressed public points, and packet
// decryption keys carry the X9.63 point followed by the scalar. Any key
// left empty where a private key is needed is generated and printed so
// it can be saved for later runs.
//
// # Usage
//
// Generate a hundred-packet sample batch for both processors, creating
// all key material:
//
//	facilitator generate-ingestion-sample \
//	  --first-output /tmp/ingestion-first \
//	  --second-output /tmp/ingestion-second \
//	  --aggregation fake-aggregation \
//	  --batch-id ba4a8112-a14e-4df3-b12e-79b63b3e1e2e \
//	  --date 2020/10/31/20/29
//
// Run intake for the first processor only:
//
//	facilitator batch-intake --config facilitator.yml --role first
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/winstrom/prio-server/batch"
	"github.com/winstrom/prio-server/crypto"
	"github.com/winstrom/prio-server/sample"
	"github.com/winstrom/prio-server/transport"
)

// dateLayout matches the batch storage layout.
const dateLayout = "2006/01/02/15/04"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	var err error
	switch os.Args[1] {
	case "generate-ingestion-sample":
		err = runSample(ctx, os.Args[2:])
	case "batch-intake":
		err = runIntake(ctx, os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: facilitator <subcommand> [flags]

Subcommands:
  generate-ingestion-sample  write a signed sample ingestion batch for both processors
  batch-intake               verify an ingestion batch and emit the validation batch

Run "facilitator <subcommand> -h" for the subcommand's flags.
`)
}

func runSample(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate-ingestion-sample", flag.ExitOnError)
	var (
		configPath  = fs.String("config", "", "Path to YAML configuration file")
		aggregation = fs.String("aggregation", "", "Aggregation name")
		batchID     = fs.String("batch-id", "", "Batch UUID, random when empty")
		date        = fs.String("date", "", "Batch date as YYYY/MM/DD/HH/MM, current time when empty")
		firstOut    = fs.String("first-output", "", "First processor's ingestion storage, a directory or s3://bucket")
		secondOut   = fs.String("second-output", "", "Second processor's ingestion storage")
		dimension   = fs.Int("dimension", 0, "Number of value bins per contribution")
		packetCount = fs.Int("packet-count", 0, "Number of simulated contributions")
		epsilon     = fs.Float64("epsilon", 0, "Differential privacy parameter recorded in the header")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		return err
	}
	override(&cfg.Aggregation, *aggregation)
	override(&cfg.BatchID, *batchID)
	override(&cfg.Date, *date)
	override(&cfg.First.Ingestion, *firstOut)
	override(&cfg.Second.Ingestion, *secondOut)
	if *dimension != 0 {
		cfg.Sample.Dimension = *dimension
	}
	if *packetCount != 0 {
		cfg.Sample.PacketCount = *packetCount
	}
	if *epsilon != 0 {
		cfg.Sample.Epsilon = *epsilon
	}

	if cfg.First.Ingestion == "" || cfg.Second.Ingestion == "" {
		return fmt.Errorf("both processors need ingestion storage (--first-output and --second-output)")
	}

	id, batchDate, err := batchIdentity(cfg, true)
	if err != nil {
		return err
	}

	signingKey, generated, err := loadOrGenerateSigningKey(cfg.Ingestor.SigningKey)
	if err != nil {
		return fmt.Errorf("ingestor signing key: %w", err)
	}
	if generated {
		fmt.Printf("Ingestor signing key: %s\n", signingKey.String())
	}
	fmt.Printf("Ingestor verification key: %s\n", signingKey.VerificationKey().String())

	firstKey, generated, err := loadOrGenerateDecryptionKey(cfg.First.PacketDecryptionKey)
	if err != nil {
		return fmt.Errorf("first packet decryption key: %w", err)
	}
	if generated {
		fmt.Printf("First processor packet decryption key: %s\n", firstKey.String())
	}
	secondKey, generated, err := loadOrGenerateDecryptionKey(cfg.Second.PacketDecryptionKey)
	if err != nil {
		return fmt.Errorf("second packet decryption key: %w", err)
	}
	if generated {
		fmt.Printf("Second processor packet decryption key: %s\n", secondKey.String())
	}

	firstTransport, err := newTransport(ctx, cfg.First.Ingestion)
	if err != nil {
		return err
	}
	secondTransport, err := newTransport(ctx, cfg.Second.Ingestion)
	if err != nil {
		return err
	}

	ids, err := sample.GenerateIngestionBatch(ctx, &sample.Config{
		Name:        cfg.Aggregation,
		BatchID:     id,
		Date:        batchDate,
		Dimension:   cfg.Sample.Dimension,
		PacketCount: cfg.Sample.PacketCount,
		Epsilon:     cfg.Sample.Epsilon,
		First: sample.Destination{
			Transport:           firstTransport,
			PacketEncryptionKey: firstKey.EncryptionKey(),
			KeyID:               "sample-key-0",
		},
		Second: sample.Destination{
			Transport:           secondTransport,
			PacketEncryptionKey: secondKey.EncryptionKey(),
			KeyID:               "sample-key-1",
		},
		BatchSigningKey: signingKey,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Wrote ingestion batch %s at %s with %d packets\n", id, batchDate.Format(dateLayout), len(ids))
	return nil
}

func runIntake(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch-intake", flag.ExitOnError)
	var (
		configPath      = fs.String("config", "", "Path to YAML configuration file")
		aggregation     = fs.String("aggregation", "", "Aggregation name")
		batchID         = fs.String("batch-id", "", "Batch UUID")
		date            = fs.String("date", "", "Batch date as YYYY/MM/DD/HH/MM")
		role            = fs.String("role", "", "Processor role: first, second or both")
		ingestion       = fs.String("ingestion", "", "Ingestion storage for a single-role run")
		validation      = fs.String("validation", "", "Validation storage for a single-role run")
		decryptionKey   = fs.String("packet-decryption-key", "", "Packet decryption key for a single-role run")
		signingKey      = fs.String("batch-signing-key", "", "Batch signing key for a single-role run")
		verificationKey = fs.String("ingestor-verification-key", "", "Ingestion server's verification key")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		return err
	}
	override(&cfg.Aggregation, *aggregation)
	override(&cfg.BatchID, *batchID)
	override(&cfg.Date, *date)
	override(&cfg.Role, *role)
	override(&cfg.Ingestor.VerificationKey, *verificationKey)

	var roles []*RoleConfig
	switch cfg.Role {
	case "first":
		roles = []*RoleConfig{&cfg.First}
	case "second":
		roles = []*RoleConfig{&cfg.Second}
	case "both":
		roles = []*RoleConfig{&cfg.First, &cfg.Second}
	default:
		return fmt.Errorf("invalid role %q, want first, second or both", cfg.Role)
	}
	// The single-role flags are ambiguous when both processors run.
	if cfg.Role != "both" {
		target := roles[0]
		override(&target.Ingestion, *ingestion)
		override(&target.Validation, *validation)
		override(&target.PacketDecryptionKey, *decryptionKey)
		override(&target.BatchSigningKey, *signingKey)
	}

	if cfg.Ingestor.VerificationKey == "" {
		return fmt.Errorf("ingestor verification key is required")
	}
	verification, err := crypto.NewBatchVerificationKeyFromString(cfg.Ingestor.VerificationKey)
	if err != nil {
		return fmt.Errorf("ingestor verification key: %w", err)
	}

	id, batchDate, err := batchIdentity(cfg, false)
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	g, ctx := errgroup.WithContext(ctx)
	for _, rc := range roles {
		ing, err := buildIngestor(ctx, cfg, rc, rc == &cfg.First, id, batchDate, verification, log)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return ing.GenerateValidationShare(ctx)
		})
	}
	return g.Wait()
}

func buildIngestor(ctx context.Context, cfg *Config, rc *RoleConfig, isFirst bool, id uuid.UUID, date time.Time, verification *crypto.BatchVerificationKey, log *slog.Logger) (*batch.Ingestor, error) {
	roleName := "second"
	if isFirst {
		roleName = "first"
	}
	if rc.Ingestion == "" || rc.Validation == "" {
		return nil, fmt.Errorf("%s processor needs ingestion and validation storage", roleName)
	}
	if rc.PacketDecryptionKey == "" {
		return nil, fmt.Errorf("%s processor needs a packet decryption key", roleName)
	}
	decryptionKey, err := crypto.NewPacketDecryptionKeyFromString(rc.PacketDecryptionKey)
	if err != nil {
		return nil, fmt.Errorf("%s packet decryption key: %w", roleName, err)
	}
	signingKey, generated, err := loadOrGenerateSigningKey(rc.BatchSigningKey)
	if err != nil {
		return nil, fmt.Errorf("%s batch signing key: %w", roleName, err)
	}
	if generated {
		fmt.Printf("%s processor batch signing key: %s\n", roleName, signingKey.String())
	}
	fmt.Printf("%s processor verification key: %s\n", roleName, signingKey.VerificationKey().String())

	ingestionTransport, err := newTransport(ctx, rc.Ingestion)
	if err != nil {
		return nil, err
	}
	validationTransport, err := newTransport(ctx, rc.Validation)
	if err != nil {
		return nil, err
	}
	return &batch.Ingestor{
		Name:                    cfg.Aggregation,
		BatchID:                 id,
		Date:                    date,
		Ingestion:               ingestionTransport,
		Validation:              validationTransport,
		IsFirst:                 isFirst,
		PacketDecryptionKey:     decryptionKey,
		BatchSigningKey:         signingKey,
		IngestorVerificationKey: verification,
		Log:                     log,
	}, nil
}

// batchIdentity resolves the batch UUID and date from the configuration.
// Sample generation may invent them; intake must be told which batch to
// process.
func batchIdentity(cfg *Config, generate bool) (uuid.UUID, time.Time, error) {
	var id uuid.UUID
	switch {
	case cfg.BatchID != "":
		parsed, err := uuid.Parse(cfg.BatchID)
		if err != nil {
			return uuid.UUID{}, time.Time{}, fmt.Errorf("invalid batch id %q: %w", cfg.BatchID, err)
		}
		id = parsed
	case generate:
		id = uuid.New()
	default:
		return uuid.UUID{}, time.Time{}, fmt.Errorf("batch id is required")
	}

	var date time.Time
	switch {
	case cfg.Date != "":
		parsed, err := time.ParseInLocation(dateLayout, cfg.Date, time.UTC)
		if err != nil {
			return uuid.UUID{}, time.Time{}, fmt.Errorf("invalid date %q, want YYYY/MM/DD/HH/MM: %w", cfg.Date, err)
		}
		date = parsed
	case generate:
		date = time.Now().UTC().Truncate(time.Minute)
	default:
		return uuid.UUID{}, time.Time{}, fmt.Errorf("date is required")
	}
	return id, date, nil
}

// newTransport resolves a storage location: s3://bucket URLs become S3
// transports using the ambient AWS configuration, anything else is a
// local directory.
func newTransport(ctx context.Context, storage string) (transport.Transport, error) {
	if bucket, ok := strings.CutPrefix(storage, "s3://"); ok {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return transport.NewS3Transport(s3.NewFromConfig(awsCfg), bucket), nil
	}
	return transport.NewFileTransport(storage), nil
}

func loadOrGenerateSigningKey(encoded string) (*crypto.BatchSigningKey, bool, error) {
	if encoded != "" {
		key, err := crypto.NewBatchSigningKeyFromString(encoded)
		if err != nil {
			return nil, false, err
		}
		return key, false, nil
	}
	key, err := crypto.GenerateBatchSigningKey()
	if err != nil {
		return nil, false, err
	}
	return key, true, nil
}

func loadOrGenerateDecryptionKey(encoded string) (*crypto.PacketDecryptionKey, bool, error) {
	if encoded != "" {
		key, err := crypto.NewPacketDecryptionKeyFromString(encoded)
		if err != nil {
			return nil, false, err
		}
		return key, false, nil
	}
	key, err := crypto.GeneratePacketDecryptionKey()
	if err != nil {
		return nil, false, err
	}
	return key, true, nil
}

func loadConfiguration(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
