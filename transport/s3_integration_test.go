//go:build integration

package transport

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
	minioBucket   = "batches"
)

var (
	minioOnce sync.Once
	minioAddr string
	minioErr  error
)

// getMinio returns the shared MinIO endpoint, starting the container if
// needed. The container is shared across all tests for performance.
func getMinio(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	minioOnce.Do(func() {
		minioAddr, minioErr = startMinioContainer(context.Background())
	})
	if minioErr != nil {
		tb.Fatalf("start minio container: %v", minioErr)
	}
	return minioAddr
}

func startMinioContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start minio container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve minio host: %w", err)
	}
	port, err := container.MappedPort(ctx, "9000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve minio port: %w", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

// newTestS3Transport builds a transport against the shared MinIO container,
// creating the test bucket on first use.
func newTestS3Transport(tb testing.TB) *S3Transport {
	tb.Helper()

	addr := getMinio(tb)
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(minioUser, minioPassword, "")),
	)
	require.NoError(tb, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("http://" + addr)
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(minioBucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		tb.Fatalf("create bucket: %v", err)
	}

	return NewS3Transport(client, minioBucket)
}

func TestS3TransportRoundTrip(t *testing.T) {
	tr := newTestS3Transport(t)
	ctx := context.Background()

	// Large enough to span multiple upload parts.
	content := make([]byte, 6<<20)
	_, err := rand.Read(content)
	require.NoError(t, err)

	key := "test/round-trip/batch.avro"
	w, err := tr.Put(ctx, key)
	require.NoError(t, err)
	_, err = io.Copy(w, bytes.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := tr.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.True(t, bytes.Equal(content, got), "downloaded content differs from upload")
}

func TestS3TransportOverwrite(t *testing.T) {
	tr := newTestS3Transport(t)
	ctx := context.Background()

	key := "test/overwrite/key"
	for _, content := range []string{"first version", "second"} {
		w, err := tr.Put(ctx, key)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	r, err := tr.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, []byte("second"), got)
}

func TestS3TransportGetMissing(t *testing.T) {
	tr := newTestS3Transport(t)

	_, err := tr.Get(context.Background(), "test/absent/nothing.avro")
	require.Error(t, err)
	var notFound *types.NoSuchKey
	assert.ErrorAs(t, err, &notFound)
	assert.Contains(t, err.Error(), "test/absent/nothing.avro")
}

func TestS3TransportPutReportsFailureOnClose(t *testing.T) {
	tr := newTestS3Transport(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, err := tr.Put(ctx, "test/canceled/key")
	require.NoError(t, err)
	_, _ = w.Write([]byte("doomed"))
	assert.Error(t, w.Close())
}
