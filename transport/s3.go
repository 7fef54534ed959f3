package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Transport stores objects in a single S3 bucket, using the storage key
// verbatim as the object key.
type S3Transport struct {
	bucket   string
	client   *s3.Client
	uploader *manager.Uploader
}

var _ Transport = (*S3Transport)(nil)

// NewS3Transport returns a transport over the given bucket.
func NewS3Transport(client *s3.Client, bucket string) *S3Transport {
	return &S3Transport{
		bucket:   bucket,
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

// Get opens the object stored at key.
func (t *S3Transport) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", t.bucket, key, err)
	}
	return out.Body, nil
}

// Put starts a streaming upload to key. Bytes written feed a multipart
// upload running in the background; Close completes the upload and
// reports its outcome.
func (t *S3Transport) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		_, err := t.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(t.bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		if err != nil {
			err = fmt.Errorf("put s3://%s/%s: %w", t.bucket, key, err)
		}
		// Unblocks writers still feeding the pipe when the upload dies
		// early; a nil error leaves them failing with ErrClosedPipe.
		pr.CloseWithError(err)
		w.err = err
	}()
	return w, nil
}

type s3Writer struct {
	pw   *io.PipeWriter
	done chan struct{}
	err  error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Close signals end of input and waits for the upload to finish.
func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	<-w.done
	return w.err
}
