package snapshot

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// Opener opens the object behind a snapshot URL.
type Opener func(ctx context.Context, u *url.URL) (io.ReadCloser, error)

// OpenURL opens local paths (no scheme or file://), s3://bucket/key and
// gs://bucket/key. Cloud credentials come from the default provider chains.
func OpenURL(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	switch u.Scheme {
	case "", "file":
		return os.Open(u.Path)
	case "s3":
		return openS3(ctx, u.Host, objectKey(u))
	case "gs":
		return openGCS(ctx, u.Host, objectKey(u))
	}
	return nil, errors.Newf("unsupported snapshot scheme %q", u.Scheme)
}

func objectKey(u *url.URL) string {
	return strings.TrimPrefix(u.Path, "/")
}

func openS3(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "error creating AWS session")
	}
	out, err := s3.New(sess).GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error reading s3://%s/%s", bucket, key)
	}
	return out.Body, nil
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	return errors.CombineErrors(r.Reader.Close(), r.client.Close())
}

func openGCS(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	creds, err := google.FindDefaultCredentials(ctx, storage.ScopeReadOnly)
	if err != nil {
		return nil, errors.Wrap(err, "error finding GCP credentials")
	}
	client, err := storage.NewClient(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, errors.Wrap(err, "error creating GCS client")
	}
	r, err := client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "error reading gs://%s/%s", bucket, key)
	}
	return &gcsReader{Reader: r, client: client}, nil
}
