package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/roasbeef/midnight/internal/interview"
)

// MinioConfig holds the object store connection settings.
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// MinioStore keeps blobs in an S3 compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	log    *slog.Logger
}

// A compile-time check that MinioStore satisfies Store.
var _ Store = (*MinioStore)(nil)

// NewMinioStore connects to the object store and creates the bucket if it
// does not exist yet.
func NewMinioStore(ctx context.Context, cfg MinioConfig,
	log *slog.Logger) (*MinioStore, error) {

	if log == nil {
		log = slog.Default()
	}
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" ||
		cfg.SecretAccessKey == "" || cfg.BucketName == "" {

		return nil, fmt.Errorf("%w: minio endpoint, credentials and "+
			"bucket must all be set", interview.ErrNotConfigured)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create minio client: %v",
			interview.ErrNotConfigured, err)
	}

	log = log.With("component", "blob", "backend", BackendMinio,
		"bucket", cfg.BucketName)

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("%w: check bucket %s: %v",
			interview.ErrStorage, cfg.BucketName, err)
	}
	if !exists {
		log.InfoContext(ctx, "Creating audio bucket")

		err := client.MakeBucket(
			ctx, cfg.BucketName, minio.MakeBucketOptions{},
		)
		if err != nil {
			return nil, fmt.Errorf("%w: create bucket %s: %v",
				interview.ErrStorage, cfg.BucketName, err)
		}
	}

	return &MinioStore{
		client: client,
		bucket: cfg.BucketName,
		log:    log,
	}, nil
}

// isNoSuchKey reports whether err is the object store's missing key error.
func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// Put uploads the blob.
func (s *MinioStore) Put(ctx context.Context, key string, data []byte,
	contentType string) error {

	if err := validKey(key); err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(
		ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("%w: upload blob %s: %v",
			interview.ErrStorage, key, err)
	}

	return nil
}

// Get downloads the blob.
func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(
		ctx, s.bucket, key, minio.GetObjectOptions{},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch blob %s: %v",
			interview.ErrStorage, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	switch {
	case err != nil && isNoSuchKey(err):
		return nil, fmt.Errorf("%w: blob %s", interview.ErrNotFound, key)

	case err != nil:
		return nil, fmt.Errorf("%w: read blob %s: %v",
			interview.ErrStorage, key, err)
	}

	return data, nil
}

// Delete removes the object. The object store treats a missing key as
// already deleted.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}

	err := s.client.RemoveObject(
		ctx, s.bucket, key, minio.RemoveObjectOptions{},
	)
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("%w: delete blob %s: %v",
			interview.ErrStorage, key, err)
	}

	return nil
}
