package cache

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/paramsync/pkg/log"
	"github.com/autopeer-io/paramsync/pkg/options"
)

var _ Store = (*MinIOStore)(nil)

// ObjectPrefix is the bucket prefix under which cache objects live.
const ObjectPrefix = "params/"

// MinIOStore keeps cache entries as objects in an S3 bucket so several
// ground stations can share them. Object writes are atomic on S3.
type MinIOStore struct {
	client     *minio.Client
	bucketName string
}

func NewMinIOStore(opts *options.S3Options) (*MinIOStore, error) {
	minioOpts := &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	}
	if opts.InsecureSkipVerify {
		minioOpts.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := minio.New(opts.Endpoint, minioOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOStore{client: client, bucketName: opts.BucketName}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating", "bucket", s.bucketName)
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// ObjectKey returns the object name holding key's entry.
func ObjectKey(key VehicleKey) string {
	return path.Join(ObjectPrefix, key.FileName())
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *MinIOStore) Load(ctx context.Context, key VehicleKey) (*Entry, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, ObjectKey(key), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cache object for %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache object for %s: %w", key, err)
	}
	return Decode(key, data)
}

func (s *MinIOStore) Save(ctx context.Context, key VehicleKey, entry *Entry) error {
	e := *entry
	e.Key = key
	data, err := Encode(&e)
	if err != nil {
		return fmt.Errorf("failed to encode cache for %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, s.bucketName, ObjectKey(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/cbor"})
	if err != nil {
		return fmt.Errorf("failed to put cache object for %s: %w", key, err)
	}
	return nil
}

func (s *MinIOStore) Delete(ctx context.Context, key VehicleKey) error {
	if _, err := s.client.StatObject(ctx, s.bucketName, ObjectKey(key), minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to stat cache object for %s: %w", key, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, ObjectKey(key), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove cache object for %s: %w", key, err)
	}
	return nil
}

func (s *MinIOStore) List(ctx context.Context) ([]Entry, error) {
	var (
		out  []Entry
		errs []error
	)
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Prefix: ObjectPrefix, Recursive: true}) {
		if obj.Err != nil {
			return out, fmt.Errorf("failed to list cache objects: %w", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, ObjectPrefix)
		if !strings.HasSuffix(name, FileExtension) {
			continue
		}
		key, err := ParseVehicleKey(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		e, err := s.Load(ctx, key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
			continue
		}
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, utilerrors.NewAggregate(errs)
}
