package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slideshow-server/core"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

const slidesObject = "slides.json"

// objectClient is the part of *s3.Client the store uses.
type objectClient interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// s3Store keeps the whole collection in a single object so one PutObject replaces it.
type s3Store struct {
	s3Client  objectClient
	bucket    string
	prefix    string
	legacyKey string
	mu        sync.Mutex
}

// NewStore creates an S3-backed store using the default AWS credential chain.
func NewStore(ctx context.Context, bucketName, prefix, legacyKey string) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to load SDK config: %v", core.ErrStorageUnavailable, err)
	}
	return newStoreWithClient(s3.NewFromConfig(cfg), bucketName, prefix, legacyKey), nil
}

func newStoreWithClient(client objectClient, bucketName, prefix, legacyKey string) *s3Store {
	return &s3Store{
		s3Client:  client,
		bucket:    bucketName,
		prefix:    prefix,
		legacyKey: legacyKey,
	}
}

func (s *s3Store) slidesKey() string {
	return s.prefix + slidesObject
}

func (s *s3Store) legacyObjectKey() string {
	return s.prefix + s.legacyKey + ".json"
}

func (s *s3Store) Initialize(ctx context.Context) error {
	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		logrus.WithError(err).WithField("bucket", s.bucket).Error("Slides bucket not reachable")
		return fmt.Errorf("%w: bucket %s: %v", core.ErrStorageUnavailable, s.bucket, err)
	}
	return nil
}

func (s *s3Store) SaveAll(ctx context.Context, slides []core.Slide) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(slides))
	for _, slide := range slides {
		if seen[slide.ID] {
			return fmt.Errorf("%w: duplicate slide id %s", core.ErrStorageWriteFailed, slide.ID)
		}
		seen[slide.ID] = true
	}

	data, err := json.Marshal(core.Numbered(slides))
	if err != nil {
		return fmt.Errorf("%w: failed to marshal slides: %v", core.ErrStorageWriteFailed, err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.slidesKey()),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"bucket":      s.bucket,
			"slide_count": len(slides),
		}).Error("Failed to upload slides")
		return fmt.Errorf("%w: failed to upload slides: %v", core.ErrStorageWriteFailed, err)
	}
	return nil
}

func (s *s3Store) LoadAll(ctx context.Context) ([]core.Slide, error) {
	data, err := s.get(ctx, s.slidesKey())
	if isNotFound(err) {
		return []core.Slide{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slides: %w", err)
	}

	var slides []core.Slide
	if err := json.Unmarshal(data, &slides); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slides: %w", err)
	}
	if slides == nil {
		slides = []core.Slide{}
	}
	return slides, nil
}

func (s *s3Store) ReadLegacy(ctx context.Context) ([]byte, error) {
	data, err := s.get(ctx, s.legacyObjectKey())
	if isNotFound(err) {
		return nil, core.ErrLegacyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get legacy slides: %w", err)
	}
	return data, nil
}

func (s *s3Store) ClearLegacy(ctx context.Context) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.legacyObjectKey()),
	})
	if err != nil {
		return fmt.Errorf("failed to delete legacy slides: %w", err)
	}
	return nil
}

func (s *s3Store) Close() error {
	return nil
}

func (s *s3Store) get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
