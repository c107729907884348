package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3CatalogState implements CatalogState backed by S3
type S3CatalogState struct {
	bucket string
	key    string
	s3     objectGetter
}

func NewS3CatalogState(s3Client objectGetter, bucket, key string) *S3CatalogState {
	return &S3CatalogState{
		bucket: bucket,
		key:    key,
		s3:     s3Client,
	}
}

func (s *S3CatalogState) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog object from S3: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// S3Archive writes each record as <prefix><session id>/<record id>.json.
type S3Archive struct {
	bucket string
	prefix string
	s3     objectPutter
}

func NewS3Archive(s3Client objectPutter, bucket, prefix string) *S3Archive {
	return &S3Archive{
		bucket: bucket,
		prefix: prefix,
		s3:     s3Client,
	}
}

func (s *S3Archive) Key(rec PlanRecord) string {
	return s.prefix + path.Join(rec.SessionID, rec.ID+".json")
}

func (s *S3Archive) Save(ctx context.Context, rec PlanRecord) error {
	body, err := rec.planJSON()
	if err != nil {
		return err
	}
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(rec)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"session-id": rec.SessionID,
			"created-at": rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put plan object to S3: %w", err)
	}
	return nil
}

func (s *S3Archive) Close() error { return nil }
