package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// multipartThreshold is the file size above which uploads switch to the
// multipart API. 8MB keeps part counts low for typical city snapshots.
const multipartThreshold = 8 * 1024 * 1024

// StorageType identifies the flavor of S3-compatible backend.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinIO StorageType = "minio"
	StorageTypeR2    StorageType = "r2"
)

// S3Config holds configuration for an S3-compatible backend.
type S3Config struct {
	Type      StorageType
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

// S3Store implements ObjectStore against any S3-compatible service
// (AWS S3, MinIO, R2) using a custom endpoint and path-style addressing.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates a storage client for the configured endpoint.
func NewS3Store(cfg *S3Config) (*S3Store, error) {
	endpoint := normalizeEndpoint(cfg.Endpoint)

	region := cfg.Region
	if region == "" {
		if cfg.Type == StorageTypeR2 {
			region = "auto"
		} else {
			region = "us-east-1"
		}
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s", scheme, endpoint)

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// normalizeEndpoint strips protocol prefix, path, and trailing slashes.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return strings.TrimSuffix(endpoint, "/")
}

// EnsureBucket verifies the bucket is reachable, creating it when the
// backend supports bucket creation. R2 buckets must exist already.
func (s *S3Store) EnsureBucket(ctx context.Context, storeType StorageType) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	if storeType == StorageTypeR2 {
		return fmt.Errorf("bucket %s does not exist, create it in the R2 dashboard", s.bucket)
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// UploadFile uploads the file at localPath under key, switching to multipart
// above the size threshold. The returned ETag comes from the backend's
// response and serves as the write acknowledgment.
func (s *S3Store) UploadFile(ctx context.Context, key, localPath, contentType string) (string, error) {
	st, err := os.Stat(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat upload source: %w", err)
	}

	if st.Size() > multipartThreshold {
		return s.uploadMultipart(ctx, key, localPath, contentType)
	}
	return s.uploadSinglePart(ctx, key, localPath, st.Size(), contentType)
}

func (s *S3Store) uploadSinglePart(ctx context.Context, key, localPath string, size int64, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open upload source: %w", err)
	}
	defer f.Close()

	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.ETag), nil
}

func (s *S3Store) uploadMultipart(ctx context.Context, key, localPath, contentType string) (string, error) {
	create, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	uploadID := aws.ToString(create.UploadId)

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open upload source: %w", err)
	}
	defer f.Close()

	var completed []types.CompletedPart
	buf := make([]byte, multipartThreshold)
	partNumber := int32(1)
	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			part, uploadErr := s.client.UploadPart(ctx, &s3.UploadPartInput{
				Bucket:     aws.String(s.bucket),
				Key:        aws.String(key),
				UploadId:   aws.String(uploadID),
				PartNumber: aws.Int32(partNumber),
				Body:       bytes.NewReader(buf[:n]),
			})
			if uploadErr != nil {
				s.abortMultipart(ctx, key, uploadID)
				return "", uploadErr
			}
			completed = append(completed, types.CompletedPart{
				ETag:       part.ETag,
				PartNumber: aws.Int32(partNumber),
			})
			partNumber++
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			s.abortMultipart(ctx, key, uploadID)
			return "", fmt.Errorf("failed to read upload source: %w", err)
		}
	}

	out, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.ETag), nil
}

func (s *S3Store) abortMultipart(ctx context.Context, key, uploadID string) {
	_, _ = s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
}

// Exists checks if an object exists under the key.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}
