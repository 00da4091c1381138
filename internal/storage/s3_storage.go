package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	// MaxUploadSize caps payment proofs and product images at 5MB.
	MaxUploadSize = 5 << 20

	FolderPaymentProofs = "payment-proofs"
	FolderProducts      = "products"
)

var (
	ErrFileTooLarge       = errors.New("file exceeds the maximum upload size")
	ErrInvalidContentType = errors.New("file type is not allowed")
)

// allowedImageTypes are the content types accepted for any upload.
var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

type PresignedURLResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
	Key       string `json:"key"`
}

func NewS3Storage(region, bucket, accessKeyID, secretAccessKey, baseURL string) *S3Storage {
	var cfg aws.Config
	var err error

	// Static credentials when provided, default chain otherwise
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				"",
			),
		}
	} else {
		cfg, err = config.LoadDefaultConfig(context.TODO(),
			config.WithRegion(region),
		)
		if err != nil {
			cfg = aws.Config{
				Region: region,
			}
		}
	}

	client := s3.NewFromConfig(cfg)

	return &S3Storage{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// Upload streams a file into the bucket under folder and returns the
// public URL. The stored key is a fresh UUID so original filenames never
// leak into the bucket.
func (s *S3Storage) Upload(ctx context.Context, folder, filename, contentType string, size int64, body io.Reader) (string, error) {
	if err := s.ValidateFileSize(size, MaxUploadSize); err != nil {
		return "", err
	}
	if err := s.ValidateContentType(contentType, allowedImageTypes); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to s3: %w", err)
	}

	return s.fileURL(key), nil
}

// GeneratePresignedURL generates a pre-signed PUT URL so the storefront
// can upload directly to the bucket.
func (s *S3Storage) GeneratePresignedURL(filename, contentType, folder string) (*PresignedURLResponse, error) {
	if err := s.ValidateContentType(contentType, allowedImageTypes); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), ext)

	presignClient := s3.NewPresignClient(s.client)

	// Valid for 15 minutes
	presignedReq, err := presignClient.PresignPutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &PresignedURLResponse{
		UploadURL: presignedReq.URL,
		FileURL:   s.fileURL(key),
		Key:       key,
	}, nil
}

func (s *S3Storage) fileURL(key string) string {
	if s.baseURL != "" {
		// CloudFront or custom domain
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key)
}

func (s *S3Storage) ValidateFileSize(size int64, maxSize int64) error {
	if size > maxSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, size, maxSize)
	}
	return nil
}

func (s *S3Storage) ValidateContentType(contentType string, allowedTypes []string) error {
	for _, allowed := range allowedTypes {
		if contentType == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
}
