// utils/product_upload.go
package utils

import (
	"bytes"
	"context"
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

type ProductR2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	BucketName      string
	PublicURL       string
}

// ProductR2Client uploads product images to an S3-compatible bucket (R2).
type ProductR2Client struct {
	client *s3.Client
	config ProductR2Config
}

func NewProductR2Client(cfg ProductR2Config) (*ProductR2Client, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("missing required R2 configuration parameters")
	}

	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID),
		}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(r2Resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.AccessKeySecret,
			"",
		)),
		config.WithRetryer(func() aws.Retryer {
			return aws.NopRetryer{}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	// Verify bucket exists and we have permissions
	_, err = client.HeadBucket(context.TODO(), &s3.HeadBucketInput{
		Bucket: aws.String(cfg.BucketName),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") {
			return nil, fmt.Errorf("bucket %s not found or you don't have permission to access it", cfg.BucketName)
		}
		return nil, fmt.Errorf("failed to access bucket: %w", err)
	}

	return &ProductR2Client{
		client: client,
		config: cfg,
	}, nil
}

func (r *ProductR2Client) Upload(ctx context.Context, key string, content []byte, contentType string) error {
	// bytes.NewReader handles binary payloads without checksum surprises
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}
	return nil
}

// UploadProductImage stores an image under "product_images/" and returns
// its public URL.
func (r *ProductR2Client) UploadProductImage(ctx context.Context, file io.Reader, originalFileName string, productSyncID uuid.UUID) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file reader cannot be nil")
	}
	if originalFileName == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	ext := filepath.Ext(originalFileName)
	uniqueName := fmt.Sprintf("product_images/%s_%d%s", productSyncID.String(), time.Now().Unix(), ext)

	if err := r.Upload(ctx, uniqueName, content, getContentType(originalFileName)); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s", r.config.PublicURL, uniqueName), nil
}

// DeleteProductImage deletes a stored image. Accepts either the object
// key or the public URL UploadProductImage returned for it.
func (r *ProductR2Client) DeleteProductImage(ctx context.Context, fileName string) error {
	if fileName == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.config.BucketName),
		Key:    aws.String(imageObjectKey(r.config.PublicURL, fileName)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from R2: %w", err)
	}

	return nil
}

// imageObjectKey maps a public URL back to its bucket key. The key keeps
// its folder prefix; only the public base is stripped.
func imageObjectKey(publicURL, fileName string) string {
	if publicURL != "" {
		fileName = strings.TrimPrefix(fileName, publicURL+"/")
	}
	return fileName
}

func getContentType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
