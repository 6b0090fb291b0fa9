package jobs

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type UploadInput struct {
	File     io.Reader
	Key      string
	MimeType string
	Size     int64
	Bucket   string
}

type AWSRepository interface {
	PutObject(ctx context.Context, input UploadInput) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, bucket, fileKey string) (*s3.GetObjectOutput, error)
	ListObjects(ctx context.Context, bucket string) ([]string, error)
	RemoveObject(ctx context.Context, bucket, filename string) error
}
