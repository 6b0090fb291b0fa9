package repository

import (
	"context"

	"github.com/avdeevk/story-video-generator/internal/jobs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

type awsRepository struct {
	client *s3.Client
}

func NewAwsRepository(awsClient *s3.Client) jobs.AWSRepository {
	return &awsRepository{
		client: awsClient,
	}
}

func (a *awsRepository) PutObject(ctx context.Context, input jobs.UploadInput) (*s3.PutObjectOutput, error) {
	res, err := a.client.PutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:        &input.Bucket,
			Key:           &input.Key,
			ContentType:   &input.MimeType,
			ContentLength: &input.Size,
			Body:          input.File,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "awsRepository.PutObject")
	}
	return res, nil
}

func (a *awsRepository) GetObject(ctx context.Context, bucket, fileKey string) (*s3.GetObjectOutput, error) {
	res, err := a.client.GetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &fileKey,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "awsRepository.GetObject")
	}
	return res, nil
}

func (a *awsRepository) ListObjects(ctx context.Context, bucket string) ([]string, error) {
	res, err := a.client.ListObjectsV2(
		ctx,
		&s3.ListObjectsV2Input{
			Bucket: &bucket,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "awsRepository.ListObjects")
	}
	var keys []string
	for _, obj := range res.Contents {
		keys = append(keys, *obj.Key)
	}
	return keys, nil
}

func (a *awsRepository) RemoveObject(ctx context.Context, bucket, filename string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &filename,
	})
	if err != nil {
		return errors.Wrap(err, "awsRepository.RemoveObject")
	}
	return nil
}
