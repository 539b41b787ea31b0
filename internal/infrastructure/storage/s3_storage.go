package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/metrics"
)

// S3Store implements the object store contract against S3-compatible storage.
type S3Store struct {
	bucket    string
	client    *s3.Client
	presigner *s3.PresignClient
	log       zerolog.Logger
}

var _ media.ObjectStore = (*S3Store)(nil)

func NewS3Store(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Store, error) {
	logger := log.With().Str("component", "s3-store").Logger()

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.S3Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretKey != "" {
		loadOpts = append(loadOpts,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &S3Store{
		bucket:    cfg.S3Bucket,
		client:    client,
		presigner: s3.NewPresignClient(client),
		log:       logger,
	}, nil
}

func (s *S3Store) OpenMultipart(ctx context.Context, key, contentType string, metadata map[string]string) (string, error) {
	start := time.Now()
	out, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		ContentType:          aws.String(contentType),
		Metadata:             metadata,
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	metrics.RecordStoreOperation("create_multipart", statusOf(err), time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return aws.ToString(out.UploadId), nil
}

func (s *S3Store) PresignPartUpload(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error) {
	start := time.Now()
	req, err := s.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(sessionID),
		PartNumber: aws.Int32(partNumber),
	}, s3.WithPresignExpires(ttl))
	metrics.RecordPresign(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3Store) PresignRead(ctx context.Context, key string, ttl time.Duration) (string, error) {
	start := time.Now()
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	metrics.RecordPresign(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3Store) AssembleMultipart(ctx context.Context, key, sessionID string, parts []media.CompletedPart) (string, error) {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, part := range parts {
		completed = append(completed, types.CompletedPart{
			ETag:       aws.String(part.IntegrityTag),
			PartNumber: aws.Int32(part.PartNumber),
		})
	}

	start := time.Now()
	out, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(sessionID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	metrics.RecordStoreOperation("complete_multipart", statusOf(err), time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Location), nil
}

func (s *S3Store) AbortMultipart(ctx context.Context, key, sessionID string) error {
	start := time.Now()
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(sessionID),
	})
	metrics.RecordStoreOperation("abort_multipart", statusOf(err), time.Since(start).Seconds())
	return err
}

func (s *S3Store) HeadObject(ctx context.Context, key string) (*media.ObjectMeta, error) {
	start := time.Now()
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	metrics.RecordStoreOperation("head_object", statusOf(err), time.Since(start).Seconds())
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, media.ErrObjectNotFound
		}
		return nil, err
	}

	return &media.ObjectMeta{
		Key:          key,
		SizeBytes:    aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		UserMetadata: out.Metadata,
	}, nil
}

func (s *S3Store) ListObjects(ctx context.Context, prefix string, maxKeys int32, continuationToken string) (*media.ObjectPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(maxKeys),
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	start := time.Now()
	out, err := s.client.ListObjectsV2(ctx, input)
	metrics.RecordStoreOperation("list_objects", statusOf(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	page := &media.ObjectPage{
		Truncated: aws.ToBool(out.IsTruncated),
		NextToken: aws.ToString(out.NextContinuationToken),
		Entries:   make([]media.ObjectEntry, 0, len(out.Contents)),
	}
	for _, obj := range out.Contents {
		page.Entries = append(page.Entries, media.ObjectEntry{
			Key:          aws.ToString(obj.Key),
			SizeBytes:    aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}
	return page, nil
}

func (s *S3Store) CopyObject(ctx context.Context, srcKey, dstKey string, metadata map[string]string) error {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + url.PathEscape(srcKey)),
		Key:        aws.String(dstKey),
	}
	if metadata != nil {
		// REPLACE drops the source content type as well, so read it back
		// and carry it over alongside the new metadata.
		head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(srcKey),
		})
		if err != nil {
			return err
		}
		input.Metadata = metadata
		input.MetadataDirective = types.MetadataDirectiveReplace
		input.ContentType = head.ContentType
	}

	start := time.Now()
	_, err := s.client.CopyObject(ctx, input)
	metrics.RecordStoreOperation("copy_object", statusOf(err), time.Since(start).Seconds())
	return err
}

func (s *S3Store) DeleteObject(ctx context.Context, key string) error {
	start := time.Now()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	metrics.RecordStoreOperation("delete_object", statusOf(err), time.Since(start).Seconds())
	return err
}

// Health performs a simple HeadBucket request.
func (s *S3Store) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
