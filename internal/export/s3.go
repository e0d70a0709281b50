package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// CallerIdentity is the AWS principal used for uploads.
type CallerIdentity struct {
	Account string
	ARN     string
}

// S3Exporter writes objects to one S3 bucket.
type S3Exporter struct {
	bucket    string
	s3Client  *s3.Client
	stsClient *sts.Client
}

var _ Exporter = (*S3Exporter)(nil)

// NewS3Exporter loads the default AWS configuration, optionally for a named
// profile and region, and targets bucket.
func NewS3Exporter(ctx context.Context, bucket, profile, region string) (*S3Exporter, error) {
	if bucket == "" {
		return nil, fmt.Errorf("an export bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &S3Exporter{
		bucket:    bucket,
		s3Client:  s3.NewFromConfig(cfg),
		stsClient: sts.NewFromConfig(cfg),
	}, nil
}

// Bucket returns the target bucket.
func (e *S3Exporter) Bucket() string { return e.bucket }

// VerifyCredentials checks the current AWS credentials using STS.
func (e *S3Exporter) VerifyCredentials(ctx context.Context) (*CallerIdentity, error) {
	out, err := e.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("getting caller identity: %w", err)
	}
	return &CallerIdentity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
	}, nil
}

func (e *S3Exporter) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := e.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("uploading to s3://%s/%s: %w", e.bucket, key, err)
	}
	return nil
}

// List returns the keys stored under prefix.
func (e *S3Exporter) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(e.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(e.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing objects under s3://%s/%s: %w", e.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}
