package datanorm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
)

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads raw records from CSV exports stored in S3.
type S3Source struct {
	client   S3API
	bucket   string
	key      string
	unparsed int
}

// NewS3Source loads AWS credentials the usual way (env, shared profile,
// task role) and creates a source for cfg.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	var awsCfg aws.Config
	var err error
	if cfg.AWSProfile != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithSharedConfigProfile(cfg.AWSProfile),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewS3SourceWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Key), nil
}

// NewS3SourceWithClient creates a source over an existing client.
func NewS3SourceWithClient(client S3API, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

// Name identifies the source in logs and reports.
func (s *S3Source) Name() string { return fmt.Sprintf("s3://%s/%s", s.bucket, s.key) }

// Records reads the configured object, or every CSV under the configured
// prefix in key order.
func (s *S3Source) Records(ctx context.Context) ([]domain.RawRecord, error) {
	keys := []string{s.key}
	if s.key == "" || strings.HasSuffix(s.key, "/") {
		var err error
		keys, err = s.listCSV(ctx)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("no CSV objects under s3://%s/%s", s.bucket, s.key)
		}
	}

	var all []domain.RawRecord
	unparsed := 0
	for _, key := range keys {
		records, skipped, err := s.readObject(ctx, key)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		unparsed += skipped
	}
	s.unparsed = unparsed
	return all, nil
}

// UnparsedRows is how many rows the last Records call skipped as malformed,
// summed over every object read.
func (s *S3Source) UnparsedRows() int { return s.unparsed }

func (s *S3Source) readObject(ctx context.Context, key string) ([]domain.RawRecord, int, error) {
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer obj.Body.Close()

	records, res, err := ReadCSV(ctx, obj.Body, "s3://"+s.bucket+"/"+key)
	if err != nil {
		return nil, 0, fmt.Errorf("read s3://%s/%s: %w", s.bucket, key, err)
	}
	return records, res.SkippedRows, nil
}

// listCSV returns the non-empty .csv objects under the prefix.
func (s *S3Source) listCSV(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.key, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if obj.Size == nil || *obj.Size == 0 {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(key), ".csv") {
				continue
			}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	logger.Debug("s3 objects discovered", "component", "datanorm", "bucket", s.bucket, "prefix", s.key, "count", len(keys))
	return keys, nil
}
