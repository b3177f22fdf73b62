package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ignite/retail-rfm/internal/config"
	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
)

func loadAWSConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store writes reports under prefix/YYYY/MM/DD/<run id>.json and mirrors
// the newest one to prefix/latest.json.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store builds an S3-backed sink from the report config.
func NewS3Store(ctx context.Context, cfg config.ReportConfig) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("report.s3_bucket is required for the s3 report store")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSProfile)
	if err != nil {
		return nil, err
	}
	return NewS3StoreWithClient(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Save uploads the report and refreshes latest.json.
func (s *S3Store) Save(ctx context.Context, report *domain.RunReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}

	ts := report.StartedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	key := path.Join(s.prefix, ts.UTC().Format("2006/01/02"), report.RunID+".json")
	if err := s.put(ctx, key, data); err != nil {
		return "", err
	}
	if err := s.put(ctx, path.Join(s.prefix, latestName), data); err != nil {
		return "", err
	}

	loc := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	logger.Info("report saved", "component", "storage", "location", loc, "run_id", report.RunID)
	return loc, nil
}

func (s *S3Store) put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3 bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Latest downloads prefix/latest.json.
func (s *S3Store) Latest(ctx context.Context) (*domain.RunReport, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path.Join(s.prefix, latestName)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting object from S3 bucket %s: %w", s.bucket, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	var report domain.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshaling S3 data: %w", err)
	}
	return &report, nil
}

// DynamoAPI is the subset of the DynamoDB client used by RunLedger.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

const runPartition = "RUN"

// RunItem is one ledger row. SK sorts runs by start time.
type RunItem struct {
	PK              string `dynamodbav:"PK"`
	SK              string `dynamodbav:"SK"`
	RunID           string `dynamodbav:"RunID" json:"run_id"`
	ReferenceDate   string `dynamodbav:"ReferenceDate" json:"reference_date"`
	StartedAt       string `dynamodbav:"StartedAt" json:"started_at"`
	DurationMs      int64  `dynamodbav:"DurationMs" json:"duration_ms"`
	TotalRows       int    `dynamodbav:"TotalRows" json:"total_rows"`
	AcceptedRows    int    `dynamodbav:"AcceptedRows" json:"accepted_rows"`
	Customers       int    `dynamodbav:"Customers" json:"customers"`
	TotalRevenue    string `dynamodbav:"TotalRevenue" json:"total_revenue"`
	TopRevenueShare string `dynamodbav:"TopRevenueShare" json:"top_revenue_share"`
	Location        string `dynamodbav:"Location,omitempty" json:"location,omitempty"`
	TTL             int64  `dynamodbav:"TTL,omitempty" json:"-"`
}

// RunLedger records one item per pipeline run in a PK/SK table.
type RunLedger struct {
	client    DynamoAPI
	tableName string
	retention time.Duration
}

// NewRunLedger builds a ledger from the report config.
func NewRunLedger(ctx context.Context, cfg config.ReportConfig) (*RunLedger, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSProfile)
	if err != nil {
		return nil, err
	}
	return NewRunLedgerWithClient(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable), nil
}

// NewRunLedgerWithClient wraps an existing client. Items expire after a year.
func NewRunLedgerWithClient(client DynamoAPI, tableName string) *RunLedger {
	return &RunLedger{client: client, tableName: tableName, retention: 365 * 24 * time.Hour}
}

// Record writes the ledger item for report. location is where the full
// report was stored.
func (l *RunLedger) Record(ctx context.Context, report *domain.RunReport, location string) error {
	started := report.StartedAt.UTC()
	item := RunItem{
		PK:              runPartition,
		SK:              started.Format(time.RFC3339) + "#" + report.RunID,
		RunID:           report.RunID,
		ReferenceDate:   report.ReferenceDate.Format(config.DateLayout),
		StartedAt:       started.Format(time.RFC3339),
		DurationMs:      report.Duration().Milliseconds(),
		TotalRows:       report.Normalize.Total,
		AcceptedRows:    report.Normalize.Accepted,
		Customers:       len(report.Customers),
		TotalRevenue:    report.Portfolio.KPIs.TotalMonetary.StringFixed(2),
		TopRevenueShare: report.Portfolio.Pareto.TopRevenueShare.StringFixed(1),
		Location:        location,
		TTL:             started.Add(l.retention).Unix(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}
	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (l *RunLedger) Recent(ctx context.Context, limit int) ([]RunItem, error) {
	out, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: runPartition},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("querying run ledger: %w", err)
	}

	var items []RunItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling runs: %w", err)
	}
	return items, nil
}

// String is used in log lines.
func (i RunItem) String() string {
	return i.RunID + "@" + i.StartedAt + " customers=" + strconv.Itoa(i.Customers)
}
