package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/spec-kit/credential-service/internal/config"
)

// Swapped in tests.
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newDynamoDBFromConfig = dynamodb.NewFromConfig
)

// LoadAWSConfig resolves the shared AWS configuration. Static keys, when both are set,
// take precedence over the default credential chain.
func LoadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// DynamoDB wraps the client and the users table name.
type DynamoDB struct {
	Client *dynamodb.Client
	Table  string
}

// NewDynamoDB builds a DynamoDB client. A non-empty endpoint overrides the service URL.
func NewDynamoDB(awsCfg aws.Config, endpoint, table string) *DynamoDB {
	client := newDynamoDBFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &DynamoDB{Client: client, Table: table}
}

// Ping verifies the users table is reachable.
func (d *DynamoDB) Ping(ctx context.Context) error {
	if d == nil || d.Client == nil {
		return errors.New("dynamodb client not configured")
	}
	_, err := d.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.Table)})
	return err
}

// AWSLoader resolves the AWS configuration on demand, so services that never touch AWS
// never load it.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// NewAWSLoader returns a loader that resolves cfg at most once.
func NewAWSLoader(cfg config.AWSConfig) AWSLoader {
	var (
		once   sync.Once
		awsCfg aws.Config
		err    error
	)
	return func(ctx context.Context) (aws.Config, error) {
		once.Do(func() {
			awsCfg, err = LoadAWSConfig(ctx, cfg)
		})
		return awsCfg, err
	}
}
