package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/adapters/ports"
)

// AWSSecretsManagerConfig contains configuration for the AWS Secrets Manager store
type AWSSecretsManagerConfig struct {
	Region string

	// Optional AWS profile name for local development
	Profile string

	// Optional custom endpoint (LocalStack)
	Endpoint string

	CacheTTL time.Duration
}

// DefaultAWSSecretsManagerConfig returns default configuration
func DefaultAWSSecretsManagerConfig(region string) *AWSSecretsManagerConfig {
	return &AWSSecretsManagerConfig{
		Region:   region,
		CacheTTL: 5 * time.Minute,
	}
}

// secretValueGetter is the subset of the Secrets Manager client the store uses
type secretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type awsSecretStore struct {
	client secretValueGetter
	logger *zap.Logger
	cache  *secretCache
}

// NewAWSSecretStore creates an AWS Secrets Manager backed store
func NewAWSSecretStore(ctx context.Context, cfg *AWSSecretsManagerConfig, logger *zap.Logger) (ports.SecretStore, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOptions []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager store initialized",
		zap.String("region", cfg.Region),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	return newAWSSecretStore(secretsmanager.NewFromConfig(awsConfig, clientOptions...), cfg.CacheTTL, logger), nil
}

func newAWSSecretStore(client secretValueGetter, ttl time.Duration, logger *zap.Logger) *awsSecretStore {
	return &awsSecretStore{
		client: client,
		logger: logger,
		cache:  newSecretCache(ttl),
	}
}

// GetSecret retrieves the current version of the secret named path
func (s *awsSecretStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := s.cache.get(path); cached != nil {
		return cached, nil
	}

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(path),
	})
	if err != nil {
		s.logger.Error("Failed to retrieve secret",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to get secret %s: %w", path, err)
	}

	secret := &ports.Secret{
		Value:   aws.ToString(result.SecretString),
		Version: aws.ToString(result.VersionId),
	}
	if result.CreatedDate != nil {
		secret.CreatedAt = result.CreatedDate.Format(time.RFC3339)
	}

	s.cache.set(path, secret)
	return secret, nil
}
