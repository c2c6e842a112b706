package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

// SecretField is the JSON key holding the signing secret inside the stored secret string.
const SecretField = "jwtSecret"

var (
	ErrMissingSecretString = errors.New("secret has no SecretString")
	ErrMalformedSecret     = errors.New("secret string is not a JSON object")
	ErrMissingSecretField  = fmt.Errorf("%s key missing in secret JSON", SecretField)
)

// SecretsManagerAPI is the subset of the Secrets Manager client used by the provider.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerProvider reads the signing secret from AWS Secrets Manager.
type SecretsManagerProvider struct {
	client     SecretsManagerAPI
	secretName string
}

// NewSecretsManagerClient builds a client from a shared AWS config. A non-empty endpoint
// overrides the service URL (localstack and similar).
func NewSecretsManagerClient(cfg aws.Config, endpoint string) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// NewSecretsManagerProvider returns a provider reading secretName.
func NewSecretsManagerProvider(client SecretsManagerAPI, secretName string) *SecretsManagerProvider {
	return &SecretsManagerProvider{client: client, secretName: secretName}
}

// GetSecret fetches and decodes the secret. The stored value must be a JSON object whose
// jwtSecret field is a non-empty string; anything else is reported as unavailable.
func (p *SecretsManagerProvider) GetSecret(ctx context.Context) (string, error) {
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretName),
	})
	if err != nil {
		return "", apperrors.NewSecretUnavailable(fmt.Errorf("get secret value %q: %w", p.secretName, err))
	}
	if out == nil || out.SecretString == nil || *out.SecretString == "" {
		return "", apperrors.NewSecretUnavailable(ErrMissingSecretString)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(*out.SecretString), &payload); err != nil {
		return "", apperrors.NewSecretUnavailable(fmt.Errorf("%w: %v", ErrMalformedSecret, err))
	}

	secret, ok := payload[SecretField].(string)
	if !ok || secret == "" {
		return "", apperrors.NewSecretUnavailable(ErrMissingSecretField)
	}
	return secret, nil
}
