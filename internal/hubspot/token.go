package hubspot

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// SecretsAPI is the slice of the Secrets Manager client the token provider
// needs. Satisfied by *secretsmanager.Client.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// TokenProviderConfig configures a TokenProvider.
type TokenProviderConfig struct {
	// StaticToken short-circuits the secret store entirely when set.
	StaticToken string
	// SecretARN identifies the Secrets Manager secret holding the token.
	SecretARN string
	// TTL bounds how long a resolved token is served from memory.
	TTL time.Duration
}

// TokenProvider resolves the HubSpot bearer token, caching it in process
// memory so repeated calls within the TTL do not hit the secret store.
// Safe only for single-threaded use, matching the job execution model.
type TokenProvider struct {
	cfg     TokenProviderConfig
	secrets SecretsAPI

	cached   string
	cachedAt time.Time
	now      func() time.Time
}

// NewTokenProvider creates a token provider. secrets may be nil when a
// static token is configured.
func NewTokenProvider(cfg TokenProviderConfig, secrets SecretsAPI) *TokenProvider {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &TokenProvider{cfg: cfg, secrets: secrets, now: time.Now}
}

// Token returns the bearer token, resolving it from Secrets Manager when the
// cache is cold or expired.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if p.cfg.StaticToken != "" {
		return p.cfg.StaticToken, nil
	}

	if p.cached != "" && p.now().Sub(p.cachedAt) < p.cfg.TTL {
		return p.cached, nil
	}

	if p.cfg.SecretARN == "" || p.secrets == nil {
		return "", ErrTokenNotConfigured
	}

	out, err := p.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.cfg.SecretARN),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve hubspot token secret")
	}
	if out.SecretString == nil {
		return "", errors.New("binary secrets are not supported for the hubspot token")
	}

	p.cached = extractToken(*out.SecretString)
	p.cachedAt = p.now()
	log.Printf("TokenProvider: resolved hubspot token from secret store")
	return p.cached, nil
}

// extractToken pulls the token out of a JSON secret payload, falling back to
// the raw payload when it is not JSON or carries no known field.
func extractToken(payload string) string {
	if gjson.Valid(payload) {
		if v := gjson.Get(payload, "HUBSPOT_TOKEN"); v.Exists() && v.String() != "" {
			return v.String()
		}
		if v := gjson.Get(payload, "token"); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return payload
}
