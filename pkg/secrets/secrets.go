// Package secrets loads the Discogs token from AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var (
	ErrEmptySecret   = errors.New("secret value is empty")
	ErrInvalidSecret = errors.New("secret value is not a token or a JSON object with a token")
)

// tokenKeys are checked in order; the first non-empty string wins.
var tokenKeys = []string{"token", "discogs_token", "api_token", "value"}

// GetSecretValueAPI is the subset of the Secrets Manager client used here.
type GetSecretValueAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ParseSecretString extracts a token from a bare string or a JSON object.
func ParseSecretString(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptySecret
	}
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	for _, key := range tokenKeys {
		if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), nil
		}
	}
	return "", fmt.Errorf("%w: none of %s present", ErrInvalidSecret, strings.Join(tokenKeys, ", "))
}

// Loader resolves tokens by secret ID.
type Loader struct {
	api GetSecretValueAPI
}

func NewLoader(api GetSecretValueAPI) *Loader {
	return &Loader{api: api}
}

// Token fetches secretID and parses its value.
func (l *Loader) Token(ctx context.Context, secretID string) (string, error) {
	out, err := l.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", secretID, err)
	}

	raw := aws.ToString(out.SecretString)
	if raw == "" && len(out.SecretBinary) > 0 {
		if !utf8.Valid(out.SecretBinary) {
			return "", fmt.Errorf("secret %s: %w: binary value is not UTF-8", secretID, ErrInvalidSecret)
		}
		raw = string(out.SecretBinary)
	}

	token, err := ParseSecretString(raw)
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", secretID, err)
	}
	return token, nil
}
