package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

func TestParseSecretString(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"bare token", "  abc123 \n", "abc123", nil},
		{"token key", `{"token": "t1"}`, "t1", nil},
		{"discogs_token key", `{"discogs_token": "t2"}`, "t2", nil},
		{"api_token key", `{"api_token": "t3"}`, "t3", nil},
		{"value key", `{"value": "t4"}`, "t4", nil},
		{"first non-empty wins", `{"token": " ", "api_token": "t5", "value": "t6"}`, "t5", nil},
		{"non-string ignored", `{"token": 42, "value": "t7"}`, "t7", nil},
		{"empty", "   ", "", ErrEmptySecret},
		{"invalid json", `{"token": `, "", ErrInvalidSecret},
		{"no known key", `{"password": "x"}`, "", ErrInvalidSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSecretString(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSecretString() = %q, want %q", got, tt.want)
			}
		})
	}
}

type fakeSecrets struct {
	out   *secretsmanager.GetSecretValueOutput
	err   error
	asked string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.asked = aws.ToString(in.SecretId)
	return f.out, f.err
}

func TestLoader_SecretString(t *testing.T) {
	api := &fakeSecrets{out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"discogs_token":"tok"}`)}}

	token, err := NewLoader(api).Token(context.Background(), "discogs/token")
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "tok" || api.asked != "discogs/token" {
		t.Errorf("Token() = %q (asked %q)", token, api.asked)
	}
}

func TestLoader_SecretBinary(t *testing.T) {
	api := &fakeSecrets{out: &secretsmanager.GetSecretValueOutput{SecretBinary: []byte("binary-token")}}

	token, err := NewLoader(api).Token(context.Background(), "id")
	if err != nil || token != "binary-token" {
		t.Fatalf("Token() = %q, %v", token, err)
	}

	api.out = &secretsmanager.GetSecretValueOutput{SecretBinary: []byte{0xff, 0xfe}}
	if _, err := NewLoader(api).Token(context.Background(), "id"); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("Expected ErrInvalidSecret for non UTF-8 binary, got %v", err)
	}
}

func TestLoader_Errors(t *testing.T) {
	boom := errors.New("ResourceNotFoundException")
	if _, err := NewLoader(&fakeSecrets{err: boom}).Token(context.Background(), "id"); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped API error, got %v", err)
	}

	empty := &fakeSecrets{out: &secretsmanager.GetSecretValueOutput{}}
	if _, err := NewLoader(empty).Token(context.Background(), "id"); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("Expected ErrEmptySecret, got %v", err)
	}
}
