package secret

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSMClient struct {
	params map[string]string
	errs   map[string]error
	calls  []string
}

func (f *fakeSSMClient) GetParameter(_ context.Context, input *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls = append(f.calls, *input.Name)
	if input.WithDecryption == nil || !*input.WithDecryption {
		return nil, fmt.Errorf("decryption not requested for %s", *input.Name)
	}
	if err := f.errs[*input.Name]; err != nil {
		return nil, err
	}
	val, ok := f.params[*input.Name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("parameter not found: " + *input.Name)}
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:  input.Name,
			Value: aws.String(val),
		},
	}, nil
}

var testNames = Names{
	GoogleClientSecret: "/drivelink/google-client-secret",
	JWTSecret:          "/drivelink/jwt-secret",
	APIGatewaySecret:   "/drivelink/api-gateway-secret",
}

func TestSSMResolver_GetSecret(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{
		"/drivelink/jwt-secret": "super-secret-value",
	}}
	resolver := NewSSMResolver(client)

	val, err := resolver.GetSecret(context.Background(), "/drivelink/jwt-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "super-secret-value" {
		t.Fatalf("expected %q, got %q", "super-secret-value", val)
	}

	if _, err := resolver.GetSecret(context.Background(), "/drivelink/nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing parameter, got %v", err)
	}
}

func TestSSMResolver_GetSecretLookupFailure(t *testing.T) {
	client := &fakeSSMClient{errs: map[string]error{
		"/drivelink/jwt-secret": errors.New("ThrottlingException: Rate exceeded"),
	}}

	_, err := NewSSMResolver(client).GetSecret(context.Background(), "/drivelink/jwt-secret")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("throttling must not be reported as not found: %v", err)
	}
}

func TestEnvResolver_GetSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret-value")
	resolver := NewEnvResolver()

	val, err := resolver.GetSecret(context.Background(), "/drivelink/jwt-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "env-secret-value" {
		t.Fatalf("expected %q, got %q", "env-secret-value", val)
	}

	t.Setenv("NONEXISTENT_SECRET", "")
	if _, err := resolver.GetSecret(context.Background(), "/drivelink/nonexistent-secret"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing env var, got %v", err)
	}
}

func TestParamNameToEnvVar(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/drivelink/jwt-secret", "JWT_SECRET"},
		{"/drivelink/google-client-secret", "GOOGLE_CLIENT_SECRET"},
		{"api-gateway-secret", "API_GATEWAY_SECRET"},
	}

	for _, tc := range tests {
		got := paramNameToEnvVar(tc.input)
		if got != tc.expected {
			t.Errorf("paramNameToEnvVar(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestResolveAll(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{
		"/drivelink/google-client-secret": "g-secret",
		"/drivelink/jwt-secret":           "j-secret",
	}}

	s, err := ResolveAll(context.Background(), NewSSMResolver(client), testNames)
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}
	if s.GoogleClientSecret != "g-secret" || s.JWTSecret != "j-secret" {
		t.Errorf("unexpected secrets: %+v", s)
	}
	if s.APIGatewaySecret != "" {
		t.Errorf("expected empty API gateway secret, got %q", s.APIGatewaySecret)
	}
	if len(client.calls) != 3 {
		t.Errorf("expected 3 lookups, got %v", client.calls)
	}
}

func TestResolveAll_MissingRequired(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{
		"/drivelink/google-client-secret": "g-secret",
	}}

	if _, err := ResolveAll(context.Background(), NewSSMResolver(client), testNames); err == nil {
		t.Fatal("expected error when the JWT secret is missing")
	}
}

func TestResolveAll_OptionalSecretLookupFails(t *testing.T) {
	client := &fakeSSMClient{
		params: map[string]string{
			"/drivelink/google-client-secret": "g-secret",
			"/drivelink/jwt-secret":           "j-secret",
			"/drivelink/api-gateway-secret":   "origin-secret",
		},
		errs: map[string]error{
			"/drivelink/api-gateway-secret": errors.New("ThrottlingException: Rate exceeded"),
		},
	}

	s, err := ResolveAll(context.Background(), NewSSMResolver(client), testNames)
	if err == nil {
		t.Fatalf("expected error when the API gateway secret lookup fails, got secrets %+v", s)
	}
	if s.APIGatewaySecret != "" || s.JWTSecret != "" {
		t.Errorf("expected no secrets on failure, got %+v", s)
	}
}

func TestResolveAll_OptionalSecretFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_SECRET", "g-secret")
	t.Setenv("JWT_SECRET", "j-secret")
	t.Setenv("API_GATEWAY_SECRET", "")

	s, err := ResolveAll(context.Background(), NewEnvResolver(), testNames)
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}
	if s.APIGatewaySecret != "" {
		t.Errorf("expected empty API gateway secret, got %q", s.APIGatewaySecret)
	}

	t.Setenv("API_GATEWAY_SECRET", "origin-secret")
	s, err = ResolveAll(context.Background(), NewEnvResolver(), testNames)
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}
	if s.APIGatewaySecret != "origin-secret" {
		t.Errorf("expected %q, got %q", "origin-secret", s.APIGatewaySecret)
	}
}
