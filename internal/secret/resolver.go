// Package secret retrieves secrets from SSM Parameter Store or, in development,
// from environment variables.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ErrNotFound is returned when a secret does not exist. Any other error means
// the lookup itself failed.
var ErrNotFound = errors.New("secret not found")

// SSMClient is the subset of *ssm.Client methods used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver retrieves secret values by name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SSMResolver fetches secrets from AWS Systems Manager Parameter Store.
type SSMResolver struct {
	client SSMClient
}

// NewSSMResolver returns a Resolver backed by SSM Parameter Store.
func NewSSMResolver(client SSMClient) Resolver {
	return &SSMResolver{client: client}
}

// GetSecret retrieves a SecureString parameter with decryption.
func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var nf *ssmtypes.ParameterNotFound
		if errors.As(err, &nf) {
			return "", fmt.Errorf("ssm parameter %q: %w", name, ErrNotFound)
		}
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}

// EnvResolver reads secrets from environment variables. "/drivelink/jwt-secret"
// is looked up as JWT_SECRET.
type EnvResolver struct{}

// NewEnvResolver returns a Resolver that reads from environment variables.
func NewEnvResolver() Resolver {
	return &EnvResolver{}
}

// GetSecret reads the environment variable derived from the parameter name.
func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := paramNameToEnvVar(name)
	val := os.Getenv(envName)
	if val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q) is not set: %w", envName, name, ErrNotFound)
	}
	return val, nil
}

// paramNameToEnvVar converts an SSM parameter name to an environment variable name.
func paramNameToEnvVar(name string) string {
	parts := strings.Split(name, "/")
	last := parts[len(parts)-1]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}

// Names lists the parameter names of the secrets the backend needs.
type Names struct {
	GoogleClientSecret string
	JWTSecret          string
	APIGatewaySecret   string
}

// Secrets holds resolved secret values.
type Secrets struct {
	GoogleClientSecret string
	JWTSecret          string
	APIGatewaySecret   string
}

// ResolveAll fetches every secret in names. The Google client secret and the JWT
// secret are required. The API Gateway secret may be absent, which disables the
// origin check, but a failed lookup of it is still an error.
func ResolveAll(ctx context.Context, r Resolver, names Names) (Secrets, error) {
	var s Secrets
	var err error

	if s.GoogleClientSecret, err = r.GetSecret(ctx, names.GoogleClientSecret); err != nil {
		return Secrets{}, fmt.Errorf("google client secret: %w", err)
	}
	if s.JWTSecret, err = r.GetSecret(ctx, names.JWTSecret); err != nil {
		return Secrets{}, fmt.Errorf("jwt secret: %w", err)
	}
	s.APIGatewaySecret, err = r.GetSecret(ctx, names.APIGatewaySecret)
	switch {
	case errors.Is(err, ErrNotFound):
		s.APIGatewaySecret = ""
	case err != nil:
		return Secrets{}, fmt.Errorf("api gateway secret: %w", err)
	}
	return s, nil
}
