package service

import (
	"context"
	"fmt"
	"strings"

	"learngate/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SecretAccessor reads the payload of a secret version.
type SecretAccessor interface {
	AccessSecret(ctx context.Context, resource string) (string, error)
}

// SecretManagerService reads secrets from Google Secret Manager.
type SecretManagerService struct {
	client *secretmanager.Client
}

func NewSecretManagerService(ctx context.Context) (*SecretManagerService, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &SecretManagerService{client: client}, nil
}

func (s *SecretManagerService) AccessSecret(ctx context.Context, resource string) (string, error) {
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretVersionName(resource),
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version %s: %w", resource, err)
	}
	return strings.TrimSpace(string(result.Payload.Data)), nil
}

func (s *SecretManagerService) Close() error {
	return s.client.Close()
}

// secretVersionName pins a bare secret name to its latest version.
func secretVersionName(resource string) string {
	if strings.Contains(resource, "/versions/") {
		return resource
	}
	return strings.TrimRight(resource, "/") + "/versions/latest"
}

// ResolveJWTSecret returns JWT_SECRET when set, otherwise reads JWT_SECRET_RESOURCE.
func ResolveJWTSecret(ctx context.Context, cfg *config.Config, accessor SecretAccessor) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	if cfg.JWTSecretResource == "" {
		return "", fmt.Errorf("no JWT secret configured")
	}
	if accessor == nil {
		return "", fmt.Errorf("JWT_SECRET_RESOURCE is set but no secret accessor is available")
	}
	secret, err := accessor.AccessSecret(ctx, cfg.JWTSecretResource)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", fmt.Errorf("secret %s is empty", cfg.JWTSecretResource)
	}
	return secret, nil
}
