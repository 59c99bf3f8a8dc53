package service

import (
	"context"
	"errors"
	"testing"

	"learngate/internal/config"
)

type fakeAccessor struct {
	secret   string
	err      error
	resource string
}

func (f *fakeAccessor) AccessSecret(_ context.Context, resource string) (string, error) {
	f.resource = resource
	return f.secret, f.err
}

func TestResolveJWTSecret(t *testing.T) {
	ctx := context.Background()

	direct, err := ResolveJWTSecret(ctx, &config.Config{JWTSecret: "plain", JWTSecretResource: "ignored"}, nil)
	if err != nil || direct != "plain" {
		t.Fatalf("expected the plain secret, got %q (%v)", direct, err)
	}

	acc := &fakeAccessor{secret: "from-manager"}
	got, err := ResolveJWTSecret(ctx, &config.Config{JWTSecretResource: "projects/p/secrets/jwt"}, acc)
	if err != nil || got != "from-manager" {
		t.Fatalf("expected the managed secret, got %q (%v)", got, err)
	}
	if acc.resource != "projects/p/secrets/jwt" {
		t.Fatalf("unexpected resource %s", acc.resource)
	}

	if _, err := ResolveJWTSecret(ctx, &config.Config{JWTSecretResource: "x"}, nil); err == nil {
		t.Fatal("expected an error without an accessor")
	}
	if _, err := ResolveJWTSecret(ctx, &config.Config{JWTSecretResource: "x"}, &fakeAccessor{}); err == nil {
		t.Fatal("expected an error for an empty secret")
	}
	if _, err := ResolveJWTSecret(ctx, &config.Config{JWTSecretResource: "x"}, &fakeAccessor{err: errBoom}); !errors.Is(err, errBoom) {
		t.Fatalf("expected accessor error, got %v", err)
	}
	if _, err := ResolveJWTSecret(ctx, &config.Config{}, nil); err == nil {
		t.Fatal("expected an error when nothing is configured")
	}
}

func TestSecretVersionName(t *testing.T) {
	cases := map[string]string{
		"projects/p/secrets/jwt":            "projects/p/secrets/jwt/versions/latest",
		"projects/p/secrets/jwt/":           "projects/p/secrets/jwt/versions/latest",
		"projects/p/secrets/jwt/versions/3": "projects/p/secrets/jwt/versions/3",
	}
	for in, want := range cases {
		if got := secretVersionName(in); got != want {
			t.Errorf("secretVersionName(%q) = %q, want %q", in, got, want)
		}
	}
}
