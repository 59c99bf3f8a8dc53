package middleware

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity fields the gateway relies on.
type Claims struct {
	Email   string   `json:"email"`
	Role    string   `json:"role"`
	Modules []string `json:"modules"`
	jwt.RegisteredClaims
}

func parsePublicKey(pemKey string) (any, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return pub, nil
}

// ParseECDSAPublicKey parses a PEM-encoded ECDSA public key
func ParseECDSAPublicKey(pemKey string) (*ecdsa.PublicKey, error) {
	pub, err := parsePublicKey(pemKey)
	if err != nil {
		return nil, err
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not ECDSA")
	}
	return ecdsaPub, nil
}

// ParseRSAPublicKey parses a PEM-encoded RSA public key
func ParseRSAPublicKey(pemKey string) (*rsa.PublicKey, error) {
	pub, err := parsePublicKey(pemKey)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return rsaPub, nil
}

var (
	hmacMethods  = []string{"HS256", "HS384", "HS512"}
	rsaMethods   = []string{"RS256", "RS384", "RS512"}
	ecdsaMethods = []string{"ES256", "ES384", "ES512"}
)

func isPEM(keyMaterial string) bool {
	block, _ := pem.Decode([]byte(keyMaterial))
	return block != nil
}

// signingMethods lists the algorithms keyMaterial can verify. A PEM public key admits
// only its own asymmetric family. Anything else is an HMAC secret.
func signingMethods(keyMaterial string) ([]string, error) {
	if !isPEM(keyMaterial) {
		return hmacMethods, nil
	}
	pub, err := parsePublicKey(keyMaterial)
	if err != nil {
		return nil, err
	}
	switch pub.(type) {
	case *rsa.PublicKey:
		return rsaMethods, nil
	case *ecdsa.PublicKey:
		return ecdsaMethods, nil
	default:
		return nil, fmt.Errorf("unsupported public key type %T", pub)
	}
}

// KeyFunc picks the verification key for a token from its signing algorithm. keyMaterial
// is either an HMAC secret or a PEM public key; a PEM key never verifies an HMAC token.
func KeyFunc(keyMaterial string) jwt.Keyfunc {
	pemKey := isPEM(keyMaterial)
	return func(token *jwt.Token) (any, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if pemKey {
				return nil, fmt.Errorf("signing algorithm %v does not match a public key", token.Header["alg"])
			}
			return []byte(keyMaterial), nil
		case *jwt.SigningMethodRSA:
			return ParseRSAPublicKey(keyMaterial)
		case *jwt.SigningMethodECDSA:
			return ParseECDSAPublicKey(keyMaterial)
		default:
			return nil, fmt.Errorf("unsupported signing algorithm: %v", token.Header["alg"])
		}
	}
}

// ValidateJWT verifies tokenString and returns its claims. A token without a subject is rejected.
func ValidateJWT(tokenString string, keyMaterial string) (*Claims, error) {
	methods, err := signingMethods(keyMaterial)
	if err != nil {
		return nil, fmt.Errorf("failed to load verification key: %w", err)
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, KeyFunc(keyMaterial), jwt.WithValidMethods(methods))
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
