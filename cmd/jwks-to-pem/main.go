package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"learngate/internal/middleware"
)

// Prints the identity provider's signing key as PEM, suitable for JWT_SECRET.
func main() {
	url := flag.String("url", "http://127.0.0.1:54321/auth/v1/.well-known/jwks.json", "JWKS endpoint")
	kid := flag.String("kid", "", "key id to export (default: first signing key)")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(*url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching JWKS: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Unexpected JWKS status: %s\n", resp.Status)
		os.Exit(1)
	}

	var jwks middleware.JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing JWKS: %v\n", err)
		os.Exit(1)
	}

	key, ok := jwks.SigningKey(*kid)
	if !ok {
		fmt.Fprintf(os.Stderr, "No signing key found in JWKS\n")
		os.Exit(1)
	}
	pemKey, err := key.PEM()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting key %s: %v\n", key.Kid, err)
		os.Exit(1)
	}
	fmt.Print(pemKey)
}
