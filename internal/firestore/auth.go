package firestore

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

const datastoreScope = "https://www.googleapis.com/auth/datastore"

// Credentials selects how requests are authorized. AccessToken wins over
// the service-account pair when both are set.
type Credentials struct {
	AccessToken string
	ClientEmail string
	PrivateKey  string
	TokenURL    string
}

// NewHTTPClient returns a client that adds a bearer token to every request.
func NewHTTPClient(ctx context.Context, creds Credentials) (*http.Client, error) {
	if creds.AccessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"})
		return oauth2.NewClient(ctx, ts), nil
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, fmt.Errorf("firestore credentials missing: set an access token or a service account")
	}

	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}
	conf := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(normalizeKey(creds.PrivateKey)),
		Scopes:     []string{datastoreScope},
		TokenURL:   tokenURL,
	}
	return conf.Client(ctx), nil
}

// normalizeKey restores newlines in keys pasted into env vars as "\n".
func normalizeKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}
