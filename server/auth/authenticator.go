// Package auth verifies Keycloak-issued bearer tokens. The identity provider
// itself is an external collaborator; this package only checks signatures
// against the realm's public key and extracts the identity claims.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrUnauthenticated is returned for missing, malformed, expired, or
// otherwise unverifiable credentials. Callers must not leak the detail.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator verifies RS256 bearer tokens against a Keycloak realm.
type Authenticator struct {
	issuer     string
	httpClient *http.Client

	mu        sync.Mutex
	publicKey *rsa.PublicKey
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithPublicKey pins the verification key, skipping realm discovery.
// Used by tests and by deployments that distribute the key out of band.
func WithPublicKey(key *rsa.PublicKey) Option {
	return func(a *Authenticator) { a.publicKey = key }
}

// New creates an Authenticator for serverURL (e.g. http://keycloak:8080)
// and realm. The realm public key is fetched lazily and cached.
func New(serverURL, realm string, opts ...Option) *Authenticator {
	a := &Authenticator{
		issuer:     strings.TrimRight(serverURL, "/") + "/realms/" + realm,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate verifies the Authorization header and returns the identity.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (*UserContext, error) {
	raw, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || raw == "" {
		return nil, ErrUnauthenticated
	}

	key, err := a.verificationKey(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch realm key")
	}

	token, err := jwt.Parse(raw,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthenticated
	}
	user := userFromClaims(claims)
	if user.ID == "" {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// verificationKey returns the cached realm public key, fetching it on first
// use from the realm endpoint (which serves {"public_key": <base64 DER>}).
// The lock is not held across the network call: concurrent cold starts may
// fetch more than once, but they all land on the same realm key and nobody
// queues behind a slow identity provider.
func (a *Authenticator) verificationKey(ctx context.Context) (*rsa.PublicKey, error) {
	a.mu.Lock()
	if a.publicKey != nil {
		key := a.publicKey
		a.mu.Unlock()
		return key, nil
	}
	a.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.issuer, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("realm endpoint returned HTTP %d", resp.StatusCode)
	}

	var realmInfo struct {
		PublicKey string `json:"public_key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&realmInfo); err != nil {
		return nil, err
	}
	if realmInfo.PublicKey == "" {
		return nil, errors.New("realm endpoint returned no public key")
	}

	pemBlock := fmt.Sprintf("-----BEGIN PUBLIC KEY-----\n%s\n-----END PUBLIC KEY-----", realmInfo.PublicKey)
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemBlock))
	if err != nil {
		return nil, errors.Wrap(err, "parse realm public key")
	}
	a.mu.Lock()
	a.publicKey = key
	a.mu.Unlock()
	return key, nil
}

func userFromClaims(claims jwt.MapClaims) *UserContext {
	str := func(key string) string {
		if v, ok := claims[key].(string); ok {
			return v
		}
		return ""
	}
	user := &UserContext{
		ID:       str("sub"),
		Username: str("preferred_username"),
		Email:    str("email"),
		Name:     str("name"),
	}
	if realmAccess, ok := claims["realm_access"].(map[string]any); ok {
		if roles, ok := realmAccess["roles"].([]any); ok {
			for _, r := range roles {
				if role, ok := r.(string); ok {
					user.Roles = append(user.Roles, role)
				}
			}
		}
	}
	return user
}
