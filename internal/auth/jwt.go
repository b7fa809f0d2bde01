// Package auth verifies identity-provider bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// leeway absorbs clock skew between us and the identity provider.
const leeway = 30 * time.Second

// Claims holds the identity claims a Cognito user pool puts in its tokens.
type Claims struct {
	Username string   `json:"cognito:username,omitempty"`
	Groups   []string `json:"cognito:groups,omitempty"`
	TokenUse string   `json:"token_use,omitempty"`
	ClientID string   `json:"client_id,omitempty"`
	// AccessUsername is the username claim of access tokens.
	AccessUsername string `json:"username,omitempty"`
	Email          string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// User returns the username the token was issued to.
func (c *Claims) User() string {
	if c.Username != "" {
		return c.Username
	}
	return c.AccessUsername
}

// InGroup reports whether the user belongs to group.
func (c *Claims) InGroup(group string) bool {
	return slices.Contains(c.Groups, group)
}

// Verifier checks token signatures against a trusted key set and validates
// issuer, expiry and audience.
type Verifier struct {
	keyfunc  jwt.Keyfunc
	methods  []string
	issuer   string
	clientID string
}

// NewJWKSVerifier verifies RS256 tokens against the identity provider's JWKS
// endpoint. Keys are fetched now and refreshed in the background until ctx ends.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer, clientID string) (*Verifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}
	return &Verifier{
		keyfunc:  k.Keyfunc,
		methods:  []string{jwt.SigningMethodRS256.Alg()},
		issuer:   issuer,
		clientID: clientID,
	}, nil
}

// NewHMACVerifier verifies HS256 tokens signed with secret. For local development.
func NewHMACVerifier(secret, issuer, clientID string) *Verifier {
	key := []byte(secret)
	return &Verifier{
		keyfunc:  func(*jwt.Token) (interface{}, error) { return key, nil },
		methods:  []string{jwt.SigningMethodHS256.Alg()},
		issuer:   issuer,
		clientID: clientID,
	}
}

// Verify parses and validates a token, returning its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.keyfunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if err := v.checkClient(claims); err != nil {
		return nil, err
	}
	if claims.User() == "" {
		return nil, fmt.Errorf("%w: no username claim", ErrInvalidToken)
	}
	return claims, nil
}

// checkClient enforces the app client: id tokens carry it as audience,
// access tokens as client_id.
func (v *Verifier) checkClient(c *Claims) error {
	switch c.TokenUse {
	case "", "id", "access":
	default:
		return fmt.Errorf("%w: token_use %q", ErrInvalidToken, c.TokenUse)
	}
	if v.clientID == "" {
		return nil
	}
	switch c.TokenUse {
	case "access":
		if c.ClientID == v.clientID {
			return nil
		}
	case "id":
		if slices.Contains(c.Audience, v.clientID) {
			return nil
		}
	default:
		if c.ClientID == v.clientID || slices.Contains(c.Audience, v.clientID) {
			return nil
		}
	}
	return fmt.Errorf("%w: issued to another client", ErrInvalidToken)
}
