// Package auth verifies the bearer tokens operators present to the
// service's management endpoints.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoKey        = errors.New("no verification key configured")
)

// Claims are the registered claims plus the operator role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type VerifierConfig struct {
	// Secret verifies HS256 tokens.
	Secret string
	// JWKS verifies RS256 tokens by key id; nil disables RS256.
	JWKS   *JWKSClient
	Issuer string
}

type Verifier struct {
	secret []byte
	jwks   *JWKSClient
	opts   []jwt.ParserOption
}

// NewVerifier returns nil when neither a secret nor a key set is configured.
func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.Secret == "" && cfg.JWKS == nil {
		return nil
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &Verifier{secret: []byte(cfg.Secret), jwks: cfg.JWKS, opts: opts}
}

func (v *Verifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.key, v.opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (v *Verifier) key(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, ErrNoKey
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		if v.jwks == nil {
			return nil, ErrNoKey
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrKeyNotFound
		}
		return v.jwks.Get(kid)
	default:
		return nil, jwt.ErrTokenSignatureInvalid
	}
}

// SignHS256 issues a token for subject with role, valid for ttl.
func SignHS256(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
