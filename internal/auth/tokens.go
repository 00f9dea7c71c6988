package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed, badly signed and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrRevokedToken marks a token that was signed out.
	ErrRevokedToken = errors.New("token has been revoked")
)

// Claims carried by issued credentials.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies RS256 credentials.
type TokenManager struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	ttl     time.Duration
	issuer  string
	now     func() time.Time
}

// NewTokenManager parses PEM encoded keys. Escaped "\n" sequences, as found
// in single-line environment values, are accepted.
func NewTokenManager(privatePEM, publicPEM string, ttl time.Duration, issuer string) (*TokenManager, error) {
	private, err := jwt.ParseRSAPrivateKeyFromPEM(normalizePEM(privatePEM))
	if err != nil {
		return nil, fmt.Errorf("auth: parse private key: %w", err)
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM(normalizePEM(publicPEM))
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{private: private, public: public, ttl: ttl, issuer: issuer, now: time.Now}, nil
}

func normalizePEM(value string) []byte {
	return []byte(strings.ReplaceAll(strings.TrimSpace(value), `\n`, "\n"))
}

// TTL returns the credential lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a credential for userID.
func (m *TokenManager) Issue(userID string) (string, Claims, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.private)
	if err != nil {
		return "", Claims{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return token, claims, nil
}

// Parse verifies signature, algorithm and expiry of raw.
func (m *TokenManager) Parse(raw string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.public, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.UserID == "" || claims.ID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
