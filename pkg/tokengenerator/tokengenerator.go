package tokengenerator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenGenerator signs and parses access tokens for a Subject.
type TokenGenerator interface {
	GenerateToken(subject Subject, expiry time.Duration) (string, time.Time, error)
	ParseToken(tokenStr string) (*Claims, error)
}

// Claims carries the subject's identity next to the registered claims.
// The subject id is the "sub" claim.
type Claims struct {
	Org  string `json:"org,omitempty"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the subject the token was issued for.
func (c *Claims) Identity() Subject {
	return Subject{ID: c.RegisteredClaims.Subject, Org: c.Org, Name: c.Name, Role: c.Role}
}

// notBeforeLeeway tolerates clock drift between instances sharing a secret.
const notBeforeLeeway = 5 * time.Minute

// JwtTokenGenerator signs HS256 tokens with a shared secret.
type JwtTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
	now      func() time.Time
}

func NewJwtTokenGenerator(secret, issuer, audience string) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
		now:      time.Now,
	}
}

func (g *JwtTokenGenerator) GenerateToken(subject Subject, expiry time.Duration) (string, time.Time, error) {
	now := g.now().UTC()
	claims := Claims{
		Org:  subject.Org,
		Name: subject.Name,
		Role: subject.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID,
			Issuer:    g.Issuer,
			Audience:  jwt.ClaimStrings{g.Audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-notBeforeLeeway)),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed signing token", "sub", subject.ID, "err", err)
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// ParseToken verifies the signature, expiry, issuer and audience.
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(g.Secret), nil
	},
		jwt.WithIssuer(g.Issuer),
		jwt.WithAudience(g.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		slog.Debug("Rejected token", "err", err)
		return nil, err
	}
	return claims, nil
}
