package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
	Provider    string `json:"provider"`
	jwt.RegisteredClaims
}

// TokenIssuer signs the bearer tokens that keep a session alive across
// reloads and devices.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (t *TokenIssuer) Issue(id Identity) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)

	claims := Claims{
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Provider:    id.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

func (t *TokenIssuer) Parse(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, NewAuthError(CodeInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, NewAuthError(CodeInvalidToken, errors.New("token is not valid"))
	}

	userID, err := uuid.FromString(claims.Subject)
	if err != nil {
		return Identity{}, NewAuthError(CodeInvalidToken, fmt.Errorf("bad subject: %w", err))
	}

	return Identity{
		UserID:      userID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Provider:    claims.Provider,
	}, nil
}
