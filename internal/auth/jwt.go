package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/parkus/internal/domain"
	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Claims carry the actor of an already-issued access token.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator turns HS256 bearer tokens into actors. It never issues
// credentials for end users.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) ParseToken(tokenStr string) (domain.Actor, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return domain.Actor{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	return ActorFromStrings(c.Sub, c.Role)
}

// FromRequest reads the actor from the Authorization: Bearer header.
func (a *Authenticator) FromRequest(r *http.Request) (domain.Actor, error) {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	return a.ParseToken(token)
}

// Sign is used by internal tooling and tests to mint a token for a known actor.
func (a *Authenticator) Sign(actor domain.Actor, ttl time.Duration) (string, error) {
	claims := Claims{
		Sub:              strconv.FormatInt(actor.ID, 10),
		Role:             string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl))},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func ActorFromStrings(sub, role string) (domain.Actor, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return domain.Actor{}, fmt.Errorf("%w: bad subject %q", ErrUnauthenticated, sub)
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return domain.Actor{ID: id, Role: r}, nil
}
