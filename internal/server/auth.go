package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	authz "github.com/hanpama/gqlexpr/internal/authz"
)

// Claims are the JWT claims a bearer token carries. The subject becomes the
// user ID.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

var errMissingSubject = errors.New("token has no subject")

// authenticate reads the user from an "Authorization: Bearer" header. It
// returns nil without error for anonymous requests.
func (h *Handler) authenticate(r *http.Request) (*authz.User, error) {
	if len(h.opt.JWTSecret) == 0 {
		return nil, nil
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, errors.New("unsupported authorization scheme")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return h.opt.JWTSecret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, fmt.Errorf("invalid bearer token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid bearer token: %w", errMissingSubject)
	}
	return &authz.User{ID: claims.Subject, Roles: claims.Roles}, nil
}

// SignToken issues an HS256 token for user. It is used by tooling and tests
// to mint tokens the handler accepts.
func SignToken(secret []byte, user *authz.User) (string, error) {
	claims := Claims{
		Roles:            user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
