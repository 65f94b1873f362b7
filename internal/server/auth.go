package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/katikolakarthik/manvi/internal/apperr"
	"github.com/katikolakarthik/manvi/internal/domain"
)

const ctxKeyActor = "actor"

// Claims is the token payload issued by the account service. Only
// verification happens here.
type Claims struct {
	UserID string      `json:"id"`
	Email  string      `json:"email,omitempty"`
	Name   string      `json:"name,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) actor() *domain.Actor {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	role := c.Role
	if role == "" {
		role = domain.RoleUser
	}
	return &domain.Actor{ID: id, Email: c.Email, Name: c.Name, Role: role}
}

func parseToken(secret []byte, header string) (*domain.Actor, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		raw = header
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty token")
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	a := claims.actor()
	if a.ID == "" {
		return nil, errors.New("token has no subject")
	}
	return a, nil
}

// OptionalAuth attaches the caller when a valid bearer token is present.
// Requests without a token continue as guests; a bad token is rejected.
func OptionalAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		a, err := parseToken(key, header)
		if err != nil {
			fail(c, apperr.Wrap(apperr.Unauthorized, "Not authorized, token failed", err))
			return
		}
		c.Set(ctxKeyActor, a)
		c.Next()
	}
}

// RequireAuth must run after OptionalAuth.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentActor(c) == nil {
			fail(c, apperr.UnauthorizedErr("Not authorized, no token"))
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		a := currentActor(c)
		if a == nil {
			fail(c, apperr.UnauthorizedErr("Not authorized, no token"))
			return
		}
		if !a.IsAdmin() {
			fail(c, apperr.ForbiddenErr("User role "+string(a.Role)+" is not authorized to access this route"))
			return
		}
		c.Next()
	}
}

func currentActor(c *gin.Context) *domain.Actor {
	v, ok := c.Get(ctxKeyActor)
	if !ok {
		return nil
	}
	a, _ := v.(*domain.Actor)
	return a
}
