// Package middleware provides authentication, authorization, logging, metrics
// and rate limiting for the HTTP layer.
package middleware

import (
	"errors"
	"strconv"
	"strings"

	"pariposhan/internal/models"
	"pariposhan/internal/policy"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// PrincipalLocal is the fiber locals key holding the caller's
// policy.Principal. Websocket handlers read it from the upgraded conn.
const PrincipalLocal = "principal"

const localsUserID = "userID"

// TokenVerifier validates bearer tokens minted by the identity provider.
type TokenVerifier struct {
	Secret   []byte
	Issuer   string
	Audience string
}

var (
	errInvalidToken    = errors.New("invalid or expired token")
	errInvalidIssuer   = errors.New("invalid token issuer")
	errInvalidAudience = errors.New("invalid token audience")
	errInvalidSubject  = errors.New("invalid subject claim")
)

// Claims is the token payload the service understands.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verify parses tokenString and returns the caller it identifies, along with
// the token ID used for revocation checks.
func (v TokenVerifier) Verify(tokenString string) (policy.Principal, string, error) {
	var claims Claims
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return policy.Principal{}, "", errInvalidIssuer
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return policy.Principal{}, "", errInvalidAudience
		}
		return policy.Principal{}, "", errInvalidToken
	}
	if !token.Valid {
		return policy.Principal{}, "", errInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return policy.Principal{}, "", errInvalidSubject
	}

	return policy.Principal{
		UserID: uint(userID),
		Name:   claims.Name,
		Email:  claims.Email,
		Role:   policy.ParseRole(claims.Role),
	}, claims.ID, nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// SetPrincipal stores the caller in fiber locals.
func SetPrincipal(c *fiber.Ctx, p policy.Principal) {
	c.Locals(PrincipalLocal, p)
	c.Locals(localsUserID, p.UserID)
}

// PrincipalFrom returns the caller stored by the auth middleware. The zero
// Principal means anonymous.
func PrincipalFrom(c *fiber.Ctx) policy.Principal {
	if p, ok := c.Locals(PrincipalLocal).(policy.Principal); ok {
		return p
	}
	return policy.Principal{}
}

// RequireRole rejects callers below min with 403. It must run after the
// authentication middleware.
func RequireRole(min policy.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := PrincipalFrom(c)
		if !p.Authenticated() {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization required"))
		}
		if !p.Role.AtLeast(min) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError(string(min)+" access required"))
		}
		return c.Next()
	}
}
