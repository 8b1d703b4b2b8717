// Package middleware provides authentication, logging, metrics and rate limiting middleware for the application.
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

const (
	identityLocal    = "identity"
	identityErrLocal = "identityErr"
)

// Identity is the external subject asserted by the identity provider.
type Identity struct {
	Subject string
	Email   string
}

// AuthConfig configures verification of identity provider tokens.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
	// DevBypass substitutes DevSubject for requests that carry no token.
	DevBypass  bool
	DevSubject string
}

var (
	errMissingSubject = errors.New("missing subject")
	errSigningMethod  = errors.New("invalid signing method")
)

// ParseIdentityToken verifies an HS256 identity token and extracts its subject and email.
func ParseIdentityToken(tokenString string, cfg AuthConfig) (*Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errSigningMethod
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return nil, errMissingSubject
	}

	identity := &Identity{Subject: sub}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	return identity, nil
}

// Authenticate resolves the caller's identity from a Bearer token without rejecting the request.
// Routes that need an identity add IdentityRequired after it.
func Authenticate(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			if cfg.DevBypass && cfg.DevSubject != "" {
				SetIdentity(c, &Identity{Subject: cfg.DevSubject})
			}
			return c.Next()
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.Locals(identityErrLocal, "Invalid authorization header format")
			return c.Next()
		}

		identity, err := ParseIdentityToken(strings.TrimSpace(parts[1]), cfg)
		if err != nil {
			c.Locals(identityErrLocal, "Invalid or expired token")
			return c.Next()
		}

		SetIdentity(c, identity)
		return c.Next()
	}
}

// IdentityRequired rejects requests that Authenticate could not attach an identity to.
func IdentityRequired(c *fiber.Ctx) error {
	if _, ok := IdentityFrom(c); ok {
		return c.Next()
	}
	msg, _ := c.Locals(identityErrLocal).(string)
	if msg == "" {
		msg = "Unauthorized"
	}
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
}

// IdentityFrom returns the identity attached by Authenticate.
func IdentityFrom(c *fiber.Ctx) (*Identity, bool) {
	identity, ok := c.Locals(identityLocal).(*Identity)
	return identity, ok && identity != nil
}

// SetIdentity attaches an identity to the request and its logging context.
func SetIdentity(c *fiber.Ctx, identity *Identity) {
	c.Locals(identityLocal, identity)
	c.SetUserContext(context.WithValue(c.UserContext(), observability.SubjectKey, identity.Subject))
}
