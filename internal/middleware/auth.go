// Package middleware provides authentication, logging, tracing and rate limiting middleware for the application.
package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/config"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RevocationChecker reports whether a token id has been revoked (e.g. by logout).
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Authenticator verifies bearer credentials. It holds no per-request state.
type Authenticator struct {
	secret  []byte
	alg     string
	revoked RevocationChecker
}

// NewAuthenticator builds an Authenticator from config. revoked may be nil.
func NewAuthenticator(cfg *config.Config, revoked RevocationChecker) *Authenticator {
	alg := cfg.JWTAlg
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	return &Authenticator{
		secret:  []byte(cfg.JWTSecret),
		alg:     alg,
		revoked: revoked,
	}
}

const bearerPrefix = "bearer "

// VerifyToken validates a bearer credential and returns the caller identity.
// An optional case-insensitive "Bearer " prefix is stripped once. Audience is not checked.
func (a *Authenticator) VerifyToken(ctx context.Context, credential string) (*models.Identity, error) {
	raw := strings.TrimSpace(credential)
	if len(raw) >= len(bearerPrefix) && strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		raw = strings.TrimSpace(raw[len(bearerPrefix):])
	}
	if raw == "" {
		return nil, models.NewUnauthenticatedError("Authorization required")
	}

	token, err := jwt.Parse(raw, func(_ *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{a.alg}))
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.NewUnauthenticatedError("Token has expired")
		}
		return nil, models.NewUnauthenticatedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthenticatedError("Invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || strings.TrimSpace(sub) == "" {
		return nil, models.NewUnauthenticatedError("Invalid subject claim")
	}

	identity := &models.Identity{ID: sub, Email: emailFromClaims(claims)}

	if jti, ok := claims["jti"].(string); ok && jti != "" {
		identity.TokenID = jti
		if a.revoked != nil {
			// Fail open on store errors; signature and expiry are already verified.
			revoked, rerr := a.revoked.IsRevoked(ctx, jti)
			if rerr == nil && revoked {
				return nil, models.NewUnauthenticatedError("Token has been revoked")
			}
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}

	return identity, nil
}

func emailFromClaims(claims jwt.MapClaims) string {
	if email, ok := claims["email"].(string); ok && email != "" {
		return email
	}
	if meta, ok := claims["user_metadata"].(map[string]any); ok {
		if email, ok := meta["email"].(string); ok {
			return email
		}
	}
	return ""
}

// AuthRequired is a middleware that enforces authentication for protected routes.
// It stores the caller id in c.Locals("userID") and in the user context.
func (a *Authenticator) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := a.VerifyToken(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		c.Locals("userID", identity.ID)
		c.Locals("email", identity.Email)
		c.Locals("identity", identity)
		ctx := context.WithValue(c.UserContext(), UserIDKey, identity.ID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// IssueToken signs a token for the user with the configured algorithm.
// It returns the signed token and its jti.
func IssueToken(cfg *config.Config, userID, email string, now time.Time) (string, string, error) {
	if cfg.JWTSecret == "" {
		return "", "", errors.New("JWT secret not configured")
	}
	method := jwt.GetSigningMethod(cfg.JWTAlg)
	if method == nil {
		method = jwt.SigningMethodHS256
	}

	jti := newTokenID()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iss":   cfg.JWTIssuer,
		"exp":   now.Add(time.Duration(cfg.TokenTTLHours) * time.Hour).Unix(),
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"jti":   jti,
	}

	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

func newTokenID() string {
	return uuid.NewString()
}
