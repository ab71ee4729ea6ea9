// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"strings"

	"github.com/Geometrically/fabricate/internal/config"
	"github.com/Geometrically/fabricate/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// Caller returns the authenticated identity stored by the auth middleware, or
// nil for anonymous requests.
func Caller(c *fiber.Ctx) *models.CallerIdentity {
	if v := c.Locals("caller"); v != nil {
		if ident, ok := v.(*models.CallerIdentity); ok {
			return ident
		}
	}
	return nil
}

// resolveToken validates a bearer token and yields the caller identity. The
// "sub" claim carries the base-62 user id and "role" the site-wide role.
func resolveToken(tokenString string) (*models.CallerIdentity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	subClaim, ok := claims["sub"]
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token structure - missing subject")
	}
	subStr, ok := subClaim.(string)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token subject type")
	}
	userID, err := models.ParseID(subStr)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID in token")
	}

	role := models.RoleDeveloper
	if roleClaim, ok := claims["role"].(string); ok && roleClaim != "" {
		role = models.Role(roleClaim)
	}

	return &models.CallerIdentity{UserID: userID, Role: role}, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Authorization header required")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization header format")
	}
	return parts[1], nil
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ident, err := resolveToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Locals("caller", ident)
	return c.Next()
}

// OptionalAuth resolves the caller identity when a token is present but lets
// anonymous requests through. Public reads use this: visibility of hidden
// projects depends on who is asking.
func OptionalAuth(c *fiber.Ctx) error {
	if c.Get("Authorization") == "" {
		return c.Next()
	}

	tokenString, err := bearerToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ident, err := resolveToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Locals("caller", ident)
	return c.Next()
}

// ModeratorRequired enforces a moderator or admin role. It must run after
// AuthRequired.
func ModeratorRequired(c *fiber.Ctx) error {
	ident := Caller(c)
	if ident == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}
	if !ident.Role.IsMod() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "moderator role required",
		})
	}
	return c.Next()
}
