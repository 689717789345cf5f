package middlewares

import (
	"strings"

	"chat_platform/pkg/identity"
	"chat_platform/pkg/logger"
	t_token "chat_platform/pkg/token"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	//QueryToken token in query name, browsers cannot set headers on websocket upgrades
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenIdentity normalized caller identity, set c.locals name
	TokenIdentity = "TokenIdentity"
)

// JWTMiddleware validates the caller session token and stores the normalized identity in locals
func JWTMiddleware(v *t_token.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := v.ParseJWT(tokenStr)
		if err != nil {
			logger.Log.Debug("token rejected", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenIdentity, identity.Normalize(claims.TokenIdentifier()))
		return c.Next()
	}
}

// CallerIdentity read the identity stored by JWTMiddleware, empty when unauthenticated
func CallerIdentity(c *fiber.Ctx) string {
	id, _ := c.Locals(TokenIdentity).(string)
	return id
}

func extractToken(c *fiber.Ctx) string {
	if t := c.Query(QueryToken); t != "" {
		return t
	}
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return c.Cookies(CookieToken)
}
