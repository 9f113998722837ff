package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AdminMiddleware accepts HS256 tokens signed with secret that carry the
// "admin" role claim.
func AdminMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		claims, err := parseBearer(ctx, secret)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, err.Error()))
		}

		role, ok := claims["role"].(string)
		if !ok {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(403, "Access denied: Role missing"))
		}
		if role != "admin" {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(403, "Access denied: Admins only"))
		}

		if userId, exists := claims["user_id"]; exists {
			ctx.Locals("user_id", userId)
		}
		return ctx.Next()
	}
}

func parseBearer(ctx *fiber.Ctx, secret string) (jwt.MapClaims, error) {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Missing or invalid authorization header")
	}
	if secret == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Authentication is not configured")
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}
	return claims, nil
}
