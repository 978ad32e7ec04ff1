package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sarvcast/coinsvc/internal/config"
)

const UserIDKey = "user_id"

// Auth validates the signed API token issued by the main SarvCast backend.
// Token format: "<user_id>:<expires_unix>:<hex hmac-sha256>", signed with the
// shared API secret.
func Auth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")

		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing api token",
				"code":  "unauthorized",
			})
		}

		userID, err := ValidateToken(token, cfg.Server.APISecret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid api token: " + err.Error(),
				"code":  "unauthorized",
			})
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// ValidateToken checks the signature and expiry and returns the user id.
func ValidateToken(token, secret string) (int64, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "malformed token")
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || userID <= 0 {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "invalid user id")
	}

	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "invalid expiry")
	}
	if time.Now().Unix() > expires {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "token expired")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(parts[0] + ":" + parts[1]))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "bad signature")
	}
	return userID, nil
}

// SignToken builds a token for the given user, valid for ttl. The main
// backend uses the same scheme on its side.
func SignToken(userID int64, ttl time.Duration, secret string) string {
	payload := strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return payload + ":" + hex.EncodeToString(mac.Sum(nil))
}

// InternalAuth guards service-to-service endpoints with the shared API
// secret, passed as-is in the X-Api-Key header.
func InternalAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-Api-Key")
		if key == "" || !hmac.Equal([]byte(key), []byte(cfg.Server.APISecret)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid api key",
				"code":  "unauthorized",
			})
		}
		return c.Next()
	}
}

// GetUserID returns the authenticated user id, or 0 when unauthenticated.
func GetUserID(c *fiber.Ctx) int64 {
	if id, ok := c.Locals(UserIDKey).(int64); ok {
		return id
	}
	return 0
}
