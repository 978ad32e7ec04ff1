package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

const AdminIDKey = "admin_id"

// AdminChecker is satisfied by *repository.Repository.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// AdminAuth allows only users present in the admins table.
func AdminAuth(checker AdminChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
				"code":  "unauthorized",
			})
		}

		isAdmin, err := checker.IsAdmin(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to check admin status",
				"code":  "internal_error",
			})
		}

		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "access denied",
				"code":  "forbidden",
			})
		}

		c.Locals(AdminIDKey, userID)
		return c.Next()
	}
}
