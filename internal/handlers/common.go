package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// parseActorID pulls the authenticated user id out of the JWT claims the auth
// middleware stored on the request.
func parseActorID(c *fiber.Ctx) (int64, error) {
	userIDValue := c.Locals("user_id")
	userIDStr, ok := userIDValue.(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}

func actorRole(c *fiber.Ctx) string {
	role, _ := c.Locals("role").(string)
	return role
}

func parseIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrSyntax
	}
	return id, nil
}
