package server

import (
	"strconv"
	"strings"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// callerID returns the authenticated user id set by AuthRequired.
func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

// respond writes err with the status of its error kind.
func respond(c *fiber.Ctx, err error) error {
	return models.RespondWithAppError(c, err)
}

func badRequest(c *fiber.Ctx, message string) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewInvalidOperationError(message))
}

// targetUser reads the {"user_id": "..."} body used by the friend endpoints.
func targetUser(c *fiber.Ctx) (string, error) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return "", models.NewInvalidOperationError("Invalid request body")
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return "", models.NewInvalidOperationError("user_id is required")
	}
	return req.UserID, nil
}

// parseCursor reads last_pulled_at. Omitted or empty means 0.
func parseCursor(c *fiber.Ctx) (int64, error) {
	raw := strings.TrimSpace(c.Query("last_pulled_at"))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, models.NewInvalidOperationError("last_pulled_at must be a non-negative integer")
	}
	return v, nil
}
