package server

import (
	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Pull handles POST /sync/pull?last_pulled_at=<ms>
func (s *Server) Pull(c *fiber.Ctx) error {
	since, err := parseCursor(c)
	if err != nil {
		return respond(c, err)
	}

	res, err := s.syncService.Pull(c.UserContext(), callerID(c), since)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}

// Push handles POST /sync/push
func (s *Server) Push(c *fiber.Ctx) error {
	var changes models.PushChanges
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&changes); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	res, err := s.syncService.Push(c.UserContext(), callerID(c), changes)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"status":   "success",
		"upserted": res.Upserted,
		"skipped":  res.Skipped,
		"deleted":  res.Deleted,
	})
}
