package server

import (
	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListRecords handles GET /records
func (s *Server) ListRecords(c *fiber.Ctx) error {
	records, err := s.recordService.List(c.UserContext(), callerID(c), c.QueryInt("limit", 0))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(records)
}

// GetRecord handles GET /records/:id
func (s *Server) GetRecord(c *fiber.Ctx) error {
	rec, err := s.recordService.Get(c.UserContext(), callerID(c), c.Params("id"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(rec)
}

// CreateRecord handles POST /records
func (s *Server) CreateRecord(c *fiber.Ctx) error {
	var rec models.Record
	if err := c.BodyParser(&rec); err != nil {
		return badRequest(c, "Invalid request body")
	}

	created, err := s.recordService.Create(c.UserContext(), callerID(c), rec)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// ReplaceRecord handles PUT /records/:id
func (s *Server) ReplaceRecord(c *fiber.Ctx) error {
	var rec models.Record
	if err := c.BodyParser(&rec); err != nil {
		return badRequest(c, "Invalid request body")
	}

	updated, err := s.recordService.Replace(c.UserContext(), callerID(c), c.Params("id"), rec)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(updated)
}

// DeleteRecord handles DELETE /records/:id
func (s *Server) DeleteRecord(c *fiber.Ctx) error {
	if err := s.recordService.Delete(c.UserContext(), callerID(c), c.Params("id")); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
