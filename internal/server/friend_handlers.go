package server

import (
	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RequestFriend handles POST /friends/request
func (s *Server) RequestFriend(c *fiber.Ctx) error {
	me := callerID(c)
	other, err := targetUser(c)
	if err != nil {
		return respond(c, err)
	}

	rel, err := s.relationshipService.Request(c.UserContext(), me, other)
	if err != nil {
		return respond(c, err)
	}

	// The other user already asked; report their pending request.
	if rel.RequestedBy != me {
		return c.JSON(fiber.Map{
			"status":          models.RelationshipStatusPending,
			"requested_by":    rel.RequestedBy,
			"relationship_id": rel.ID,
		})
	}
	return c.JSON(fiber.Map{
		"status":          models.RelationshipStatusPending,
		"relationship_id": rel.ID,
	})
}

// AcceptFriend handles POST /friends/accept
func (s *Server) AcceptFriend(c *fiber.Ctx) error {
	other, err := targetUser(c)
	if err != nil {
		return respond(c, err)
	}
	if _, err := s.relationshipService.Accept(c.UserContext(), callerID(c), other); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"status": models.RelationshipStatusAccepted})
}

// RejectFriend handles POST /friends/reject. It also cancels an outgoing request.
func (s *Server) RejectFriend(c *fiber.Ctx) error {
	other, err := targetUser(c)
	if err != nil {
		return respond(c, err)
	}
	if _, err := s.relationshipService.Reject(c.UserContext(), callerID(c), other); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"status": "rejected"})
}

// Unfriend handles DELETE /friends/:otherUserId
func (s *Server) Unfriend(c *fiber.Ctx) error {
	if _, err := s.relationshipService.Unfriend(c.UserContext(), callerID(c), c.Params("otherUserId")); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"status": "removed"})
}

// ListFriends handles GET /friends
func (s *Server) ListFriends(c *fiber.Ctx) error {
	friends, err := s.relationshipService.ListFriends(c.UserContext(), callerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"friends": friends})
}

// ListFriendRequests handles GET /friends/requests
func (s *Server) ListFriendRequests(c *fiber.Ctx) error {
	reqs, err := s.relationshipService.ListRequests(c.UserContext(), callerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(reqs)
}

// GetFriendStatus handles GET /friends/status/:otherUserId
func (s *Server) GetFriendStatus(c *fiber.Ctx) error {
	st, err := s.relationshipService.Status(c.UserContext(), callerID(c), c.Params("otherUserId"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(st)
}
