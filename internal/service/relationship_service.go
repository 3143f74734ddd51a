// Package service contains the business logic behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/cache"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/featureflags"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/models"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/observability"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Pair status values reported by RelationshipService.Status.
const (
	PairStatusNone            = "none"
	PairStatusPendingSent     = "pending_sent"
	PairStatusPendingReceived = "pending_received"
	PairStatusFriends         = "friends"
	PairStatusBlocked         = "blocked"
)

// PairStatus is the caller's view of the relationship with another user.
type PairStatus struct {
	Status         string `json:"status"`
	RelationshipID string `json:"relationship_id,omitempty"`
}

// RelationshipService implements the friend request state machine.
type RelationshipService struct {
	repo       repository.RelationshipRepository
	cache      *cache.Store
	flags      *featureflags.Manager
	friendsTTL time.Duration
}

// NewRelationshipService returns a new RelationshipService. store and flags may be nil.
func NewRelationshipService(repo repository.RelationshipRepository, store *cache.Store, flags *featureflags.Manager, friendsTTL time.Duration) *RelationshipService {
	if friendsTTL <= 0 {
		friendsTTL = cache.DefaultFriendsTTL
	}
	return &RelationshipService{
		repo:       repo,
		cache:      store,
		flags:      flags,
		friendsTTL: friendsTTL,
	}
}

func validatePair(me, other string) error {
	if strings.TrimSpace(other) == "" {
		return models.NewInvalidOperationError("user_id is required")
	}
	if me == other {
		return models.NewInvalidOperationError("Cannot target yourself")
	}
	return nil
}

func errorCode(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}

func (s *RelationshipService) span(ctx context.Context, method, me, other string) (context.Context, func(error)) {
	ctx, span := observability.StartServiceSpan(ctx, "RelationshipService", method,
		attribute.String("user.id", me),
		attribute.String("other.id", other),
	)
	return ctx, func(err error) {
		observability.RecordTransition(strings.ToLower(method), err, errorCode)
		observability.EndSpan(span, err)
	}
}

// Request sends a friend request from me to other. When other already has a
// pending request to me, that request is returned unchanged.
func (s *RelationshipService) Request(ctx context.Context, me, other string) (rel *models.Relationship, err error) {
	ctx, done := s.span(ctx, "Request", me, other)
	defer func() { done(err) }()

	if err = validatePair(me, other); err != nil {
		return nil, err
	}
	scope := repository.CallerScope(me)

	// A lost insert race means the row now exists; the second pass reads it.
	for attempt := 0; attempt < 2; attempt++ {
		var existing *models.Relationship
		existing, err = s.repo.FindPair(ctx, scope, me, other)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return requestOutcome(existing, me)
		}

		rel = &models.Relationship{
			UserID:      me,
			FriendID:    other,
			RequestedBy: me,
			Status:      models.RelationshipStatusPending,
		}
		err = s.repo.Insert(ctx, scope, rel)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return rel, nil
	}
	return nil, models.NewConflictError("Friend request failed")
}

func requestOutcome(existing *models.Relationship, me string) (*models.Relationship, error) {
	switch existing.Status {
	case models.RelationshipStatusAccepted:
		return nil, models.NewConflictError("You are already friends")
	case models.RelationshipStatusBlocked:
		return nil, models.NewForbiddenError("This relationship is blocked")
	case models.RelationshipStatusPending:
		if existing.RequestedBy == me {
			return nil, models.NewConflictError("Friend request already sent")
		}
		return existing, nil
	default:
		return nil, models.NewConflictError("Relationship is in an unknown state")
	}
}

func (s *RelationshipService) findWithStatus(ctx context.Context, me, other string, status models.RelationshipStatus, notFound string) (*models.Relationship, error) {
	rel, err := s.repo.FindPair(ctx, repository.CallerScope(me), me, other)
	if err != nil {
		return nil, err
	}
	if rel == nil || rel.Status != status {
		return nil, models.NewNotFoundError(notFound)
	}
	return rel, nil
}

// Accept moves the pending request between me and other to accepted. Either
// side may accept.
func (s *RelationshipService) Accept(ctx context.Context, me, other string) (rel *models.Relationship, err error) {
	ctx, done := s.span(ctx, "Accept", me, other)
	defer func() { done(err) }()

	if err = validatePair(me, other); err != nil {
		return nil, err
	}
	rel, err = s.findWithStatus(ctx, me, other, models.RelationshipStatusPending, "No pending friend request")
	if err != nil {
		return nil, err
	}

	var ok bool
	ok, err = s.repo.UpdateStatus(ctx, repository.CallerScope(me), rel.ID, models.RelationshipStatusPending, models.RelationshipStatusAccepted)
	if err != nil {
		return nil, err
	}
	if !ok {
		err = models.NewConflictError("Accept failed, the request was withdrawn")
		return nil, err
	}

	rel.Status = models.RelationshipStatusAccepted
	rel.UpdatedAt = time.Now().UTC()
	s.invalidateFriends(ctx, me, other)
	return rel, nil
}

// Reject deletes the pending request between me and other. It also serves as cancel.
func (s *RelationshipService) Reject(ctx context.Context, me, other string) (rel *models.Relationship, err error) {
	ctx, done := s.span(ctx, "Reject", me, other)
	defer func() { done(err) }()

	if err = validatePair(me, other); err != nil {
		return nil, err
	}
	rel, err = s.findWithStatus(ctx, me, other, models.RelationshipStatusPending, "No pending friend request")
	if err != nil {
		return nil, err
	}

	var ok bool
	ok, err = s.repo.DeleteWithStatus(ctx, repository.CallerScope(me), rel.ID, models.RelationshipStatusPending)
	if err != nil {
		return nil, err
	}
	if !ok {
		err = models.NewNotFoundError("No pending friend request")
		return nil, err
	}
	return rel, nil
}

// Unfriend deletes the accepted relationship between me and other.
func (s *RelationshipService) Unfriend(ctx context.Context, me, other string) (rel *models.Relationship, err error) {
	ctx, done := s.span(ctx, "Unfriend", me, other)
	defer func() { done(err) }()

	if err = validatePair(me, other); err != nil {
		return nil, err
	}
	rel, err = s.findWithStatus(ctx, me, other, models.RelationshipStatusAccepted, "Friendship not found")
	if err != nil {
		return nil, err
	}

	var ok bool
	ok, err = s.repo.DeleteWithStatus(ctx, repository.CallerScope(me), rel.ID, models.RelationshipStatusAccepted)
	if err != nil {
		return nil, err
	}
	if !ok {
		err = models.NewNotFoundError("Friendship not found")
		return nil, err
	}
	s.invalidateFriends(ctx, me, other)
	return rel, nil
}

func (s *RelationshipService) invalidateFriends(ctx context.Context, ids ...string) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cache.FriendsKey(id))
	}
	s.cache.Invalidate(ctx, keys...)
}

// ListFriends returns the accepted relationships of me, most recent first.
func (s *RelationshipService) ListFriends(ctx context.Context, me string) (friends []models.Friend, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "RelationshipService", "ListFriends", attribute.String("user.id", me))
	defer func() { observability.EndSpan(span, err) }()

	fetch := func() error {
		rels, err := s.repo.List(ctx, repository.CallerScope(me), repository.Query{
			Filters: []repository.Filter{repository.Eq("status", models.RelationshipStatusAccepted)},
		})
		if err != nil {
			return err
		}
		friends = toFriends(rels, me)
		return nil
	}

	if s.flags.Enabled(featureflags.FriendsCacheBypass, me) {
		err = fetch()
	} else {
		err = s.cache.CacheAside(ctx, "friends", cache.FriendsKey(me), &friends, s.friendsTTL, fetch)
	}
	if err != nil {
		return nil, err
	}
	if friends == nil {
		friends = []models.Friend{}
	}
	return friends, nil
}

func toFriends(rels []models.Relationship, me string) []models.Friend {
	out := make([]models.Friend, 0, len(rels))
	for i := range rels {
		out = append(out, models.Friend{
			RelationshipID: rels[i].ID,
			UserID:         rels[i].Other(me),
			Since:          rels[i].Since(),
		})
	}
	slices.SortStableFunc(out, func(a, b models.Friend) int {
		return b.Since.Compare(a.Since)
	})
	return out
}

// ListRequests returns the pending requests touching me split by direction,
// newest first.
func (s *RelationshipService) ListRequests(ctx context.Context, me string) (reqs *models.FriendRequests, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "RelationshipService", "ListRequests", attribute.String("user.id", me))
	defer func() { observability.EndSpan(span, err) }()

	rels, err := s.repo.List(ctx, repository.CallerScope(me), repository.Query{
		Filters: []repository.Filter{repository.Eq("status", models.RelationshipStatusPending)},
		Order:   []repository.Order{{Column: "created_at", Desc: true}, {Column: "id"}},
	})
	if err != nil {
		return nil, err
	}

	reqs = &models.FriendRequests{
		Outgoing: []models.FriendRequest{},
		Incoming: []models.FriendRequest{},
	}
	for i := range rels {
		r := models.FriendRequest{
			RelationshipID: rels[i].ID,
			UserID:         rels[i].Other(me),
			RequestedAt:    rels[i].CreatedAt,
		}
		if rels[i].RequestedBy == me {
			reqs.Outgoing = append(reqs.Outgoing, r)
		} else {
			reqs.Incoming = append(reqs.Incoming, r)
		}
	}
	return reqs, nil
}

// Status reports the relationship between me and other.
func (s *RelationshipService) Status(ctx context.Context, me, other string) (*PairStatus, error) {
	if err := validatePair(me, other); err != nil {
		return nil, err
	}
	rel, err := s.repo.FindPair(ctx, repository.CallerScope(me), me, other)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return &PairStatus{Status: PairStatusNone}, nil
	}

	out := &PairStatus{RelationshipID: rel.ID}
	switch rel.Status {
	case models.RelationshipStatusAccepted:
		out.Status = PairStatusFriends
	case models.RelationshipStatusPending:
		if rel.RequestedBy == me {
			out.Status = PairStatusPendingSent
		} else {
			out.Status = PairStatusPendingReceived
		}
	default:
		out.Status = PairStatusBlocked
	}
	return out, nil
}
