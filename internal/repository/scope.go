// Package repository implements the data access layer for the application.
package repository

import "github.com/RingdingdongJeter/Food-App-Backend/internal/models"

// Scope is the authorization context of a store call. A caller scope restricts
// every read and write to rows the user owns or participates in; the service
// scope is unrestricted and reserved for server-side jobs (seeding, moderation).
type Scope struct {
	service bool
	userID  string
}

// ServiceScope returns an unrestricted scope.
func ServiceScope() Scope {
	return Scope{service: true}
}

// CallerScope returns a scope restricted to userID.
func CallerScope(userID string) Scope {
	return Scope{userID: userID}
}

// IsService reports whether the scope is unrestricted.
func (s Scope) IsService() bool {
	return s.service
}

// UserID returns the caller id of a caller scope, or "" for the service scope.
func (s Scope) UserID() string {
	return s.userID
}

func (s Scope) validate() error {
	if !s.service && s.userID == "" {
		return models.NewUnauthenticatedError("Caller scope requires a user id")
	}
	return nil
}
