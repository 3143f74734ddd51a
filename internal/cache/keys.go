package cache

import (
	"fmt"
	"time"
)

const (
	FriendsKeyPrefix   = "friends:%s"
	BlacklistKeyPrefix = "blacklist:%s"
)

// DefaultFriendsTTL applies when no TTL is configured.
const DefaultFriendsTTL = time.Minute

func FriendsKey(userID string) string {
	return fmt.Sprintf(FriendsKeyPrefix, userID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}
