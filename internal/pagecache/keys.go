package pagecache

import (
	"strconv"
	"strings"
)

// ScopePublic is the identity partition for anonymous visitors.
const ScopePublic = "public"

// pageKeySeparator keeps scope prefixes collision-free: "user" can never
// match keys written under "userX" because every key carries the separator.
const pageKeySeparator = "_page_"

// ScopeForUser returns the cache scope for an actor, falling back to the
// public scope when no user is authenticated.
func ScopeForUser(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ScopePublic
	}
	return userID
}

// ScopePrefix returns the shared key prefix for every page of a scope.
func ScopePrefix(scope string) string {
	return scope + pageKeySeparator
}

// Key derives the cache key for one page of a scope.
func Key(scope string, pageIndex int) string {
	return ScopePrefix(scope) + strconv.Itoa(pageIndex)
}
