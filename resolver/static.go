// Package resolver provides IdentityResolver implementations.
package resolver

import (
	"context"
	"fmt"

	messaging "github.com/rucko24/technovationslp-backend"
)

// Static is a map-based IdentityResolver for testing and simple deployments.
// It resolves user IDs from an in-memory map. Safe for concurrent use (read-only after creation).
type Static struct {
	profiles map[string]*messaging.Profile
}

// NewStatic creates a Static resolver from a map of user ID to Profile.
// The map is copied to prevent external mutation.
func NewStatic(profiles map[string]*messaging.Profile) *Static {
	m := make(map[string]*messaging.Profile, len(profiles))
	for k, v := range profiles {
		m[k] = v
	}
	return &Static{profiles: m}
}

// Resolve returns profile information for a single user ID.
func (s *Static) Resolve(_ context.Context, userID string) (*messaging.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile not found: %s", userID)
	}
	return p, nil
}

// ResolveBatch returns profile information for multiple user IDs.
// Unknown IDs have nil entries in the returned slice.
func (s *Static) ResolveBatch(_ context.Context, userIDs []string) ([]*messaging.Profile, error) {
	result := make([]*messaging.Profile, len(userIDs))
	for i, id := range userIDs {
		result[i] = s.profiles[id]
	}
	return result, nil
}
