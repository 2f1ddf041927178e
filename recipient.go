package messaging

import "context"

// Profile contains resolved display information about a user.
type Profile struct {
	// UserID is the unique user identifier.
	UserID string
	// Name is the display name of the user.
	Name string
	// ImageRef is an opaque reference to the user's avatar (optional).
	ImageRef string
}

// IdentityResolver maps user IDs to profile information.
// Implementations should be safe for concurrent use.
//
// The send pipeline uses it to snapshot the sender's name and avatar
// into the message, so inbox views stay stable even after the sender
// later changes their profile.
type IdentityResolver interface {
	// Resolve returns profile information for a single user ID.
	Resolve(ctx context.Context, userID string) (*Profile, error)

	// ResolveBatch returns profile information for multiple user IDs.
	// Returns results in the same order as input. Unknown IDs have nil entries.
	ResolveBatch(ctx context.Context, userIDs []string) ([]*Profile, error)
}
